package loader

import "testing"

func TestUnitFilter(t *testing.T) {
	gd := loadTestData(t)

	tests := []struct {
		src  string
		want []int
	}{
		{"", []int{1, 2}},
		{`Category == "HG"`, []int{1}},
		{`Level >= 100 && Skill2 > 0`, []int{1}},
		{`Category in ["SMG", "AR"]`, []int{2}},
		{`Rank < 3`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := NewUnitFilter(tt.src)
			if err != nil {
				t.Fatalf("NewUnitFilter: %v", err)
			}
			inv := PerfectInventory(gd)
			if _, err := f.Apply(inv, gd); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if len(inv.Units) != len(tt.want) {
				t.Fatalf("kept %d units, want %d", len(inv.Units), len(tt.want))
			}
			for _, id := range tt.want {
				if _, ok := inv.Units[id]; !ok {
					t.Errorf("unit %d should be kept", id)
				}
			}
		})
	}
}

func TestUnitFilterCompileErrors(t *testing.T) {
	for _, src := range []string{"Level +", "Level + 1", "Unknown > 3"} {
		if _, err := NewUnitFilter(src); err == nil {
			t.Errorf("NewUnitFilter(%q): expected error", src)
		}
	}
}
