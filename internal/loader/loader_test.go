package loader

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/napolitain/solver-theater/internal/models"
)

const testDataDir = "testdata"

func loadTestData(t *testing.T) *models.GameData {
	t.Helper()
	gd, err := LoadGameData(testDataDir)
	if err != nil {
		t.Fatalf("LoadGameData: %v", err)
	}
	return gd
}

func TestLoadUnits(t *testing.T) {
	gd := loadTestData(t)

	if len(gd.Units) != 4 {
		t.Errorf("expected 4 units, got %d", len(gd.Units))
	}

	u, ok := gd.Units[20001]
	if !ok {
		t.Fatal("unit 20001 not found")
	}
	if u.Category != models.HG {
		t.Errorf("category = %s, want HG", u.Category)
	}
	if u.Ratios.HP != 122 || u.Ratios.Pow != 125 || u.Ratios.Rate != 89 {
		t.Errorf("unexpected ratios %+v", u.Ratios)
	}
	if u.Growth != 130 || u.Crit != 20 || u.ArmorPiercing != 15 {
		t.Errorf("unexpected stats %+v", u)
	}
	if u.RankDisplay != 5 {
		t.Errorf("rank display = %d, want 5", u.RankDisplay)
	}
	if !slices.Equal(u.SlotCategories[0], []int{4, 13, 16, 18}) {
		t.Errorf("slot 1 = %v", u.SlotCategories[0])
	}

	smg := gd.Units[2]
	if smg.Category != models.SMG {
		t.Errorf("category = %s, want SMG", smg.Category)
	}
	// slot prefixes before ';' are dropped
	if !slices.Equal(smg.SlotCategories[1], []int{2, 7}) {
		t.Errorf("slot 2 = %v, want [2 7]", smg.SlotCategories[1])
	}
}

func TestLoadMods(t *testing.T) {
	gd := loadTestData(t)

	m := gd.Mods[122]
	if m == nil {
		t.Fatal("mod 122 not found")
	}
	if !m.Bonus || m.UpgradeCost != 3 || !m.Upgradable() {
		t.Errorf("mod 122 should be an upgradable exclusive: %+v", m)
	}
	if m.DisplayRank() != 6 {
		t.Errorf("display rank = %d, want 6", m.DisplayRank())
	}
	crit := m.Stats[models.StatCritPercent]
	if !crit.HasUpgrade || crit.Upgrade != 350 || crit.Max != 15 {
		t.Errorf("critical_percent = %+v", crit)
	}
	if !m.FitsUnit(20001) || m.FitsUnit(2) {
		t.Error("mod 122 should only fit 20001")
	}

	if gd.Mods[41].Bonus {
		t.Error("mod 41 has no upgrade lines and should not be a bonus mod")
	}
	if gd.Mods[60].Visible {
		t.Error("mod 60 is hidden")
	}
	if gd.Mods[60].SkillEffect != 2 || gd.Mods[60].SkillEffectPer != 10 {
		t.Errorf("mod 60 skill effect = %d/%d", gd.Mods[60].SkillEffect, gd.Mods[60].SkillEffectPer)
	}
	if !gd.Mods[72].Visible {
		t.Error("mods default to visible")
	}
}

func TestLoadTheaters(t *testing.T) {
	gd := loadTestData(t)

	s, err := models.LookupScenario(gd.Theaters, 1048)
	if err != nil {
		t.Fatalf("LookupScenario: %v", err)
	}
	if s.Mode != models.Night {
		t.Errorf("mode = %s, want night", s.Mode)
	}
	if s.ClassWeight[models.SMG.Index()] != 120 {
		t.Errorf("SMG weight = %d, want 120", s.ClassWeight[models.SMG.Index()])
	}
	if s.AdvantageMultiplier(1) != 1.2 || s.AdvantageMultiplier(2) != 1.2 {
		t.Error("advantage guns should be keyed by base id")
	}

	if gd.Theaters[1049].Boss != nil {
		t.Error("theater 1049 has no boss")
	}
}

func TestLoadGameDataMissingDir(t *testing.T) {
	if _, err := LoadGameData(t.TempDir()); err == nil {
		t.Error("expected error for empty data dir")
	}
}

func TestLoadUnitsBadCategory(t *testing.T) {
	dir := t.TempDir()
	bad := `{"5": {"id": 5, "type": "LMG", "type_equip": "1|2|3"}}`
	if err := os.WriteFile(filepath.Join(dir, DollFile), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUnits(dir); err == nil {
		t.Error("expected error for unknown doll type")
	}
}

func TestParseSlotCategories(t *testing.T) {
	tests := []struct {
		in      string
		want    [3][]int
		wantErr bool
	}{
		{in: "4,13|6|10", want: [3][]int{{4, 13}, {6}, {10}}},
		{in: "1;5,13|2;2|3;4", want: [3][]int{{5, 13}, {2}, {4}}},
		{in: "1|2", wantErr: true},
		{in: "1|x|3", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSlotCategories(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSlotCategories(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSlotCategories(%q): %v", tt.in, err)
			continue
		}
		for i := range got {
			if !slices.Equal(got[i], tt.want[i]) {
				t.Errorf("ParseSlotCategories(%q)[%d] = %v, want %v", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
