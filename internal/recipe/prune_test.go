package recipe

import (
	"testing"

	"github.com/napolitain/solver-theater/internal/effect"
	"github.com/napolitain/solver-theater/internal/models"
)

func TestPruneDominated(t *testing.T) {
	owned := testOwned()
	scope := Choice{ModID: 55, Level: models.LevelBase}
	ammo := Choice{ModID: 72, Level: models.LevelMax}
	add := func(out map[string]*Recipe, mods [models.SlotCount]Choice, score int) string {
		r := newLoadout(owned, mods, effect.Result{}, score)
		out[r.Name] = r
		return r.Name
	}

	recipes := map[string]*Recipe{}
	bare := add(recipes, [3]Choice{}, 1000)
	withScope := add(recipes, [3]Choice{scope}, 1200)
	// a penalty mod makes the full loadout worse than the scope alone
	both := add(recipes, [3]Choice{scope, ammo}, 1150)
	onlyAmmo := add(recipes, [3]Choice{{}, ammo}, 1000)
	up := newUpgrade(&models.ModDef{ID: 72, UpgradeCost: 1})
	recipes[up.Name] = up

	kept, dropped := PruneDominated(recipes)
	if dropped != 2 {
		t.Errorf("dropped %d, want 2", dropped)
	}
	for _, name := range []string{bare, withScope, up.Name} {
		if _, ok := kept[name]; !ok {
			t.Errorf("%s should be kept", name)
		}
	}
	for _, name := range []string{both, onlyAmmo} {
		if _, ok := kept[name]; ok {
			t.Errorf("%s should be dropped", name)
		}
	}
	if len(recipes) != 5 {
		t.Error("input map was modified")
	}
}

func TestPruneKeepsGeneratedOptimum(t *testing.T) {
	recipes, err := Generate(testInput())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	topScore := func(rs map[string]*Recipe) int {
		top := 0
		for _, r := range rs {
			if r.Kind == Loadout {
				top = max(top, r.Info.Score)
			}
		}
		return top
	}

	kept, dropped := PruneDominated(recipes)
	if got, want := topScore(kept), topScore(recipes); got != want {
		t.Errorf("best kept score %d, want %d", got, want)
	}
	if len(kept)+dropped != len(recipes) {
		t.Errorf("kept %d + dropped %d != %d", len(kept), dropped, len(recipes))
	}
	for name, r := range kept {
		if r.Kind == Loadout && dominated(r, recipes) {
			t.Errorf("%s is dominated but kept", name)
		}
	}
}
