package recipe

import (
	"github.com/rs/zerolog/log"

	"github.com/napolitain/solver-theater/internal/models"
)

// PruneDominated drops every loadout that scores no more than one of its
// sub-loadouts, the same doll with some of its slots emptied. The sub-loadout
// uses a subset of the resources, so no optimal plan needs the dropped one.
// Upgrade recipes are kept. It returns the kept recipes and the drop count.
func PruneDominated(recipes map[string]*Recipe) (map[string]*Recipe, int) {
	kept := make(map[string]*Recipe, len(recipes))
	dropped := 0
	for name, r := range recipes {
		if r.Kind == Loadout && dominated(r, recipes) {
			dropped++
			continue
		}
		kept[name] = r
	}

	log.Debug().
		Str("module", "recipe").
		Int("kept", len(kept)).
		Int("dropped", dropped).
		Msg("dominated loadouts pruned")
	return kept, dropped
}

// dominated walks the proper sub-loadouts of r by slot mask.
func dominated(r *Recipe, recipes map[string]*Recipe) bool {
	full := 0
	for i, c := range r.Info.Mods {
		if !c.Empty() {
			full |= 1 << i
		}
	}
	for mask := 0; mask < full; mask++ {
		if mask&^full != 0 {
			continue
		}
		var sub [models.SlotCount]Choice
		for i, c := range r.Info.Mods {
			if mask&(1<<i) != 0 {
				sub[i] = c
			}
		}
		if s, ok := recipes[LoadoutName(r.Info.UnitID, sub)]; ok && s.Info.Score >= r.Info.Score {
			return true
		}
	}
	return false
}
