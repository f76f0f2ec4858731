package loader

import (
	"sort"
	"strings"

	"github.com/napolitain/solver-theater/internal/models"
)

// Perfect inventory constants
const (
	PerfectUpgradeBudget = 999
	perfectCopies        = 99
)

// PerfectInventory builds a reference inventory where every regular doll is
// at its maximum state and every eligible rank 5 modification is plentiful.
// Exclusive modifications also get plentiful level 10 copies.
func PerfectInventory(gd *models.GameData) *Inventory {
	inv := &Inventory{
		Units: make(map[int]models.OwnedUnit),
		Mods:  make(map[int]models.OwnedMod),
	}

	ids := make([]int, 0, len(gd.Units))
	for id := range gd.Units {
		ids = append(ids, id)
	}
	// ascending, so a modded form overrides its base form
	sort.Ints(ids)
	for _, id := range ids {
		if (id > 9000 && id < 20000) || id > 30000 {
			continue
		}
		owned := models.OwnedUnit{
			UnitID: models.BaseID(id),
			DefID:  id,
			Name:   gd.Units[id].Name,
			Number: 5,
			Skill1: 10,
		}
		if id > 20000 {
			owned.Level, owned.Skill2, owned.Favor = 120, 10, 200
		} else {
			owned.Level, owned.Skill2, owned.Favor = 100, 0, 150
		}
		inv.Units[owned.UnitID] = owned
	}

	for id, m := range gd.Mods {
		if m.Rank < 5 || !m.Visible || strings.HasSuffix(m.Code, "_S") {
			continue
		}
		owned := models.OwnedMod{ModID: id, Base: perfectCopies}
		if m.Upgradable() {
			owned.Max = perfectCopies
		}
		inv.Mods[id] = owned
	}
	return inv
}
