package recipe

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/napolitain/solver-theater/internal/effect"
	"github.com/napolitain/solver-theater/internal/models"
)

// UnitEntry pairs a doll definition with the player's state for it.
type UnitEntry struct {
	Def   *models.UnitDef
	Owned models.OwnedUnit
}

// ModEntry pairs a modification definition with the player's copies of it.
type ModEntry struct {
	Def   *models.ModDef
	Owned models.OwnedMod
}

// Input is everything recipe generation reads. Units are keyed by base id,
// mods by modification id.
type Input struct {
	Units      map[int]*UnitEntry
	Mods       map[int]*ModEntry
	Scenario   *models.Scenario
	MaxSlots   int
	FairyRatio float64
}

func (in *Input) validate() error {
	if in.Scenario == nil {
		return errors.New("scenario is required")
	}
	if in.MaxSlots < 1 {
		return fmt.Errorf("max slots must be at least 1, got %d", in.MaxSlots)
	}
	if in.FairyRatio <= 0 {
		return fmt.Errorf("fairy ratio must be positive, got %g", in.FairyRatio)
	}
	return nil
}

// Generate builds every upgrade recipe and every legal loadout recipe.
// The result depends only on the input.
func Generate(in Input) (map[string]*Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	logger := log.With().Str("module", "recipe").Logger()

	recipes := make(map[string]*Recipe)
	upgrades := 0
	for _, id := range sortedKeys(in.Mods) {
		m := in.Mods[id]
		if m.Def == nil {
			return nil, fmt.Errorf("mod %d has no definition", id)
		}
		if !m.Def.Upgradable() || m.Owned.Base <= 0 || m.Owned.Max >= in.MaxSlots {
			continue
		}
		r := newUpgrade(m.Def)
		recipes[r.Name] = r
		upgrades++
	}

	byCategory := groupByCategory(in.Mods)

	loadouts := 0
	for _, id := range sortedKeys(in.Units) {
		u := in.Units[id]
		if u.Def == nil {
			return nil, fmt.Errorf("unit %d has no definition", id)
		}
		if u.Owned.Level == 0 {
			logger.Debug().Int("unit", id).Msg("not owned, skipped")
			continue
		}

		var slots [models.SlotCount][]Choice
		for i := range slots {
			slots[i] = candidates(u, u.Def.SlotCategories[i], byCategory, in.MaxSlots)
		}
		logger.Debug().
			Int("unit", id).
			Ints("candidates", []int{len(slots[0]) - 1, len(slots[1]) - 1, len(slots[2]) - 1}).
			Msg("slot candidates")

		n, err := in.enumerate(u, slots, recipes)
		if err != nil {
			return nil, err
		}
		loadouts += n
	}

	logger.Info().
		Int("upgrades", upgrades).
		Int("loadouts", loadouts).
		Msg("recipes generated")
	return recipes, nil
}

// enumerate walks the Cartesian product of the slot candidates and emits a
// loadout recipe for every triple whose present mods have distinct categories.
func (in *Input) enumerate(u *UnitEntry, slots [models.SlotCount][]Choice, out map[string]*Recipe) (int, error) {
	weight, err := in.Scenario.Weight(u.Def.Category)
	if err != nil {
		return 0, fmt.Errorf("unit %d: %w", u.Def.ID, err)
	}
	adv := in.Scenario.AdvantageMultiplier(u.Owned.UnitID)

	n := 0
	for _, c1 := range slots[0] {
		for _, c2 := range slots[1] {
			for _, c3 := range slots[2] {
				triple := [models.SlotCount]Choice{c1, c2, c3}
				if !in.distinctCategories(triple) {
					continue
				}

				var equipped [models.SlotCount]effect.Equipped
				for i, c := range triple {
					if !c.Empty() {
						equipped[i] = effect.Equipped{Mod: in.Mods[c.ModID].Def, Level: c.Level}
					}
				}
				eff, err := effect.Compute(u.Def, u.Owned, equipped)
				if err != nil {
					return n, err
				}

				score := int(math.Floor(float64(weight) * adv * in.FairyRatio * float64(eff.For(in.Scenario.Mode)) / 100))
				r := newLoadout(u.Owned, triple, eff, score)
				out[r.Name] = r
				n++
			}
		}
	}
	return n, nil
}

// distinctCategories reports whether no two present mods share a category.
func (in *Input) distinctCategories(triple [models.SlotCount]Choice) bool {
	seen := make([]int, 0, models.SlotCount)
	for _, c := range triple {
		if c.Empty() {
			continue
		}
		cat := in.Mods[c.ModID].Def.Category
		if slices.Contains(seen, cat) {
			return false
		}
		seen = append(seen, cat)
	}
	return true
}

// candidates lists the choices of one slot: owned fitting mods sorted by id,
// level 10 before level 0, then the empty slot.
func candidates(u *UnitEntry, categories []int, byCategory map[int][]*ModEntry, maxSlots int) []Choice {
	var pool []*ModEntry
	for _, cat := range categories {
		for _, m := range byCategory[cat] {
			if !slices.Contains(pool, m) {
				pool = append(pool, m)
			}
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Def.ID < pool[j].Def.ID })

	out := make([]Choice, 0, 2*len(pool)+1)
	for _, m := range pool {
		if !m.Def.FitsUnit(u.Owned.UnitID) && !m.Def.FitsUnit(u.Owned.DefID) {
			continue
		}
		if m.Def.Upgradable() && m.Owned.Base+m.Owned.Max > 0 {
			out = append(out, Choice{ModID: m.Def.ID, Level: models.LevelMax})
		}
		if m.Owned.Base > 0 && m.Owned.Max < maxSlots {
			out = append(out, Choice{ModID: m.Def.ID, Level: models.LevelBase})
		}
	}
	return append(out, Choice{})
}

func groupByCategory(mods map[int]*ModEntry) map[int][]*ModEntry {
	groups := make(map[int][]*ModEntry)
	for _, m := range mods {
		groups[m.Def.Category] = append(groups[m.Def.Category], m)
	}
	return groups
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
