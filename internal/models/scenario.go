package models

import "fmt"

// FightMode selects which effectiveness value a scenario scores with.
type FightMode int

const (
	Day FightMode = iota
	Night
)

func (m FightMode) String() string {
	if m == Night {
		return "night"
	}
	return "day"
}

// Boss describes the scored fight of a theater area.
type Boss struct {
	EnemyTeamID int
	Night       bool
}

// Theater is one row of the static theater table.
type Theater struct {
	ID           int
	Name         string
	Description  string
	ClassWeight  []int
	AdvantageGun []int
	Boss         *Boss
}

// Scenario is the scoring configuration derived from a theater.
type Scenario struct {
	ID          int
	Name        string
	ClassWeight [CategoryCount]int
	Advantage   map[int]bool
	Mode        FightMode
}

// AdvantageMultiplier returns 1.2 for advantaged base unit ids, 1 otherwise.
func (s *Scenario) AdvantageMultiplier(unitID int) float64 {
	if s.Advantage[unitID] {
		return 1.2
	}
	return 1
}

// Weight returns the class weight for a category.
func (s *Scenario) Weight(c Category) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return s.ClassWeight[c.Index()], nil
}

// GameData bundles the static tables needed for one solve.
type GameData struct {
	Units    map[int]*UnitDef
	Mods     map[int]*ModDef
	Theaters map[int]*Theater
}

// LookupScenario resolves a theater id into a Scenario.
func LookupScenario(theaters map[int]*Theater, id int) (*Scenario, error) {
	t, ok := theaters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownScenario, id)
	}
	if t.Boss == nil {
		return nil, fmt.Errorf("%w: %d (%s)", ErrNotCombatScenario, id, t.Name)
	}
	if len(t.ClassWeight) != CategoryCount {
		return nil, fmt.Errorf("%w: %d has %d class weights, want %d",
			ErrNotCombatScenario, id, len(t.ClassWeight), CategoryCount)
	}

	s := &Scenario{
		ID:        t.ID,
		Name:      t.Name,
		Advantage: make(map[int]bool, len(t.AdvantageGun)),
		Mode:      Day,
	}
	copy(s.ClassWeight[:], t.ClassWeight)
	for _, gid := range t.AdvantageGun {
		s.Advantage[BaseID(gid)] = true
	}
	if t.Boss.Night {
		s.Mode = Night
	}
	return s, nil
}
