// Package recipe enumerates the candidate decisions of a theater solve.
//
// A recipe is a named vector of resource deltas. Loadout recipes consume a
// doll, a deployment slot and up to three modification copies and credit
// score; upgrade recipes turn a base copy of an exclusive modification into a
// level 10 copy at a currency cost.
package recipe

import (
	"fmt"
	"strings"

	"github.com/napolitain/solver-theater/internal/effect"
	"github.com/napolitain/solver-theater/internal/models"
)

// Shared resource row names
const (
	RowCount   = "count"
	RowScore   = "score"
	RowUpgrade = "upgrade"
)

// Kind distinguishes upgrade recipes from loadout recipes.
type Kind int

const (
	Loadout Kind = iota
	Upgrade
)

func (k Kind) String() string {
	if k == Upgrade {
		return "upgrade"
	}
	return "loadout"
}

// Choice is the modification picked for one slot. ModID 0 means the slot is empty.
type Choice struct {
	ModID int
	Level models.ModLevel
}

// Empty reports whether the slot carries no modification.
func (c Choice) Empty() bool {
	return c.ModID == 0
}

// token renders the choice the way it appears in a loadout recipe name.
func (c Choice) token() string {
	if c.Empty() {
		return "none"
	}
	return fmt.Sprintf("e%dlv%d", c.ModID, c.Level)
}

// Info is the reporting payload of a recipe.
type Info struct {
	UnitID int // base id, loadouts only
	DefID  int
	Mods   [models.SlotCount]Choice
	Effect effect.Result
	Score  int
	ModID  int // upgrade recipes only
}

// Recipe is one named resource-delta vector.
type Recipe struct {
	Name    string
	Kind    Kind
	Content map[string]float64
	Info    Info
}

// UnitRow returns the resource row of an owned unit.
func UnitRow(unitID int) string {
	return fmt.Sprintf("g_%d", unitID)
}

// ModRow returns the resource row of a modification at a level.
func ModRow(modID int, level models.ModLevel) string {
	return fmt.Sprintf("e%d_%d", modID, level)
}

// UpgradeName returns the recipe name of a modification upgrade.
func UpgradeName(modID int) string {
	return fmt.Sprintf("u_e%d", modID)
}

// LoadoutName returns the recipe name of a unit with a three-slot choice.
// Distinct choices never share a name.
func LoadoutName(unitID int, mods [models.SlotCount]Choice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "r_g%d", unitID)
	for _, c := range mods {
		b.WriteByte('_')
		b.WriteString(c.token())
	}
	return b.String()
}

func newUpgrade(def *models.ModDef) *Recipe {
	return &Recipe{
		Name: UpgradeName(def.ID),
		Kind: Upgrade,
		Content: map[string]float64{
			ModRow(def.ID, models.LevelBase): -1,
			ModRow(def.ID, models.LevelMax):  1,
			RowUpgrade:                       -float64(def.UpgradeCost),
		},
		Info: Info{ModID: def.ID},
	}
}

func newLoadout(owned models.OwnedUnit, mods [models.SlotCount]Choice, eff effect.Result, score int) *Recipe {
	content := map[string]float64{
		UnitRow(owned.UnitID): -1,
		RowCount:              -1,
		RowScore:              float64(score),
	}
	for _, c := range mods {
		if c.Empty() {
			continue
		}
		content[ModRow(c.ModID, c.Level)] -= 1
	}
	return &Recipe{
		Name:    LoadoutName(owned.UnitID, mods),
		Kind:    Loadout,
		Content: content,
		Info: Info{
			UnitID: owned.UnitID,
			DefID:  owned.DefID,
			Mods:   mods,
			Effect: eff,
			Score:  score,
		},
	}
}
