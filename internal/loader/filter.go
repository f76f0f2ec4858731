package loader

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/napolitain/solver-theater/internal/models"
)

// UnitEnv is the environment a unit filter expression is evaluated against.
type UnitEnv struct {
	ID       int
	Name     string
	Category string
	Rank     int
	Level    int
	Number   int
	Skill1   int
	Skill2   int
	Favor    int
}

// UnitFilter keeps the owned units for which an expression holds,
// e.g. `Category in ["AR", "SMG"] && Level >= 110`.
type UnitFilter struct {
	src     string
	program *vm.Program
}

// NewUnitFilter compiles src. An empty source keeps every unit.
func NewUnitFilter(src string) (*UnitFilter, error) {
	f := &UnitFilter{src: src}
	if src == "" {
		return f, nil
	}
	prog, err := expr.Compile(src, expr.Env(UnitEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile unit filter %q: %w", src, err)
	}
	f.program = prog
	return f, nil
}

// Keep reports whether the unit passes the filter.
func (f *UnitFilter) Keep(def *models.UnitDef, owned models.OwnedUnit) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	env := UnitEnv{
		ID:       owned.UnitID,
		Name:     def.Name,
		Category: def.Category.String(),
		Rank:     def.Rank,
		Level:    owned.Level,
		Number:   owned.Number,
		Skill1:   owned.Skill1,
		Skill2:   owned.Skill2,
		Favor:    owned.Favor,
	}
	out, err := vm.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("unit filter %q on unit %d: %w", f.src, owned.UnitID, err)
	}
	keep, ok := out.(bool)
	return ok && keep, nil
}

// Apply removes the units that fail the filter from inv and returns how many were dropped.
func (f *UnitFilter) Apply(inv *Inventory, gd *models.GameData) (int, error) {
	if f.program == nil {
		return 0, nil
	}
	dropped := 0
	for id, owned := range inv.Units {
		def, ok := gd.Units[owned.DefID]
		if !ok {
			continue
		}
		keep, err := f.Keep(def, owned)
		if err != nil {
			return dropped, err
		}
		if !keep {
			delete(inv.Units, id)
			dropped++
		}
	}
	return dropped, nil
}
