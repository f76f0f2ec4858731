package theater

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/napolitain/solver-theater/internal/loader"
	"github.com/napolitain/solver-theater/internal/models"
	"github.com/napolitain/solver-theater/internal/recipe"
	"github.com/napolitain/solver-theater/internal/solver/ilp"
)

// Commander runs theater solves against one set of game data.
type Commander struct {
	data     *models.GameData
	solver   ilp.Solver
	snapshot []byte
}

// NewCommander creates a commander. snapshot may be nil when only perfect
// mode is used.
func NewCommander(data *models.GameData, solver ilp.Solver, snapshot []byte) *Commander {
	return &Commander{data: data, solver: solver, snapshot: snapshot}
}

// SolverFor returns the backend named by the run config.
func SolverFor(cfg models.RunConfig) (ilp.Solver, error) {
	switch cfg.Solver {
	case models.SolverGreedy:
		return ilp.Greedy{}, nil
	case models.SolverBranchAndBound, "":
		return ilp.BranchAndBound{MaxNodes: cfg.MaxNodes, TimeLimit: cfg.TimeLimit}, nil
	}
	return nil, fmt.Errorf("unknown solver %q", cfg.Solver)
}

// Run performs one solve: scenario lookup, inventory, filtering, recipe
// generation, model assembly, solving and extraction.
func (c *Commander) Run(ctx context.Context, cfg models.RunConfig) (*Report, error) {
	logger := log.With().Str("module", "theater").Int("theater", cfg.TheaterID).Logger()

	scenario, err := models.LookupScenario(c.data.Theaters, cfg.TheaterID)
	if err != nil {
		return nil, err
	}

	inv, budget, err := c.inventory(cfg)
	if err != nil {
		return nil, err
	}

	filter, err := loader.NewUnitFilter(cfg.UnitFilter)
	if err != nil {
		return nil, err
	}
	dropped, err := filter.Apply(inv, c.data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		logger.Info().Int("dropped", dropped).Str("filter", cfg.UnitFilter).Msg("units filtered out")
	}

	units, mods := c.entries(inv)
	recipes, err := recipe.Generate(recipe.Input{
		Units:      units,
		Mods:       mods,
		Scenario:   scenario,
		MaxSlots:   cfg.MaxDolls,
		FairyRatio: cfg.FairyRatio,
	})
	if err != nil {
		return nil, err
	}

	report, err := Solve(ctx, c.solver, Request{
		Name:          fmt.Sprintf("theater_%d", cfg.TheaterID),
		Recipes:       recipes,
		Units:         units,
		Mods:          mods,
		MaxSlots:      cfg.MaxDolls,
		UpgradeBudget: budget,
		Perfect:       cfg.Perfect,
	})
	if err != nil {
		return nil, err
	}
	report.Scenario = scenario
	return report, nil
}

func (c *Commander) inventory(cfg models.RunConfig) (*loader.Inventory, int, error) {
	if cfg.Perfect {
		return loader.PerfectInventory(c.data), loader.PerfectUpgradeBudget, nil
	}
	if len(c.snapshot) == 0 {
		return nil, 0, fmt.Errorf("%w: no snapshot given", models.ErrInvalidInventory)
	}
	inv, err := loader.ParseSnapshot(c.snapshot, c.data)
	if err != nil {
		return nil, 0, err
	}
	return inv, cfg.UpgradeBudget, nil
}

// entries joins the inventory with the game data, dropping ids the data does not know.
func (c *Commander) entries(inv *loader.Inventory) (map[int]*recipe.UnitEntry, map[int]*recipe.ModEntry) {
	units := make(map[int]*recipe.UnitEntry, len(inv.Units))
	for id, owned := range inv.Units {
		def, ok := c.data.Units[owned.DefID]
		if !ok {
			continue
		}
		units[id] = &recipe.UnitEntry{Def: def, Owned: owned}
	}
	mods := make(map[int]*recipe.ModEntry, len(inv.Mods))
	for id, owned := range inv.Mods {
		def, ok := c.data.Mods[id]
		if !ok {
			continue
		}
		mods[id] = &recipe.ModEntry{Def: def, Owned: owned}
	}
	return units, mods
}
