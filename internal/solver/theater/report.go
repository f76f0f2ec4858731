package theater

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/napolitain/solver-theater/internal/effect"
	"github.com/napolitain/solver-theater/internal/models"
	"github.com/napolitain/solver-theater/internal/recipe"
	"github.com/napolitain/solver-theater/internal/solver/ilp"
)

// Request is one assembled model ready to be solved.
type Request struct {
	Name          string
	Recipes       map[string]*recipe.Recipe
	Units         map[int]*recipe.UnitEntry
	Mods          map[int]*recipe.ModEntry
	MaxSlots      int
	UpgradeBudget int
	// Perfect derives modification usage from the chosen loadouts.
	Perfect bool
}

// ModChoice is one slot of a chosen loadout. ID 0 is an empty slot.
type ModChoice struct {
	ID    int
	Name  string
	Level models.ModLevel
	Rank  int
}

// LoadoutRecord describes one deployed doll.
type LoadoutRecord struct {
	UnitID        int
	DefID         int
	Name          string
	Category      models.Category
	CategoryLabel string
	Rank          int
	Level         int
	Favor         int
	Skill1        int
	Skill2        int
	Score         int
	Effect        effect.Result
	Mods          [models.SlotCount]ModChoice
}

// UsageRecord counts how many copies of a modification the plan uses or upgrades.
type UsageRecord struct {
	ModID int
	Name  string
	Rank  int
	Count int
}

// Report is the outcome of a solve.
type Report struct {
	Scenario   *models.Scenario
	Loadouts   []LoadoutRecord
	Usage      []UsageRecord
	TotalScore int
	Objective  float64
	Recipes    int
	Pruned     int // dominated loadouts left out of the model
	Status     ilp.Status
	Nodes      int
}

// Solve builds the model of req, hands it to solver and extracts the report.
// The assignment is checked against the ledger independently of the solver.
func Solve(ctx context.Context, solver ilp.Solver, req Request) (*Report, error) {
	logger := log.With().Str("module", "theater").Logger()

	recipes, pruned := recipe.PruneDominated(req.Recipes)
	ledger := BuildLedger(req.Units, req.Mods, req.MaxSlots, req.UpgradeBudget)
	problem, err := BuildProblem(req.Name, recipes, ledger)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("vars", len(problem.Vars)).
		Int("rows", len(problem.Constraints)).
		Int("pruned", pruned).
		Msg("model assembled")

	sol, err := solver.Solve(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", req.Name, err)
	}
	if v := VerifyAssignment(recipes, ledger, sol.Values); len(v) > 0 {
		return nil, fmt.Errorf("solve %s: assignment breaks %d rows, first %s", req.Name, len(v), v[0])
	}

	report := &Report{
		Objective: sol.Objective,
		Recipes:   len(req.Recipes),
		Pruned:    pruned,
		Status:    sol.Status,
		Nodes:     sol.Nodes,
	}
	report.extract(req, sol.Values)

	logger.Info().
		Int("loadouts", len(report.Loadouts)).
		Int("score", report.TotalScore).
		Stringer("status", report.Status).
		Msg("solve finished")
	return report, nil
}

func (r *Report) extract(req Request, values ilp.Assignment) {
	names := make([]string, 0, len(values))
	for name, n := range values {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	usage := make(map[int]int)
	for _, name := range names {
		rec, ok := req.Recipes[name]
		if !ok {
			continue
		}
		n := values[name]
		switch rec.Kind {
		case recipe.Upgrade:
			if !req.Perfect {
				usage[rec.Info.ModID] += n
			}
		case recipe.Loadout:
			for i := 0; i < n; i++ {
				lr := loadoutRecord(req, rec)
				r.Loadouts = append(r.Loadouts, lr)
				r.TotalScore += lr.Score
				if req.Perfect {
					for _, m := range lr.Mods {
						if m.ID != 0 {
							usage[m.ID]++
						}
					}
				}
			}
		}
	}

	sort.SliceStable(r.Loadouts, func(i, j int) bool {
		if r.Loadouts[i].Score != r.Loadouts[j].Score {
			return r.Loadouts[i].Score > r.Loadouts[j].Score
		}
		return r.Loadouts[i].UnitID < r.Loadouts[j].UnitID
	})

	ids := make([]int, 0, len(usage))
	for id := range usage {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		u := UsageRecord{ModID: id, Count: usage[id]}
		if m, ok := req.Mods[id]; ok {
			u.Name = m.Def.Name
			u.Rank = m.Def.DisplayRank()
		}
		r.Usage = append(r.Usage, u)
	}
}

func loadoutRecord(req Request, rec *recipe.Recipe) LoadoutRecord {
	info := rec.Info
	lr := LoadoutRecord{
		UnitID: info.UnitID,
		DefID:  info.DefID,
		Score:  info.Score,
		Effect: info.Effect,
	}
	if u, ok := req.Units[info.UnitID]; ok {
		lr.Name = u.Def.Name
		lr.Category = u.Def.Category
		lr.CategoryLabel = u.Def.Category.String()
		lr.Rank = u.Def.RankDisplay
		if lr.Rank == 0 {
			lr.Rank = u.Def.Rank
		}
		lr.Level = u.Owned.Level
		lr.Favor = u.Owned.Favor
		lr.Skill1 = u.Owned.Skill1
		lr.Skill2 = u.Owned.Skill2
	}
	for i, c := range info.Mods {
		if c.Empty() {
			continue
		}
		mc := ModChoice{ID: c.ModID, Level: c.Level}
		if m, ok := req.Mods[c.ModID]; ok {
			mc.Name = m.Def.Name
			mc.Rank = m.Def.DisplayRank()
		}
		lr.Mods[i] = mc
	}
	return lr
}
