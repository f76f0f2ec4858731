// Package theater turns a theater scenario and a player inventory into an
// integer program, solves it, and reads the chosen loadouts back.
package theater

import (
	"fmt"
	"sort"

	"github.com/napolitain/solver-theater/internal/models"
	"github.com/napolitain/solver-theater/internal/recipe"
	"github.com/napolitain/solver-theater/internal/solver/ilp"
)

// upgradeWeight breaks ties in favor of keeping upgrade currency.
const upgradeWeight = 0.001

// Ledger maps every resource row to its initial amount.
type Ledger map[string]float64

// BuildLedger returns the starting amounts of one solve: one copy of each
// owned unit, the held copies of each modification at both levels, the
// deployment slots, the upgrade currency and an empty score row.
func BuildLedger(units map[int]*recipe.UnitEntry, mods map[int]*recipe.ModEntry, maxSlots, upgradeBudget int) Ledger {
	l := make(Ledger, len(units)+2*len(mods)+3)
	for id := range units {
		l[recipe.UnitRow(id)] = 1
	}
	for id, m := range mods {
		l[recipe.ModRow(id, models.LevelBase)] = float64(m.Owned.Base)
		l[recipe.ModRow(id, models.LevelMax)] = float64(m.Owned.Max)
	}
	l[recipe.RowCount] = float64(maxSlots)
	l[recipe.RowScore] = 0
	l[recipe.RowUpgrade] = float64(upgradeBudget)
	return l
}

// BuildProblem collects every recipe's contribution to each row before
// emitting the rows. Each recipe becomes one variable named after it.
// The objective is score + 0.001 * remaining upgrade currency.
func BuildProblem(name string, recipes map[string]*recipe.Recipe, ledger Ledger) (*ilp.Problem, error) {
	vars := make([]string, 0, len(recipes))
	for n := range recipes {
		vars = append(vars, n)
	}
	sort.Strings(vars)

	terms := make(map[string][]ilp.Term, len(ledger))
	for _, v := range vars {
		for row, coef := range recipes[v].Content {
			if coef != 0 {
				terms[row] = append(terms[row], ilp.Term{Var: v, Coef: coef})
			}
		}
	}

	rows := make([]string, 0, len(ledger)+len(terms))
	for row := range ledger {
		rows = append(rows, row)
	}
	for row := range terms {
		if _, ok := ledger[row]; !ok {
			rows = append(rows, row)
		}
	}
	sort.Strings(rows)

	p := &ilp.Problem{Name: name, Vars: vars}
	for _, row := range rows {
		constant := ledger[row]
		t := terms[row]
		if len(t) == 0 {
			if constant < 0 {
				return nil, fmt.Errorf("%w: row %s starts at %g", ilp.ErrNoSolution, row, constant)
			}
			continue
		}
		p.Constraints = append(p.Constraints, ilp.Constraint{Name: row, Constant: constant, Terms: t})
	}

	p.Objective.Constant = ledger[recipe.RowScore] + upgradeWeight*ledger[recipe.RowUpgrade]
	for _, v := range vars {
		c := recipes[v].Content
		if coef := c[recipe.RowScore] + upgradeWeight*c[recipe.RowUpgrade]; coef != 0 {
			p.Objective.Terms = append(p.Objective.Terms, ilp.Term{Var: v, Coef: coef})
		}
	}
	return p, nil
}

// VerifyAssignment recomputes every row straight from the recipes and
// returns the rows that end up negative.
func VerifyAssignment(recipes map[string]*recipe.Recipe, ledger Ledger, a ilp.Assignment) []ilp.Violation {
	totals := make(map[string]float64, len(ledger))
	for row, v := range ledger {
		totals[row] = v
	}
	for name, n := range a {
		r, ok := recipes[name]
		if !ok {
			continue
		}
		for row, coef := range r.Content {
			totals[row] += coef * float64(n)
		}
	}

	rows := make([]string, 0, len(totals))
	for row := range totals {
		rows = append(rows, row)
	}
	sort.Strings(rows)

	var out []ilp.Violation
	for _, row := range rows {
		if totals[row] < -1e-9 {
			out = append(out, ilp.Violation{Name: row, Value: totals[row]})
		}
	}
	for name, n := range a {
		if n < 0 {
			out = append(out, ilp.Violation{Name: name, Value: float64(n)})
		}
	}
	return out
}
