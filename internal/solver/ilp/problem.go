// Package ilp describes small integer linear programs and solves them.
//
// A Problem maximizes a linear objective over non-negative integer variables
// subject to rows of the form Constant + Σ coef·x ≥ 0. Solvers are
// interchangeable behind the Solver interface.
package ilp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoSolution is returned when no assignment satisfies every row.
	ErrNoSolution = errors.New("ilp: no feasible solution")
	// ErrUnbounded is returned when the objective can grow without limit.
	ErrUnbounded = errors.New("ilp: objective is unbounded")
)

// feasTol absorbs float noise when checking rows.
const feasTol = 1e-9

// Term is one coefficient of a linear expression.
type Term struct {
	Var  string
	Coef float64
}

// Constraint is the row Constant + Σ Terms ≥ 0.
type Constraint struct {
	Name     string
	Constant float64
	Terms    []Term
}

// Value evaluates the row under an assignment.
func (c *Constraint) Value(a Assignment) float64 {
	v := c.Constant
	for _, t := range c.Terms {
		v += t.Coef * float64(a[t.Var])
	}
	return v
}

// Objective is the expression to maximize.
type Objective struct {
	Constant float64
	Terms    []Term
}

// Problem is a maximization over non-negative integer variables.
type Problem struct {
	Name        string
	Vars        []string
	Constraints []Constraint
	Objective   Objective
}

// Assignment maps variable names to values. Missing variables are zero.
type Assignment map[string]int

// Status reports how much a solution can be trusted.
type Status int

const (
	// Optimal means the search proved no better assignment exists.
	Optimal Status = iota
	// Feasible means the assignment satisfies every row but optimality was not proven.
	Feasible
)

func (s Status) String() string {
	if s == Optimal {
		return "optimal"
	}
	return "feasible"
}

// Solution is what a solver returns.
type Solution struct {
	Values    Assignment
	Objective float64
	Status    Status
	Nodes     int
}

// Solver solves a Problem. Implementations must only return assignments
// that satisfy every row.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// Evaluate returns the objective value of an assignment.
func Evaluate(p *Problem, a Assignment) float64 {
	v := p.Objective.Constant
	for _, t := range p.Objective.Terms {
		v += t.Coef * float64(a[t.Var])
	}
	return v
}

// Violation is a row or variable that an assignment breaks.
type Violation struct {
	Name  string
	Value float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s=%g", v.Name, v.Value)
}

// Check recomputes every row from scratch and returns the violated ones,
// plus any variable assigned a negative value.
func Check(p *Problem, a Assignment) []Violation {
	var out []Violation
	for i := range p.Constraints {
		c := &p.Constraints[i]
		if v := c.Value(a); v < -feasTol {
			out = append(out, Violation{Name: c.Name, Value: v})
		}
	}
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if a[name] < 0 {
			out = append(out, Violation{Name: name, Value: float64(a[name])})
		}
	}
	return out
}

// entry is one non-zero of the constraint matrix.
type entry struct {
	index int
	coef  float64
}

// compiled is a Problem indexed for the solvers.
type compiled struct {
	vars      []string
	constants []float64
	rowNames  []string
	rows      [][]entry // by row, index is the variable
	cols      [][]entry // by variable, index is the row
	obj       []float64
	objConst  float64
}

func compile(p *Problem) (*compiled, error) {
	c := &compiled{
		vars:     p.Vars,
		cols:     make([][]entry, len(p.Vars)),
		obj:      make([]float64, len(p.Vars)),
		objConst: p.Objective.Constant,
	}
	index := make(map[string]int, len(p.Vars))
	for i, name := range p.Vars {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("ilp: duplicate variable %q", name)
		}
		index[name] = i
	}

	for _, t := range p.Objective.Terms {
		j, ok := index[t.Var]
		if !ok {
			return nil, fmt.Errorf("ilp: objective references unknown variable %q", t.Var)
		}
		c.obj[j] += t.Coef
	}

	for i := range p.Constraints {
		con := &p.Constraints[i]
		if math.IsNaN(con.Constant) || math.IsInf(con.Constant, 0) {
			return nil, fmt.Errorf("ilp: row %q has constant %g", con.Name, con.Constant)
		}
		// merge repeated variables within a row
		merged := make(map[int]float64, len(con.Terms))
		for _, t := range con.Terms {
			j, ok := index[t.Var]
			if !ok {
				return nil, fmt.Errorf("ilp: row %q references unknown variable %q", con.Name, t.Var)
			}
			merged[j] += t.Coef
		}
		row := make([]entry, 0, len(merged))
		for j, coef := range merged {
			if coef != 0 {
				row = append(row, entry{index: j, coef: coef})
			}
		}
		sort.Slice(row, func(a, b int) bool { return row[a].index < row[b].index })

		r := len(c.rows)
		c.rows = append(c.rows, row)
		c.constants = append(c.constants, con.Constant)
		c.rowNames = append(c.rowNames, con.Name)
		for _, e := range row {
			c.cols[e.index] = append(c.cols[e.index], entry{index: r, coef: e.coef})
		}
	}
	return c, nil
}

// limited reports whether some row caps the variable from above.
func (c *compiled) limited(j int) bool {
	for _, e := range c.cols[j] {
		if e.coef < 0 {
			return true
		}
	}
	return false
}

// checkBounded rejects problems where a profitable variable is capped by nothing.
func (c *compiled) checkBounded() error {
	for j, coef := range c.obj {
		if coef > 0 && !c.limited(j) {
			return fmt.Errorf("%w: %s", ErrUnbounded, c.vars[j])
		}
	}
	return nil
}

func (c *compiled) value(x []int) float64 {
	v := c.objConst
	for j, coef := range c.obj {
		v += coef * float64(x[j])
	}
	return v
}

func (c *compiled) feasible(x []int) bool {
	for i, row := range c.rows {
		v := c.constants[i]
		for _, e := range row {
			v += e.coef * float64(x[e.index])
		}
		if v < -feasTol {
			return false
		}
	}
	return true
}

func (c *compiled) assignment(x []int) Assignment {
	a := make(Assignment)
	for j, v := range x {
		if v != 0 {
			a[c.vars[j]] = v
		}
	}
	return a
}
