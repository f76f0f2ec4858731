package ilp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Defaults for BranchAndBound
const (
	DefaultMaxNodes = 200000
	DefaultTol      = 1e-10

	// intTol is how far from an integer a relaxed value may be and still count as one.
	intTol = 1e-6
)

// BranchAndBound solves the problem exactly by depth-first branch and bound
// over LP relaxations. The greedy assignment seeds the incumbent, so hitting
// MaxNodes or TimeLimit still returns a feasible answer.
type BranchAndBound struct {
	MaxNodes int
	Tol      float64
	// TimeLimit bounds the search. Zero means no limit. When it expires the
	// incumbent is returned with status Feasible; canceling ctx instead
	// returns ctx.Err().
	TimeLimit time.Duration
}

// node is one subproblem: per-variable bounds, upper < 0 means none.
type node struct {
	lower []int
	upper []int
}

func (n node) child(j, lower, upper int) node {
	c := node{
		lower: append([]int(nil), n.lower...),
		upper: append([]int(nil), n.upper...),
	}
	c.lower[j] = lower
	c.upper[j] = upper
	return c
}

// Solve runs the search.
func (b BranchAndBound) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	maxNodes := b.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	tol := b.Tol
	if tol <= 0 {
		tol = DefaultTol
	}
	logger := log.With().Str("module", "ilp").Str("problem", p.Name).Logger()

	c, err := compile(p)
	if err != nil {
		return nil, err
	}
	if err := c.checkBounded(); err != nil {
		return nil, err
	}

	start := time.Now()
	searchCtx := ctx
	if b.TimeLimit > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, b.TimeLimit)
		defer cancel()
	}

	var best []int
	bestValue := math.Inf(-1)
	if x, err := c.greedy(ctx); err == nil {
		best, bestValue = x, c.value(x)
	} else if !errors.Is(err, ErrNoSolution) {
		return nil, err
	}

	n := len(c.vars)
	root := node{lower: make([]int, n), upper: make([]int, n)}
	for j := range root.upper {
		root.upper[j] = -1
		// Variables in no row and without profit stay at zero.
		if len(c.cols[j]) == 0 {
			root.upper[j] = 0
		}
	}

	status := Optimal
	stack := []node{root}
	nodes := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if searchCtx.Err() != nil {
			logger.Warn().Int("nodes", nodes).Dur("limit", b.TimeLimit).Msg("time limit reached, returning incumbent")
			status = Feasible
			break
		}
		if nodes >= maxNodes {
			logger.Warn().Int("nodes", nodes).Msg("node limit reached, returning incumbent")
			status = Feasible
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		value, x, err := c.relax(searchCtx, nd, tol)
		if err != nil {
			switch {
			case errors.Is(err, errLPInfeasible):
				continue
			case errors.Is(err, errLPUnbounded):
				return nil, fmt.Errorf("%w: relaxation of %s", ErrUnbounded, p.Name)
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case searchCtx.Err() != nil:
				// the loop head reports the expired limit
				stack = append(stack, nd)
				continue
			}
			// Numerical trouble; this branch can no longer be proven.
			logger.Warn().Err(err).Int("node", nodes).Msg("relaxation failed, branch dropped")
			status = Feasible
			continue
		}
		if value <= bestValue+feasTol {
			continue
		}

		if nodes == 1 {
			// round the root relaxation down and fill it up greedily
			if cand, err := c.roundDown(searchCtx, x); err == nil {
				if v := c.value(cand); v > bestValue {
					best, bestValue = cand, v
					logger.Debug().Float64("objective", v).Msg("rounded root relaxation improves incumbent")
				}
			}
			if value <= bestValue+feasTol {
				continue
			}
		}

		j, v := c.mostFractional(x)
		if j < 0 {
			cand := make([]int, n)
			for k, v := range x {
				cand[k] = int(math.Round(v))
			}
			if c.feasible(cand) {
				if v := c.value(cand); v > bestValue {
					best, bestValue = cand, v
				}
			}
			continue
		}

		down := int(math.Floor(v))
		// Push the down branch first so the up branch is explored first.
		stack = append(stack, nd.child(j, nd.lower[j], down))
		stack = append(stack, nd.child(j, down+1, nd.upper[j]))
	}

	if best == nil {
		return nil, ErrNoSolution
	}
	logger.Debug().
		Int("nodes", nodes).
		Float64("objective", bestValue).
		Stringer("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("branch and bound done")

	return &Solution{
		Values:    c.assignment(best),
		Objective: bestValue,
		Status:    status,
		Nodes:     nodes,
	}, nil
}

// mostFractional returns the variable furthest from an integer, or -1.
func (c *compiled) mostFractional(x []float64) (int, float64) {
	idx, worst := -1, intTol
	for j, v := range x {
		f := v - math.Floor(v)
		d := math.Min(f, 1-f)
		if d > worst {
			idx, worst = j, d
		}
	}
	if idx < 0 {
		return -1, 0
	}
	return idx, x[idx]
}
