package ilp

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
)

// Greedy is a fast heuristic. It raises variables in order of decreasing
// objective coefficient, each as far as every row allows. When a variable is
// blocked by a row that another variable can replenish, it tries buying the
// shortfall if the combined move still improves the objective.
type Greedy struct{}

// Solve returns a feasible, usually good, assignment.
func (Greedy) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	c, err := compile(p)
	if err != nil {
		return nil, err
	}
	x, err := c.greedy(ctx)
	if err != nil {
		return nil, err
	}
	return &Solution{
		Values:    c.assignment(x),
		Objective: c.value(x),
		Status:    Feasible,
	}, nil
}

func (c *compiled) greedy(ctx context.Context) ([]int, error) {
	if err := c.checkBounded(); err != nil {
		return nil, err
	}
	return c.fill(ctx, make([]int, len(c.vars)))
}

// roundDown floors a relaxed solution and lets the greedy pass spend what
// is left. Flooring keeps every row whose variables all consume it.
func (c *compiled) roundDown(ctx context.Context, relaxed []float64) ([]int, error) {
	x := make([]int, len(relaxed))
	for j, v := range relaxed {
		x[j] = max(int(math.Floor(v+intTol)), 0)
	}
	return c.fill(ctx, x)
}

// fill raises variables of x in place, starting from a feasible x.
func (c *compiled) fill(ctx context.Context, x []int) ([]int, error) {
	slack := make([]float64, len(c.constants))
	copy(slack, c.constants)
	for j, v := range x {
		if v != 0 {
			for _, e := range c.cols[j] {
				slack[e.index] += float64(v) * e.coef
			}
		}
	}
	for _, s := range slack {
		if s < -feasTol {
			return nil, ErrNoSolution
		}
	}

	order := make([]int, 0, len(c.vars))
	for j, coef := range c.obj {
		if coef > 0 {
			order = append(order, j)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ja, jb := order[a], order[b]
		if c.obj[ja] != c.obj[jb] {
			return c.obj[ja] > c.obj[jb]
		}
		return c.vars[ja] < c.vars[jb]
	})

	supported := 0
	for _, j := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if k := c.maxRaise(j, slack); k > 0 {
			c.raise(j, k, x, slack)
			continue
		}
		for c.raiseWithSupport(j, x, slack) {
			supported++
		}
	}

	log.Debug().
		Str("module", "ilp").
		Int("vars", len(c.vars)).
		Int("supported", supported).
		Float64("objective", c.value(x)).
		Msg("greedy pass done")
	return x, nil
}

// maxRaise returns how far variable j can grow with the current slack.
func (c *compiled) maxRaise(j int, slack []float64) int {
	k := math.MaxInt
	for _, e := range c.cols[j] {
		if e.coef >= 0 {
			continue
		}
		room := int(math.Floor((slack[e.index] + feasTol) / -e.coef))
		k = min(k, room)
	}
	return max(k, 0)
}

func (c *compiled) raise(j, k int, x []int, slack []float64) {
	x[j] += k
	for _, e := range c.cols[j] {
		slack[e.index] += float64(k) * e.coef
	}
}

// raiseWithSupport raises j by one after covering each blocked row with the
// cheapest variable that replenishes it. The move is kept only if it is
// feasible and improves the objective.
func (c *compiled) raiseWithSupport(j int, x []int, slack []float64) bool {
	trial := make([]float64, len(slack))
	copy(trial, slack)
	gain := c.obj[j]
	type step struct{ v, k int }
	var steps []step

	for _, e := range c.cols[j] {
		if e.coef >= 0 {
			continue
		}
		deficit := -(trial[e.index] + e.coef)
		if deficit <= feasTol {
			continue
		}
		best, bestNeed := -1, 0
		for _, pe := range c.rows[e.index] {
			p := pe.index
			if p == j || pe.coef <= 0 {
				continue
			}
			need := int(math.Ceil(deficit/pe.coef - feasTol))
			if room := c.maxRaise(p, trial); room < need || room == math.MaxInt {
				continue
			}
			if best < 0 || c.obj[p]*float64(need) > c.obj[best]*float64(bestNeed) {
				best, bestNeed = p, need
			}
		}
		if best < 0 {
			return false
		}
		for _, be := range c.cols[best] {
			trial[be.index] += float64(bestNeed) * be.coef
		}
		gain += c.obj[best] * float64(bestNeed)
		steps = append(steps, step{best, bestNeed})
	}

	for _, e := range c.cols[j] {
		trial[e.index] += e.coef
	}
	for _, s := range trial {
		if s < -feasTol {
			return false
		}
	}
	if gain <= 0 {
		return false
	}

	for _, s := range steps {
		x[s.v] += s.k
	}
	x[j]++
	copy(slack, trial)
	return true
}
