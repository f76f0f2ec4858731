package ilp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	errLPInfeasible = errors.New("ilp: relaxation is infeasible")
	errLPUnbounded  = errors.New("ilp: relaxation is unbounded")
	errLPStalled    = errors.New("ilp: simplex iteration limit reached")
)

// Simplex tuning
const (
	pivotTol      = 1e-9
	phaseOneTol   = 1e-7
	degenerateTol = 1e-12
	refactorEvery = 64
	ctxEvery      = 32
	// blandAfter is the run of degenerate pivots that switches pricing to
	// Bland's rule until the objective moves again.
	blandAfter = 50
)

// simplex is a bounded-variable revised primal simplex over
//
//	Σ g·x + s_i - a_i = b_i   (g = -coef, b = row constant)
//	lower ≤ x ≤ upper, s ≥ 0, a ≥ 0
//
// Variables 0..n-1 are the problem's, n..n+m-1 the row slacks and
// n+m..n+2m-1 the phase one artificials. Branching bounds are native, so
// a node costs no extra rows. The basis inverse is kept dense and updated
// per pivot, then rebuilt with gonum every refactorEvery pivots.
type simplex struct {
	c       *compiled
	n, m    int
	lower   []float64
	upper   []float64
	cost    []float64
	x       []float64
	head    []int // basic variable of each row position
	pos     []int // row position of a basic variable, -1 when nonbasic
	atUpper []bool
	binv    *mat.Dense
	tol     float64
	maxIter int
	iters   int
}

// relax solves the LP relaxation of a node. It returns the objective value
// and the values of the problem's variables.
func (c *compiled) relax(ctx context.Context, nd node, tol float64) (float64, []float64, error) {
	n, m := len(c.vars), len(c.rows)
	for j := 0; j < n; j++ {
		if nd.upper[j] >= 0 && nd.upper[j] < nd.lower[j] {
			return 0, nil, errLPInfeasible
		}
	}
	if m == 0 {
		// checkBounded guarantees no variable here is profitable
		x := make([]float64, n)
		v := c.objConst
		for j := range x {
			x[j] = float64(nd.lower[j])
			v += c.obj[j] * x[j]
		}
		return v, x, nil
	}

	s := newSimplex(c, nd, tol)
	if s.needsPhaseOne() {
		for k := n + m; k < n+2*m; k++ {
			s.cost[k] = -1
		}
		if err := s.run(ctx); err != nil {
			return 0, nil, err
		}
		infeas := 0.0
		for k := n + m; k < n+2*m; k++ {
			infeas += s.x[k]
		}
		if infeas > phaseOneTol*(1+s.rhsScale()) {
			return 0, nil, errLPInfeasible
		}
		for k := n + m; k < n+2*m; k++ {
			s.cost[k] = 0
			s.upper[k] = 0
			if s.pos[k] < 0 {
				s.x[k] = 0
			}
		}
	}

	copy(s.cost, c.obj)
	if err := s.run(ctx); err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	v := c.objConst
	for j := 0; j < n; j++ {
		x[j] = s.x[j]
		v += c.obj[j] * x[j]
	}
	return v, x, nil
}

func newSimplex(c *compiled, nd node, tol float64) *simplex {
	n, m := len(c.vars), len(c.rows)
	total := n + 2*m
	s := &simplex{
		c:       c,
		n:       n,
		m:       m,
		lower:   make([]float64, total),
		upper:   make([]float64, total),
		cost:    make([]float64, total),
		x:       make([]float64, total),
		head:    make([]int, m),
		pos:     make([]int, total),
		atUpper: make([]bool, total),
		binv:    mat.NewDense(m, m, nil),
		tol:     math.Max(tol, 1e-9),
		maxIter: 10000 + 100*(n+m),
	}
	for j := 0; j < n; j++ {
		s.lower[j] = float64(nd.lower[j])
		s.upper[j] = math.Inf(1)
		if nd.upper[j] >= 0 {
			s.upper[j] = float64(nd.upper[j])
		}
		s.x[j] = s.lower[j]
	}
	for k := range s.pos {
		s.pos[k] = -1
	}

	for i := 0; i < m; i++ {
		// row value with every variable at its lower bound
		r := c.constants[i]
		for _, e := range c.rows[i] {
			r += e.coef * s.x[e.index]
		}
		slack, art := n+i, n+m+i
		s.upper[slack] = math.Inf(1)
		if r >= 0 {
			s.head[i] = slack
			s.x[slack] = r
			s.binv.Set(i, i, 1)
		} else {
			s.head[i] = art
			s.x[art] = -r
			s.upper[art] = math.Inf(1)
			s.binv.Set(i, i, -1)
		}
		s.pos[s.head[i]] = i
	}
	return s
}

func (s *simplex) needsPhaseOne() bool {
	for _, k := range s.head {
		if k >= s.n+s.m {
			return true
		}
	}
	return false
}

func (s *simplex) rhsScale() float64 {
	v := 0.0
	for _, b := range s.c.constants {
		v = math.Max(v, math.Abs(b))
	}
	return v
}

// column calls fn for every non-zero of variable k's column.
func (s *simplex) column(k int, fn func(row int, a float64)) {
	switch {
	case k < s.n:
		for _, e := range s.c.cols[k] {
			fn(e.index, -e.coef)
		}
	case k < s.n+s.m:
		fn(k-s.n, 1)
	default:
		fn(k-s.n-s.m, -1)
	}
}

// run iterates until the current cost vector is optimal.
func (s *simplex) run(ctx context.Context) error {
	degenerate := 0
	y := make([]float64, s.m)
	alpha := make([]float64, s.m)
	for it := 0; ; it++ {
		if s.iters >= s.maxIter {
			return errLPStalled
		}
		if it%ctxEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if it > 0 && it%refactorEvery == 0 {
			if err := s.refactor(); err != nil {
				return err
			}
		}
		s.iters++

		s.duals(y)
		q, dir := s.price(y, degenerate >= blandAfter)
		if q < 0 {
			return nil
		}
		s.ftran(q, alpha)
		t, r := s.ratio(q, dir, alpha, degenerate >= blandAfter)
		if math.IsInf(t, 1) {
			return errLPUnbounded
		}

		s.x[q] += dir * t
		for i, a := range alpha {
			if a != 0 {
				s.x[s.head[i]] -= dir * a * t
			}
		}
		if r < 0 {
			// bound flip
			s.atUpper[q] = dir > 0
			if dir > 0 {
				s.x[q] = s.upper[q]
			} else {
				s.x[q] = s.lower[q]
			}
		} else {
			s.pivot(r, q, dir, alpha)
		}

		if t <= degenerateTol {
			degenerate++
		} else {
			degenerate = 0
		}
	}
}

// duals computes y = c_B B⁻¹.
func (s *simplex) duals(y []float64) {
	raw := s.binv.RawMatrix()
	for i := range y {
		y[i] = 0
	}
	for r, k := range s.head {
		cb := s.cost[k]
		if cb == 0 {
			continue
		}
		row := raw.Data[r*raw.Stride : r*raw.Stride+s.m]
		for i, v := range row {
			y[i] += cb * v
		}
	}
}

// price picks the entering variable and its direction (+1 up, -1 down).
// It returns -1 when no reduced cost improves the objective.
func (s *simplex) price(y []float64, bland bool) (int, float64) {
	best, bestDir, bestGain := -1, 0.0, 0.0
	for k := range s.x {
		if s.pos[k] >= 0 || s.upper[k] <= s.lower[k] {
			continue
		}
		d := s.cost[k]
		s.column(k, func(row int, a float64) {
			d -= y[row] * a
		})
		var dir float64
		switch {
		case !s.atUpper[k] && d > s.tol:
			dir = 1
		case s.atUpper[k] && d < -s.tol:
			dir = -1
		default:
			continue
		}
		if bland {
			return k, dir
		}
		if g := math.Abs(d); g > bestGain {
			best, bestDir, bestGain = k, dir, g
		}
	}
	return best, bestDir
}

// ftran computes alpha = B⁻¹ a_q.
func (s *simplex) ftran(q int, alpha []float64) {
	raw := s.binv.RawMatrix()
	for r := range alpha {
		alpha[r] = 0
	}
	s.column(q, func(row int, a float64) {
		for r := range alpha {
			alpha[r] += raw.Data[r*raw.Stride+row] * a
		}
	})
}

// ratio returns the step length and the leaving row, or -1 when the
// entering variable reaches its own opposite bound first.
func (s *simplex) ratio(q int, dir float64, alpha []float64, bland bool) (float64, int) {
	t := s.upper[q] - s.lower[q]
	leave := -1
	bestPivot := 0.0
	for r, a := range alpha {
		a *= dir
		if math.Abs(a) < pivotTol {
			continue
		}
		k := s.head[r]
		var room float64
		if a > 0 {
			room = (s.x[k] - s.lower[k]) / a
		} else {
			if math.IsInf(s.upper[k], 1) {
				continue
			}
			room = (s.upper[k] - s.x[k]) / -a
		}
		room = math.Max(room, 0)

		switch {
		case room < t-degenerateTol:
		case room <= t+degenerateTol && leave >= 0:
			if bland {
				if k > s.head[leave] {
					continue
				}
			} else if math.Abs(a) <= bestPivot {
				continue
			}
		default:
			continue
		}
		t, leave, bestPivot = room, r, math.Abs(a)
	}
	return t, leave
}

// pivot swaps q into row position r and updates the basis inverse.
func (s *simplex) pivot(r, q int, dir float64, alpha []float64) {
	k := s.head[r]
	if dir*alpha[r] > 0 {
		s.x[k], s.atUpper[k] = s.lower[k], false
	} else {
		s.x[k], s.atUpper[k] = s.upper[k], true
	}
	s.pos[k] = -1
	s.head[r] = q
	s.pos[q] = r
	s.atUpper[q] = false

	raw := s.binv.RawMatrix()
	pr := raw.Data[r*raw.Stride : r*raw.Stride+s.m]
	inv := 1 / alpha[r]
	for i := range pr {
		pr[i] *= inv
	}
	for i, a := range alpha {
		if i == r || a == 0 {
			continue
		}
		row := raw.Data[i*raw.Stride : i*raw.Stride+s.m]
		for j, v := range pr {
			row[j] -= a * v
		}
	}
}

// refactor rebuilds B⁻¹ from the basic columns and recomputes the basic
// values so rounding errors do not accumulate.
func (s *simplex) refactor() error {
	b := mat.NewDense(s.m, s.m, nil)
	for r, k := range s.head {
		s.column(k, func(row int, a float64) {
			b.Set(row, r, a)
		})
	}
	if err := s.binv.Inverse(b); err != nil {
		// an ill-conditioned basis still yields a usable inverse
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return fmt.Errorf("ilp: basis refactorization: %w", err)
		}
	}

	rhs := make([]float64, s.m)
	copy(rhs, s.c.constants)
	for k, v := range s.x {
		if s.pos[k] >= 0 || v == 0 {
			continue
		}
		s.column(k, func(row int, a float64) {
			rhs[row] -= a * v
		})
	}
	xb := mat.NewVecDense(s.m, nil)
	xb.MulVec(s.binv, mat.NewVecDense(s.m, rhs))
	for r, k := range s.head {
		s.x[k] = xb.AtVec(r)
	}
	return nil
}
