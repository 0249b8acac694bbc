package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/chpcoupling/core/logger"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
)

// DefaultTolerance is passed to the simplex method and used to classify
// binary values as integral.
const DefaultTolerance = 1e-7

var (
	// ErrInfeasible indicates the LP has no feasible point.
	ErrInfeasible = errors.New("lp infeasible")
	// ErrUnbounded indicates the objective is unbounded below.
	ErrUnbounded = errors.New("lp unbounded")
)

// Solution is an optimal point of the relaxed model.
type Solution struct {
	X         []float64
	Objective float64
	// Fractional lists binary variables whose relaxed value is not 0 or 1.
	Fractional []lpmodel.VarID
}

// Value returns the value of a variable in the solution.
func (s Solution) Value(id lpmodel.VarID) float64 {
	return s.X[id]
}

// Gonum solves lpmodel models with the gonum simplex implementation.
// Binary variables are relaxed to [0, 1]; there is no branch and bound.
type Gonum struct {
	tol float64
	log logger.Logger
}

// NewGonum returns a solver. A non-positive tol selects DefaultTolerance.
func NewGonum(tol float64, log logger.Logger) *Gonum {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Gonum{tol: tol, log: log}
}

// Solve minimises the model objective. The simplex run cannot be
// interrupted; ctx is honoured before it starts and while waiting for it.
// A panic inside gonum is returned as an error.
func (g *Gonum) Solve(ctx context.Context, m *lpmodel.Model) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	type result struct {
		x   []float64
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("solver: %v", r)}
			}
		}()
		x, err := g.run(m)
		done <- result{x, err}
	}()

	select {
	case <-ctx.Done():
		return Solution{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return Solution{}, r.err
		}
		return g.solution(m, r.x), nil
	}
}

// simplex is replaced in tests.
var simplex = lp.Simplex

// bigMFactor scales the largest structural cost into the penalty on
// artificial columns in the optimisation phase.
const bigMFactor = 1e3

// column maps a model variable onto standard-form columns:
// x = shift + z[pos] - z[neg]. A variable that appears in no row has no
// columns and is set to value.
type column struct {
	pos, neg int
	shift    float64
	used     bool
	value    float64
}

// standard is the model as A z = b, z >= 0, b >= 0. The last m columns of A
// are an identity block of artificial variables, so they form a feasible
// starting basis.
type standard struct {
	cols []column
	k    int // structural and slack columns, before the artificial block
	cost []float64
	rows [][]float64
	b    []float64
}

func (g *Gonum) standardForm(m *lpmodel.Model) (standard, error) {
	vars := m.Variables()
	n := len(vars)
	if n == 0 {
		return standard{}, errors.New("solver: model has no variables")
	}

	// dense coefficients over model variables, zero rows resolved up front
	type row struct {
		coef  []float64
		sense lpmodel.Sense
		rhs   float64
	}
	var rows []row
	used := make([]bool, n)
	for _, c := range m.Constraints() {
		r := row{coef: make([]float64, n), sense: c.Sense, rhs: c.RHS}
		empty := true
		for _, t := range c.Terms {
			r.coef[t.Var] += t.Coef
		}
		for j, a := range r.coef {
			if a != 0 {
				used[j], empty = true, false
			}
		}
		if empty {
			if !lpmodel.Satisfied(lpmodel.Constraint{Sense: c.Sense, RHS: c.RHS}, nil, g.tol) {
				return standard{}, fmt.Errorf("%w: constraint %s has no terms", ErrInfeasible, c.Name)
			}
			continue
		}
		rows = append(rows, r)
	}

	p := standard{cols: make([]column, n)}
	for j, v := range vars {
		if v.Upper < v.Lower {
			return p, fmt.Errorf("%w: variable %s has bounds [%g, %g]", ErrInfeasible, v.Name, v.Lower, v.Upper)
		}
		col := column{pos: -1, neg: -1, used: used[j]}
		if !col.used {
			val, err := freeValue(v)
			if err != nil {
				return p, err
			}
			col.value = val
			p.cols[j] = col
			continue
		}
		col.pos = p.k
		p.cost = append(p.cost, v.Cost)
		p.k++
		if math.IsInf(v.Lower, -1) {
			col.neg = p.k
			p.cost = append(p.cost, -v.Cost)
			p.k++
		} else {
			col.shift = v.Lower
		}
		p.cols[j] = col
		if !math.IsInf(v.Upper, 1) {
			r := row{coef: make([]float64, n), sense: lpmodel.LessEqual, rhs: v.Upper}
			r.coef[j] = 1
			rows = append(rows, r)
		}
	}

	slack := 0
	for _, r := range rows {
		if r.sense != lpmodel.Equal {
			slack++
		}
	}
	width := p.k + slack
	next := p.k
	for _, r := range rows {
		out := make([]float64, width)
		rhs := r.rhs
		for j, a := range r.coef {
			if a == 0 {
				continue
			}
			c := p.cols[j]
			out[c.pos] += a
			if c.neg >= 0 {
				out[c.neg] -= a
			}
			rhs -= a * c.shift
		}
		switch r.sense {
		case lpmodel.LessEqual:
			out[next] = 1
			next++
		case lpmodel.GreaterEqual:
			out[next] = -1
			next++
		}
		if rhs < 0 {
			for i := range out {
				out[i] = -out[i]
			}
			rhs = -rhs
		}
		p.rows, p.b = append(p.rows, out), append(p.b, rhs)
	}
	for len(p.cost) < width {
		p.cost = append(p.cost, 0)
	}
	p.k = width
	return p, nil
}

// freeValue places a variable that no row constrains at its cheapest bound.
func freeValue(v lpmodel.Variable) (float64, error) {
	switch {
	case v.Cost > 0 && math.IsInf(v.Lower, -1), v.Cost < 0 && math.IsInf(v.Upper, 1):
		return 0, fmt.Errorf("%w: variable %s", ErrUnbounded, v.Name)
	case v.Cost > 0:
		return v.Lower, nil
	case v.Cost < 0:
		return v.Upper, nil
	case !math.IsInf(v.Lower, -1):
		return v.Lower, nil
	case !math.IsInf(v.Upper, 1):
		return v.Upper, nil
	default:
		return 0, nil
	}
}

// matrix returns [A I] and the indices of the artificial columns.
func (p standard) matrix() (*mat.Dense, []int) {
	m := len(p.rows)
	a := mat.NewDense(m, p.k+m, nil)
	basis := make([]int, m)
	for i, r := range p.rows {
		for j, v := range r {
			if v != 0 {
				a.Set(i, j, v)
			}
		}
		a.Set(i, p.k+i, 1)
		basis[i] = p.k + i
	}
	return a, basis
}

// run solves the model in two passes from the artificial basis: the first
// drives the artificial columns to zero and decides feasibility, the second
// minimises the cost with the artificial columns penalised by a big M.
func (g *Gonum) run(m *lpmodel.Model) ([]float64, error) {
	p, err := g.standardForm(m)
	if err != nil {
		return nil, err
	}
	var z []float64
	if len(p.rows) > 0 {
		if z, err = g.simplexPhases(p); err != nil {
			return nil, err
		}
	}
	x := make([]float64, len(p.cols))
	for j, c := range p.cols {
		if !c.used {
			x[j] = c.value
			continue
		}
		x[j] = c.shift + z[c.pos]
		if c.neg >= 0 {
			x[j] -= z[c.neg]
		}
	}
	return x, nil
}

func (g *Gonum) simplexPhases(p standard) ([]float64, error) {
	a, basis := p.matrix()
	rows := len(p.rows)
	g.log.Debugf("solving lp: %d columns, %d rows", p.k, rows)

	feasTol := 1e3 * g.tol
	phase1 := make([]float64, p.k+rows)
	for i := p.k; i < len(phase1); i++ {
		phase1[i] = 1
	}
	infeas, _, err := simplex(phase1, a, p.b, g.tol, slices.Clone(basis))
	if err != nil {
		return nil, fmt.Errorf("solver: feasibility phase: %w", err)
	}
	if infeas > feasTol {
		return nil, fmt.Errorf("%w: residual %g", ErrInfeasible, infeas)
	}

	bigM := 1.0
	for _, c := range p.cost {
		bigM = math.Max(bigM, math.Abs(c))
	}
	bigM *= bigMFactor
	phase2 := make([]float64, p.k+rows)
	copy(phase2, p.cost)
	for i := p.k; i < len(phase2); i++ {
		phase2[i] = bigM
	}
	_, z, err := simplex(phase2, a, p.b, g.tol, slices.Clone(basis))
	switch {
	case errors.Is(err, lp.ErrUnbounded):
		return nil, fmt.Errorf("%w: %w", ErrUnbounded, err)
	case err != nil:
		return nil, fmt.Errorf("solver: %w", err)
	}
	for i := p.k; i < len(z); i++ {
		if z[i] > feasTol {
			return nil, fmt.Errorf("solver: artificial column %d at %g, costs too large for big M %g", i-p.k, z[i], bigM)
		}
	}
	return z, nil
}

func (g *Gonum) solution(m *lpmodel.Model, x []float64) Solution {
	s := Solution{X: x}
	for i, v := range m.Variables() {
		s.Objective += v.Cost * x[i]
		if v.Kind == lpmodel.Binary {
			if f := x[i]; math.Abs(f) > g.tol && math.Abs(f-1) > g.tol {
				s.Fractional = append(s.Fractional, lpmodel.VarID(i))
			}
		}
	}
	if len(s.Fractional) > 0 {
		g.log.Warnf("relaxed solution has %d fractional binaries", len(s.Fractional))
	}
	return s
}
