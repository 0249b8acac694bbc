package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/chpcoupling/core/audit"
	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
	"github.com/kilianp07/chpcoupling/core/network"
)

func exactPair() model.Pair {
	return model.Pair{
		Name:                  "bhkw",
		Electrical:            model.Branch{Name: "chp_generator", Efficiency: 0.38, NominalCapacity: 10, MinLoadFraction: 0.4, Committable: true},
		Thermal:               model.Branch{Name: "chp_boiler", Efficiency: 0.48, NominalCapacity: 10, Committable: true},
		HeatToPowerRatio:      0.48 / 0.38,
		SynchronizeCommitment: true,
	}
}

func TestSolveSmallLP(t *testing.T) {
	// min -x - y s.t. x + y <= 4, x - y == 1, 0 <= x, y <= 3
	m := lpmodel.New()
	x := m.AddVariable(lpmodel.Variable{Name: "x", Upper: 3, Cost: -1})
	y := m.AddVariable(lpmodel.Variable{Name: "y", Upper: 3, Cost: -1})
	require.NoError(t, m.Add(lpmodel.Constraint{Name: "cap", Terms: []lpmodel.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: lpmodel.LessEqual, RHS: 4}))
	require.NoError(t, m.Add(lpmodel.Constraint{Name: "diff", Terms: []lpmodel.Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}}, Sense: lpmodel.Equal, RHS: 1}))

	sol, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, sol.Value(x), 1e-6)
	assert.InDelta(t, 1.5, sol.Value(y), 1e-6)
	assert.InDelta(t, -4, sol.Objective, 1e-6)
}

func TestSolveNegativeLowerBound(t *testing.T) {
	m := lpmodel.New()
	x := m.AddVariable(lpmodel.Variable{Name: "x", Lower: -5, Upper: 5, Cost: 1})
	sol, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, -5, sol.Value(x), 1e-6)
}

func TestSolveExactRatioHolds(t *testing.T) {
	pair := exactPair()
	s := network.Scenario{
		ElectricDemand: []float64{3, 2},
		HeatDemand:     []float64{3.8, 2.6},
		FuelCost:       30,
	}
	plant, err := s.Build(pair, coupling.NewGenerator(nil))
	require.NoError(t, err)

	sol, err := NewGonum(0, nil).Solve(context.Background(), plant.Model)
	require.NoError(t, err)

	for _, c := range plant.Model.Constraints() {
		assert.True(t, lpmodel.Satisfied(c, sol.X, 1e-6), "violated %s", plant.Model.Format(c))
	}
	for step, d := range plant.Read(sol.X) {
		require.Greater(t, d.ElectricOutput, 0.0)
		assert.InDelta(t, pair.HeatToPowerRatio, d.HeatOutput/d.ElectricOutput, 1e-6, "step %d", step)
	}
	// electricity binds first: 3 / 0.38 of fuel on the generator
	d := plant.Read(sol.X)[0]
	assert.InDelta(t, 3/0.38, d.ElectricInput, 1e-6)
	assert.InDelta(t, 0, d.UnservedElectric, 1e-6)
}

func TestSolveInfeasibleExplainedByAudit(t *testing.T) {
	pair := exactPair()
	pair.Thermal.NominalCapacity = 2

	s := network.Scenario{
		ElectricDemand: []float64{5},
		HeatDemand:     []float64{5},
		Commitment:     []float64{1},
	}
	plant, err := s.Build(pair, coupling.NewGenerator(nil))
	require.NoError(t, err)

	_, solveErr := NewGonum(0, nil).Solve(context.Background(), plant.Model)
	require.Error(t, solveErr)

	rep, err := audit.New().Audit(pair)
	require.NoError(t, err)
	assert.True(t, rep.Has(audit.ConflictingMinimumLoad))

	var sie *audit.SolverInfeasibleError
	require.True(t, errors.As(audit.Explain(rep, solveErr), &sie))
	assert.ErrorIs(t, sie, solveErr)
}

func TestSolveInconsistentBounds(t *testing.T) {
	m := lpmodel.New()
	m.AddVariable(lpmodel.Variable{Name: "x", Lower: 2, Upper: 1})
	_, err := NewGonum(0, nil).Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveEmptyConstraint(t *testing.T) {
	m := lpmodel.New()
	x := m.Continuous("x", 0, 1)
	require.NoError(t, m.Add(lpmodel.Constraint{Name: "zero", Terms: []lpmodel.Term{{Var: x, Coef: 0}}, Sense: lpmodel.GreaterEqual, RHS: 1}))
	_, err := NewGonum(0, nil).Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolveRedundantEqualities(t *testing.T) {
	// the repeated row makes A rank deficient
	m := lpmodel.New()
	x := m.Continuous("x", 0, 10)
	y := m.Continuous("y", 0, 10)
	require.NoError(t, m.SetCost(x, 2))
	require.NoError(t, m.SetCost(y, 1))
	for _, name := range []string{"sum", "sum-again"} {
		require.NoError(t, m.Add(lpmodel.Constraint{Name: name, Terms: []lpmodel.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, Sense: lpmodel.Equal, RHS: 4}))
	}
	sol, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 0, sol.Value(x), 1e-6)
	assert.InDelta(t, 4, sol.Value(y), 1e-6)
	assert.InDelta(t, 4, sol.Objective, 1e-6)
}

func TestSolveReferencePairOverHorizon(t *testing.T) {
	pair := exactPair()
	s := network.Scenario{
		ElectricDemand: []float64{0, 3, 3.8, 1},
		HeatDemand:     []float64{0, 3.8, 4.8, 2},
		FuelCost:       30,
	}
	plant, err := s.Build(pair, coupling.NewGenerator(nil))
	require.NoError(t, err)

	sol, err := NewGonum(0, nil).Solve(context.Background(), plant.Model)
	require.NoError(t, err)
	for _, c := range plant.Model.Constraints() {
		assert.True(t, lpmodel.Satisfied(c, sol.X, 1e-6), "violated %s", plant.Model.Format(c))
	}
	for i, v := range plant.Model.Variables() {
		assert.GreaterOrEqual(t, sol.X[i], v.Lower-1e-6, v.Name)
		assert.LessOrEqual(t, sol.X[i], v.Upper+1e-6, v.Name)
	}
	assert.GreaterOrEqual(t, sol.Objective, 0.0)
}

func TestSolveChargesTransitions(t *testing.T) {
	pair := exactPair()
	pair.Electrical.StartUpCost = 50
	pair.Electrical.ShutDownCost = 20
	s := network.Scenario{
		ElectricDemand: []float64{0, 3, 0},
		HeatDemand:     []float64{0, 3 * 0.48 / 0.38, 0},
		Commitment:     []float64{0, 1, 0},
	}
	plant, err := s.Build(pair, coupling.NewGenerator(nil))
	require.NoError(t, err)

	sol, err := NewGonum(0, nil).Solve(context.Background(), plant.Model)
	require.NoError(t, err)
	ev := plant.Vars.Electrical
	assert.InDelta(t, 1, sol.Value(ev.ShutDown[0]), 1e-6)
	assert.InDelta(t, 1, sol.Value(ev.StartUp[1]), 1e-6)
	assert.InDelta(t, 1, sol.Value(ev.ShutDown[2]), 1e-6)
	assert.InDelta(t, 0, sol.Value(ev.StartUp[0]), 1e-6)
	assert.InDelta(t, 0, sol.Value(ev.StartUp[2]), 1e-6)
	assert.InDelta(t, 0, sol.Value(ev.ShutDown[1]), 1e-6)
	assert.InDelta(t, 50+20+20, sol.Objective, 1e-4)
}

func TestSolveHugeUpperBound(t *testing.T) {
	m := lpmodel.New()
	x := m.AddVariable(lpmodel.Variable{Name: "x", Upper: 1e30, Cost: 1})
	require.NoError(t, m.Add(lpmodel.Constraint{Name: "floor", Terms: []lpmodel.Term{{Var: x, Coef: 1}}, Sense: lpmodel.GreaterEqual, RHS: 1}))

	sol, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.InDelta(t, 1, sol.Value(x), 1e-6)
}

func TestSolveRecoversFromSimplexPanic(t *testing.T) {
	orig := simplex
	simplex = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		panic("lp: subcolumns of A for supplied initial basic singular")
	}
	t.Cleanup(func() { simplex = orig })

	m := lpmodel.New()
	x := m.Continuous("x", 0, 1)
	require.NoError(t, m.Add(lpmodel.Constraint{Name: "floor", Terms: []lpmodel.Term{{Var: x, Coef: 1}}, Sense: lpmodel.GreaterEqual, RHS: 1}))

	_, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subcolumns")
}

func TestSolveUnconstrainedVariables(t *testing.T) {
	m := lpmodel.New()
	x := m.AddVariable(lpmodel.Variable{Name: "x", Lower: 1, Upper: 2, Cost: -1})
	y := m.AddVariable(lpmodel.Variable{Name: "y", Lower: math.Inf(-1), Upper: 7})
	sol, err := NewGonum(0, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 2.0, sol.Value(x))
	assert.Equal(t, 7.0, sol.Value(y))

	m.AddVariable(lpmodel.Variable{Name: "z", Upper: math.Inf(1), Cost: -1})
	_, err = NewGonum(0, nil).Solve(context.Background(), m)
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestSolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGonum(0, nil).Solve(ctx, lpmodel.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveEmptyModel(t *testing.T) {
	_, err := NewGonum(0, nil).Solve(context.Background(), lpmodel.New())
	assert.Error(t, err)
}
