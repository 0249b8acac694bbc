package audit

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/chpcoupling/core/model"
)

const (
	etaE = 0.38
	etaT = 0.48
)

// minimalPair is the fixed 10 MW generator/boiler pair of the minimal
// feasibility scenario.
func minimalPair() model.Pair {
	return model.Pair{
		Name:                  "bhkw",
		Electrical:            model.Branch{Name: "chp_generator", Efficiency: etaE, NominalCapacity: 10, MinLoadFraction: 0.40, Committable: true},
		Thermal:               model.Branch{Name: "chp_boiler", Efficiency: etaT, NominalCapacity: 10, MinLoadFraction: 0.10, Committable: true},
		HeatToPowerRatio:      etaT / etaE,
		SynchronizeCommitment: true,
	}
}

func newAuditor() *Auditor {
	fixed := uuid.MustParse("6f1c2b1e-6a57-4b7e-9d55-3c1e0c8b2a10")
	return New(
		WithClock(func() time.Time { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }),
		WithIDs(func() uuid.UUID { return fixed }),
	)
}

func TestAuditBandedSynchronizedConflict(t *testing.T) {
	pair := minimalPair()
	pair.CouplingBand = 0.15
	pair.ThermalBias = 0.20

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.False(t, rep.IsSatisfiable())
	assert.Equal(t, model.FormulationBanded, rep.Formulation)
	assert.True(t, rep.Synchronized)

	v, ok := rep.Find(ConflictingMinimumLoad, MinimumLoad)
	require.True(t, ok, "expected ConflictingMinimumLoad, got %v", rep.Violations)
	assert.Equal(t, "chp_boiler", v.Branch)

	// P_min = eta_e * 0.40 * 10; Q_min = rho (1 - band) P_min
	pMin := etaE * 0.40 * 10
	requiredThermalInput := pair.HeatToPowerRatio * (1 - 0.15) * pMin / etaT
	want := 0.10*10 - requiredThermalInput
	assert.InDelta(t, want, v.Gap, 1e-9)
	assert.InDelta(t, -2.4, v.Gap, 1e-9)
	assert.Len(t, rep.Violations, 1)
}

func TestAuditBandedConflictWithRoundedRatio(t *testing.T) {
	pair := minimalPair()
	pair.HeatToPowerRatio = 1.2632
	pair.CouplingBand = 0.15

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	v, ok := rep.Find(ConflictingMinimumLoad, MinimumLoad)
	require.True(t, ok)
	assert.InDelta(t, 0.10*10-1.2632*0.85*etaE*4/etaT, v.Gap, 1e-9)
	assert.False(t, rep.Has(ParameterMismatch))
}

func TestAuditExactRelaxedThermalMinimum(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.MinLoadFraction = 0

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.True(t, rep.IsSatisfiable(), "unexpected violations: %v", rep.Violations)
	assert.Empty(t, rep.Violations)
	assert.Equal(t, model.FormulationExact, rep.Formulation)
}

func TestAuditExactRetainedThermalMinimumInsideRange(t *testing.T) {
	// The ratio pins the thermal input at 4.0 at electrical minimum load,
	// inside [1, 10]: redundant but consistent.
	rep, err := newAuditor().Audit(minimalPair())
	require.NoError(t, err)
	assert.True(t, rep.IsSatisfiable(), "unexpected violations: %v", rep.Violations)
}

func TestAuditExactThermalMinimumAboveImplied(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.MinLoadFraction = 0.5

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	v, ok := rep.Find(ConflictingMinimumLoad, MinimumLoad)
	require.True(t, ok)
	// thermal minimum 5.0, ratio-implied 4.0
	assert.InDelta(t, 1.0, v.Gap, 1e-9)
}

func TestAuditSizingRatioMismatch(t *testing.T) {
	pair := minimalPair()
	pair.Electrical.Extendable, pair.Electrical.NominalCapacity, pair.Electrical.CapacityMax = true, 0, 80
	pair.Thermal.Extendable, pair.Thermal.NominalCapacity, pair.Thermal.CapacityMax = true, 0, 80
	pair.Thermal.MinLoadFraction = 0
	pair.SizingRatio = 1.2

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	v, ok := rep.Find(ParameterMismatch, FullLoad)
	require.True(t, ok)
	assert.InDelta(t, 1.2-pair.HeatToPowerRatio, v.Gap, 1e-12)

	// sized at 0.95 x 80 = 76, dispatch needs 80 at full load
	short, ok := rep.Find(CapacityShortfall, FullLoad)
	require.True(t, ok)
	assert.InDelta(t, -4, short.Gap, 1e-9)
}

func TestAuditFixedCapacityMismatch(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.NominalCapacity = 8
	pair.Thermal.MinLoadFraction = 0

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	v, ok := rep.Find(ParameterMismatch, FullLoad)
	require.True(t, ok)
	assert.InDelta(t, etaT*8/(etaE*10)-pair.HeatToPowerRatio, v.Gap, 1e-12)
	assert.True(t, rep.Has(CapacityShortfall))
}

func TestAuditMinimumLoadExceedsThermalCapacity(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.NominalCapacity = 3
	pair.Thermal.MinLoadFraction = 0

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	v, ok := rep.Find(ConflictingMinimumLoad, MinimumLoad)
	require.True(t, ok)
	assert.InDelta(t, 3-4.0, v.Gap, 1e-9)
}

func TestAuditExtractionMinimumLoad(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.MinLoadFraction = 0.5
	pair.Extraction = &model.Extraction{BackpressureSlope: 1, MarginalHeatLoss: 0.1}

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.Equal(t, model.FormulationExtraction, rep.Formulation)
	v, ok := rep.Find(ConflictingMinimumLoad, MinimumLoad)
	require.True(t, ok)
	// backpressure caps heat at P_min = 1.52, i.e. 1.52/0.48 thermal input
	assert.InDelta(t, 5-etaE*4/etaT, v.Gap, 1e-9)
}

func TestAuditExtractionIdleThermal(t *testing.T) {
	pair := minimalPair()
	pair.SynchronizeCommitment = false
	pair.Extraction = &model.Extraction{BackpressureSlope: 1, MarginalHeatLoss: 0.1}

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.True(t, rep.IsSatisfiable(), "unexpected violations: %v", rep.Violations)
}

func TestAuditOffPoint(t *testing.T) {
	pair := minimalPair()
	pair.Thermal.Committable = false
	pair.Thermal.MinLoadFraction = 0.2

	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)

	mismatch, ok := rep.Find(ParameterMismatch, Off)
	require.True(t, ok)
	assert.Equal(t, "chp_boiler", mismatch.Branch)

	v, ok := rep.Find(ConflictingMinimumLoad, Off)
	require.True(t, ok)
	assert.Equal(t, "chp_generator", v.Branch)
	// Q = 0.48 * 2 = 0.96 forces P = 0.76, input 2.0
	assert.InDelta(t, -2.0, v.Gap, 1e-9)
}

func TestAuditRejectsInvalidPair(t *testing.T) {
	pair := minimalPair()
	pair.CouplingBand = 1.5
	_, err := newAuditor().Audit(pair)
	assert.True(t, errors.Is(err, model.ErrParameter))
}

func TestAuditDoesNotMutatePair(t *testing.T) {
	pair := minimalPair()
	pair.CouplingBand = 0.15
	before := pair
	_, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.Equal(t, before, pair)
}

func TestReportString(t *testing.T) {
	pair := minimalPair()
	pair.CouplingBand = 0.15
	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)
	out := rep.String()
	assert.True(t, strings.HasPrefix(out, "pair bhkw [banded, synchronized=true]: NOT satisfiable (1 violations)"))
	assert.Contains(t, out, "ConflictingMinimumLoad")
	assert.Contains(t, out, "minimum_load")

	pair.CouplingBand = 0
	pair.Thermal.MinLoadFraction = 0
	rep, err = newAuditor().Audit(pair)
	require.NoError(t, err)
	assert.Equal(t, "pair bhkw [exact, synchronized=true]: satisfiable\n", rep.String())
}

func TestExplain(t *testing.T) {
	solverErr := errors.New("lp infeasible")
	assert.NoError(t, Explain(Report{}, nil))

	pair := minimalPair()
	pair.CouplingBand = 0.15
	rep, err := newAuditor().Audit(pair)
	require.NoError(t, err)

	err = Explain(rep, solverErr)
	var sie *SolverInfeasibleError
	require.True(t, errors.As(err, &sie))
	assert.True(t, errors.Is(err, solverErr))
	assert.Contains(t, err.Error(), "ConflictingMinimumLoad")
	assert.Equal(t, rep.ID, sie.Report.ID)

	ok := Report{Pair: "bhkw"}
	err = Explain(ok, solverErr)
	assert.True(t, errors.Is(err, solverErr))
	assert.False(t, errors.As(err, &sie))
	assert.Contains(t, err.Error(), "found no coupling violation")
}

func TestAuditAll(t *testing.T) {
	bad := minimalPair()
	bad.Name = "bad"
	bad.HeatToPowerRatio = -1
	banded := minimalPair()
	banded.Name = "banded"
	banded.CouplingBand = 0.15
	exact := minimalPair()
	exact.Name = "exact"
	exact.Thermal.MinLoadFraction = 0

	reps, err := newAuditor().AuditAll(context.Background(), []model.Pair{banded, bad, exact})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrParameter))
	require.Len(t, reps, 3)
	assert.Equal(t, "banded", reps[0].Pair)
	assert.False(t, reps[0].IsSatisfiable())
	assert.Empty(t, reps[1].Pair)
	assert.Equal(t, "exact", reps[2].Pair)
	assert.True(t, reps[2].IsSatisfiable())
}

func TestAuditAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newAuditor().AuditAll(ctx, []model.Pair{minimalPair()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckProfile(t *testing.T) {
	pair := minimalPair()
	pair.HeatToPowerRatio = 1.2
	pair.CouplingBand = 0.3
	pair.Thermal.NominalCapacity = 10 * 1.2 * etaE / etaT

	a := newAuditor()
	rep, err := a.CheckProfile(pair, []float64{10, 10, 10, 0}, []float64{12, 16, 5, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.84, rep.Low, 1e-12)
	assert.InDelta(t, 1.56, rep.High, 1e-12)
	assert.Equal(t, 1, rep.Compatible)
	assert.True(t, rep.Steps[0].Compatible)
	assert.False(t, rep.Steps[1].Compatible)
	assert.True(t, math.IsNaN(rep.Steps[3].Ratio))

	pair.CouplingBand = 0
	rep, err = a.CheckProfile(pair, []float64{10, 10}, []float64{12, 12.5})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Compatible)

	_, err = a.CheckProfile(pair, []float64{1}, []float64{1, 2})
	assert.Error(t, err)
}
