package audit

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chpcoupling/core/logger"
	"github.com/kilianp07/chpcoupling/core/model"
)

// DefaultTolerance is the relative tolerance used for ratio and capacity
// comparisons.
const DefaultTolerance = 1e-4

// Auditor statically certifies whether the coupling constraints of a pair
// are satisfiable at full load, at the minimum-commitment boundary and when
// switched off. It never changes the pair.
type Auditor struct {
	tol   float64
	log   logger.Logger
	now   func() time.Time
	newID func() uuid.UUID
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithTolerance overrides DefaultTolerance.
func WithTolerance(tol float64) Option {
	return func(a *Auditor) {
		if tol > 0 {
			a.tol = tol
		}
	}
}

// WithLogger sets the logger used for violations.
func WithLogger(l logger.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.log = l
		}
	}
}

// WithClock sets the clock used for Report.CheckedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

// WithIDs sets the report ID generator.
func WithIDs(f func() uuid.UUID) Option {
	return func(a *Auditor) { a.newID = f }
}

// New returns an Auditor.
func New(opts ...Option) *Auditor {
	a := &Auditor{tol: DefaultTolerance, log: logger.Nop{}, now: time.Now, newID: uuid.New}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Audit checks pair and returns its report. Only invalid parameters produce
// an error; everything else is reported as a violation.
func (a *Auditor) Audit(pair model.Pair) (Report, error) {
	if err := pair.Validate(); err != nil {
		return Report{}, err
	}
	c := a.newCheck(pair)
	var vs []Violation
	vs = append(vs, c.sizing()...)
	vs = append(vs, c.fullLoad()...)
	vs = append(vs, c.minimumLoad()...)
	vs = append(vs, c.off()...)

	for _, v := range vs {
		a.log.Warnf("pair %s: %s", pair.Name, v)
	}
	return Report{
		ID:           a.newID(),
		Pair:         pair.Name,
		Formulation:  pair.Formulation(),
		Synchronized: pair.Synchronized(),
		CheckedAt:    a.now(),
		Violations:   vs,
	}, nil
}

// check carries the derived quantities of one audit.
type check struct {
	a    *Auditor
	pair model.Pair
	ce   float64 // electrical input capacity
	ct   float64 // thermal input capacity
	pNom float64 // electrical output at nominal capacity
}

// interval is a range of thermal input power.
type interval struct{ lo, hi float64 }

func (a *Auditor) newCheck(p model.Pair) check {
	ce, ct := referenceCapacities(p)
	return check{a: a, pair: p, ce: ce, ct: ct, pNom: p.Electrical.Output(ce)}
}

// referenceCapacities resolves the input capacities the audit works with.
// An extendable capacity follows from its partner through the sizing
// constraint.
func referenceCapacities(p model.Pair) (ce, ct float64) {
	el, th := p.Electrical, p.Thermal
	f := p.SizingFactor()
	switch {
	case !el.Extendable && !th.Extendable:
		return el.NominalCapacity, th.NominalCapacity
	case !el.Extendable:
		return el.NominalCapacity, f * el.NominalCapacity
	case !th.Extendable:
		return th.NominalCapacity / f, th.NominalCapacity
	default:
		ce = el.ReferenceCapacity()
		if th.CapacityMax > 0 && f*ce > th.CapacityMax {
			ce = th.CapacityMax / f
		}
		return ce, f * ce
	}
}

func (c check) near(got, want float64) bool {
	return math.Abs(got-want) <= c.a.tol*math.Max(1, math.Abs(want))
}

// slack is the absolute tolerance for thermal input comparisons.
func (c check) slack() float64 {
	return c.a.tol * math.Max(1, c.ct)
}

// thermalMin is the smallest thermal input when the thermal branch is on.
func (c check) thermalMin() float64 {
	return c.pair.Thermal.MinimumInput(c.ct)
}

// thermalCanIdle reports whether the thermal branch may sit at zero while
// the electrical branch runs.
func (c check) thermalCanIdle() bool {
	th := c.pair.Thermal
	return th.MinLoadFraction == 0 || (th.Committable && !c.pair.Synchronized())
}

// implied returns the thermal input range the formulation allows at
// electrical output pOut.
func (c check) implied(pOut float64) interval {
	p := c.pair
	eta := p.Thermal.Efficiency
	switch p.Formulation() {
	case model.FormulationBanded:
		low, high := p.BandLimits()
		return interval{
			lo: low * pOut / eta,
			hi: (high*pOut + p.ThermalBias*(c.pNom-pOut)) / eta,
		}
	case model.FormulationExtraction:
		ex := p.Extraction
		hi := pOut / ex.BackpressureSlope
		if ex.MarginalHeatLoss > 0 {
			hi = math.Min(hi, (c.pNom-pOut)/ex.MarginalHeatLoss)
		}
		return interval{lo: 0, hi: math.Max(hi, 0) / eta}
	default:
		q := p.HeatToPowerRatio * pOut / eta
		return interval{lo: q, hi: q}
	}
}

// sizing compares the constant of the nominal-capacity constraint, or the
// ratio implied by fixed capacities, with the dispatch ratio.
func (c check) sizing() []Violation {
	p := c.pair
	el, th := p.Electrical, p.Thermal
	rho := p.HeatToPowerRatio
	var vs []Violation

	if !el.Extendable && !th.Extendable {
		implied := th.Output(th.NominalCapacity) / el.Output(el.NominalCapacity)
		if !c.near(implied, rho) {
			vs = append(vs, Violation{
				Kind:      ParameterMismatch,
				Point:     FullLoad,
				Branch:    th.Name,
				Invariant: "nominal output ratio equals heat_to_power_ratio",
				Gap:       implied - rho,
				Detail: fmt.Sprintf("fixed capacities give Q/P = %.4f at full load but dispatch requires %.4f",
					implied, rho),
			})
		}
		return vs
	}

	if s := p.Sizing(); !c.near(s, rho) {
		vs = append(vs, Violation{
			Kind:      ParameterMismatch,
			Point:     FullLoad,
			Branch:    th.Name,
			Invariant: "sizing ratio equals heat_to_power_ratio",
			Gap:       s - rho,
			Detail: fmt.Sprintf("capacities are sized with Q/P = %.4f but dispatched with %.4f; the pair cannot reach full load on both branches",
				s, rho),
		})
	}

	f := p.SizingFactor()
	switch {
	case el.Extendable && th.Extendable:
		if th.CapacityMax > 0 && f*el.CapacityMin > th.CapacityMax*(1+c.a.tol) {
			vs = append(vs, Violation{
				Kind: CapacityShortfall, Point: FullLoad, Branch: th.Name,
				Invariant: "sizing keeps thermal capacity within capacity_max",
				Gap:       th.CapacityMax - f*el.CapacityMin,
			})
		}
		if el.CapacityMax > 0 && th.CapacityMin > f*el.CapacityMax*(1+c.a.tol) {
			vs = append(vs, Violation{
				Kind: CapacityShortfall, Point: FullLoad, Branch: el.Name,
				Invariant: "sizing keeps electrical capacity within capacity_max",
				Gap:       el.CapacityMax - th.CapacityMin/f,
			})
		}
	case th.Extendable:
		if v, ok := capacityBounds(th, c.ct, c.a.tol); ok {
			vs = append(vs, v)
		}
	case el.Extendable:
		if v, ok := capacityBounds(el, c.ce, c.a.tol); ok {
			vs = append(vs, v)
		}
	}
	return vs
}

// capacityBounds checks a capacity pinned by the sizing constraint against
// the branch bounds.
func capacityBounds(b model.Branch, required, tol float64) (Violation, bool) {
	v := Violation{Kind: CapacityShortfall, Point: FullLoad, Branch: b.Name, Invariant: "sized capacity within [capacity_min, capacity_max]"}
	switch {
	case b.CapacityMax > 0 && required > b.CapacityMax*(1+tol):
		v.Gap = b.CapacityMax - required
	case required < b.CapacityMin*(1-tol):
		v.Gap = b.CapacityMin - required
	default:
		return Violation{}, false
	}
	v.Detail = fmt.Sprintf("sizing constraint requires %s capacity %.4g", b.Name, required)
	return v, true
}

// fullLoad checks the electrical branch at nominal output.
func (c check) fullLoad() []Violation {
	th := c.pair.Thermal
	iv := c.implied(c.pNom)
	if iv.lo > c.ct+c.slack() {
		return []Violation{{
			Kind:      CapacityShortfall,
			Point:     FullLoad,
			Branch:    th.Name,
			Invariant: "ratio-implied thermal input <= thermal nominal capacity",
			Gap:       c.ct - iv.lo,
			Detail: fmt.Sprintf("electrical full load needs %.4g thermal input, capacity is %.4g",
				iv.lo, c.ct),
		}}
	}
	if iv.hi < c.thermalMin()-c.slack() && !(c.thermalCanIdle() && iv.lo <= c.slack()) {
		return []Violation{{
			Kind:      ConflictingMinimumLoad,
			Point:     FullLoad,
			Branch:    th.Name,
			Invariant: "thermal minimum load reachable at electrical full load",
			Gap:       c.thermalMin() - iv.hi,
		}}
	}
	return nil
}

// minimumLoad checks the instant the electrical branch is committed at its
// minimum load, and for synchronised pairs whether the thermal minimum-load
// point is reachable at all.
func (c check) minimumLoad() []Violation {
	p := c.pair
	el, th := p.Electrical, p.Thermal
	if el.MinLoadFraction == 0 {
		return nil
	}
	pMin := el.Output(el.MinimumInput(c.ce))
	iv := c.implied(pMin)
	tmin := c.thermalMin()
	tol := c.slack()

	if iv.lo > c.ct+tol {
		return []Violation{{
			Kind:      ConflictingMinimumLoad,
			Point:     MinimumLoad,
			Branch:    th.Name,
			Invariant: "ratio-implied thermal input within thermal capacity at electrical minimum load",
			Gap:       c.ct - iv.lo,
			Detail: fmt.Sprintf("electrical minimum load %.4g needs at least %.4g thermal input, capacity is %.4g",
				pMin, iv.lo, c.ct),
		}}
	}

	if p.Formulation() == model.FormulationExact {
		if tmin == 0 {
			return nil
		}
		if iv.lo < tmin-tol {
			return []Violation{{
				Kind:      ConflictingMinimumLoad,
				Point:     MinimumLoad,
				Branch:    th.Name,
				Invariant: "ratio-implied thermal input >= thermal minimum load",
				Gap:       tmin - iv.lo,
				Detail: fmt.Sprintf("electrical minimum load pins thermal input at %.4g, below the thermal minimum %.4g; relax the thermal minimum_load_fraction to 0",
					iv.lo, tmin),
			}}
		}
		c.a.log.Infof("pair %s: thermal minimum load is redundant under the exact ratio and can be relaxed to 0", p.Name)
		return nil
	}

	var vs []Violation
	if iv.hi < tmin-tol && !(c.thermalCanIdle() && iv.lo <= tol) {
		vs = append(vs, Violation{
			Kind:      ConflictingMinimumLoad,
			Point:     MinimumLoad,
			Branch:    th.Name,
			Invariant: "coupling band overlaps thermal operating range at electrical minimum load",
			Gap:       tmin - iv.hi,
			Detail: fmt.Sprintf("band allows thermal input [%.4g, %.4g], thermal range is [%.4g, %.4g]",
				iv.lo, iv.hi, tmin, c.ct),
		})
	}
	if p.Synchronized() && tmin > 0 && tmin < iv.lo-tol {
		vs = append(vs, Violation{
			Kind:      ConflictingMinimumLoad,
			Point:     MinimumLoad,
			Branch:    th.Name,
			Invariant: "thermal minimum-load point reachable under synchronized commitment",
			Gap:       tmin - iv.lo,
			Detail: fmt.Sprintf("with both branches on, the electrical minimum %.4g forces thermal input >= %.4g; the independent thermal minimum %.4g conflicts with it",
				el.MinimumInput(c.ce), iv.lo, tmin),
		})
	}
	return vs
}

// off checks whether both branches can be switched off together.
func (c check) off() []Violation {
	p := c.pair
	el, th := p.Electrical, p.Thermal
	var vs []Violation

	if p.SynchronizeCommitment && !p.Synchronized() {
		branch := th.Name
		if !el.Committable {
			branch = el.Name
		}
		vs = append(vs, Violation{
			Kind:      ParameterMismatch,
			Point:     Off,
			Branch:    branch,
			Invariant: "synchronize_commitment requires both branches committable",
			Detail:    fmt.Sprintf("%s has no status variable; no synchronisation constraint is emitted", branch),
		})
	}

	if !el.Committable && el.MinLoadFraction > 0 && th.Committable {
		lo := c.implied(el.Output(el.MinimumInput(c.ce))).lo
		if lo > c.slack() {
			vs = append(vs, Violation{
				Kind:      ConflictingMinimumLoad,
				Point:     Off,
				Branch:    th.Name,
				Invariant: "committable branch can be switched off",
				Gap:       -lo,
				Detail:    fmt.Sprintf("%s always runs at >= %.4g and forces %s on", el.Name, el.MinimumInput(c.ce), th.Name),
			})
		}
	}
	if !th.Committable && th.MinLoadFraction > 0 && el.Committable {
		in := c.forcedElectricInput(th.Output(c.thermalMin()))
		if in > c.a.tol*math.Max(1, c.ce) {
			vs = append(vs, Violation{
				Kind:      ConflictingMinimumLoad,
				Point:     Off,
				Branch:    el.Name,
				Invariant: "committable branch can be switched off",
				Gap:       -in,
				Detail:    fmt.Sprintf("%s always runs at >= %.4g and forces %s on", th.Name, c.thermalMin(), el.Name),
			})
		}
	}
	return vs
}

// forcedElectricInput is the smallest electrical input compatible with heat
// output q. It is +Inf when no electrical level allows q.
func (c check) forcedElectricInput(q float64) float64 {
	p := c.pair
	var out float64
	switch p.Formulation() {
	case model.FormulationBanded:
		_, high := p.BandLimits()
		bias := p.ThermalBias
		switch {
		case q <= bias*c.pNom:
			out = 0
		case high > bias:
			out = (q - bias*c.pNom) / (high - bias)
		default:
			return math.Inf(1)
		}
	case model.FormulationExtraction:
		out = p.Extraction.BackpressureSlope * q
	default:
		out = q / p.HeatToPowerRatio
	}
	return out / p.Electrical.Efficiency
}
