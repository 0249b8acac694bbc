package coupling

import (
	"fmt"

	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

// Constraint names. Per-step constraints carry a "[t]" suffix and every name
// is prefixed with the pair name.
const (
	NameNominalRatio  = "chp-nominal-capacity-ratio"
	NameFixedRatio    = "chp-fixed-power-ratio"
	NameLowerCoupling = "chp-lower-coupling"
	NameUpperCoupling = "chp-upper-coupling"
	NameBackpressure  = "chp-backpressure"
	NameIsoFuelLine   = "chp-top-iso-fuel-line"
)

// RatioConstraints builds the heat-to-power constraints of a pair without
// touching any model. The result depends only on its arguments.
func RatioConstraints(pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if err := vars.validate(pair); err != nil {
		return nil, err
	}

	var out []lpmodel.Constraint
	if c, ok := nominalConstraint(pair, vars); ok {
		out = append(out, c)
	}
	for t := 0; t < vars.Horizon(); t++ {
		switch pair.Formulation() {
		case model.FormulationExact:
			out = append(out, exactStep(pair, vars, t))
		case model.FormulationBanded:
			out = append(out, bandedSteps(pair, vars, t)...)
		case model.FormulationExtraction:
			out = append(out, extractionSteps(pair, vars, t)...)
		}
	}
	return out, nil
}

// EmitRatio builds the ratio constraints and adds them to c. Nothing is added
// when the parameters are invalid.
func EmitRatio(c lpmodel.Collector, pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	cs, err := RatioConstraints(pair, vars)
	if err != nil {
		return nil, err
	}
	return cs, addAll(c, cs)
}

// nominalConstraint ties the design capacities so the output capacities
// stand in the sizing ratio:
//
//	eta_t * Ct - s * eta_e * Ce = 0
//
// Fixed capacities move to the right-hand side. When both are fixed there is
// nothing to constrain.
func nominalConstraint(pair model.Pair, vars PairVars) (lpmodel.Constraint, bool) {
	el, th := pair.Electrical, pair.Thermal
	s := pair.Sizing()
	c := lpmodel.Constraint{Name: pair.Name + "/" + NameNominalRatio, Sense: lpmodel.Equal}
	if th.Extendable {
		c.Terms = append(c.Terms, lpmodel.Term{Var: vars.Thermal.NominalCapacity, Coef: th.Efficiency})
	} else {
		c.RHS -= th.Efficiency * th.NominalCapacity
	}
	if el.Extendable {
		c.Terms = append(c.Terms, lpmodel.Term{Var: vars.Electrical.NominalCapacity, Coef: -s * el.Efficiency})
	} else {
		c.RHS += s * el.Efficiency * el.NominalCapacity
	}
	return c, len(c.Terms) > 0
}

// exactStep: eta_t * pt(t) - rho * eta_e * pe(t) = 0.
func exactStep(pair model.Pair, vars PairVars, t int) lpmodel.Constraint {
	return lpmodel.Constraint{
		Name: stepName(pair, NameFixedRatio, t),
		Terms: []lpmodel.Term{
			{Var: vars.Thermal.InputPower[t], Coef: pair.Thermal.Efficiency},
			{Var: vars.Electrical.InputPower[t], Coef: -pair.HeatToPowerRatio * pair.Electrical.Efficiency},
		},
		Sense: lpmodel.Equal,
	}
}

// bandedSteps:
//
//	Q(t) >= rho(1-b) P(t)
//	Q(t) <= rho(1+b) P(t) + bias (P_nom - P(t))
func bandedSteps(pair model.Pair, vars PairVars, t int) []lpmodel.Constraint {
	el, th := pair.Electrical, pair.Thermal
	low, high := pair.BandLimits()
	pe, pt := vars.Electrical.InputPower[t], vars.Thermal.InputPower[t]

	lower := lpmodel.Constraint{
		Name: stepName(pair, NameLowerCoupling, t),
		Terms: []lpmodel.Term{
			{Var: pt, Coef: th.Efficiency},
			{Var: pe, Coef: -low * el.Efficiency},
		},
		Sense: lpmodel.GreaterEqual,
	}
	upper := lpmodel.Constraint{
		Name: stepName(pair, NameUpperCoupling, t),
		Terms: []lpmodel.Term{
			{Var: pt, Coef: th.Efficiency},
			{Var: pe, Coef: (pair.ThermalBias - high) * el.Efficiency},
		},
		Sense: lpmodel.LessEqual,
	}
	if pair.ThermalBias > 0 {
		if el.Extendable {
			upper.Terms = append(upper.Terms, lpmodel.Term{Var: vars.Electrical.NominalCapacity, Coef: -pair.ThermalBias * el.Efficiency})
		} else {
			upper.RHS = pair.ThermalBias * el.Efficiency * el.NominalCapacity
		}
	}
	return []lpmodel.Constraint{lower, upper}
}

// extractionSteps:
//
//	c_b Q(t) - P(t) <= 0
//	P(t) + c_v Q(t) - eta_e Ce <= 0
func extractionSteps(pair model.Pair, vars PairVars, t int) []lpmodel.Constraint {
	el, th, ex := pair.Electrical, pair.Thermal, pair.Extraction
	pe, pt := vars.Electrical.InputPower[t], vars.Thermal.InputPower[t]

	back := lpmodel.Constraint{
		Name: stepName(pair, NameBackpressure, t),
		Terms: []lpmodel.Term{
			{Var: pt, Coef: ex.BackpressureSlope * th.Efficiency},
			{Var: pe, Coef: -el.Efficiency},
		},
		Sense: lpmodel.LessEqual,
	}
	iso := lpmodel.Constraint{
		Name: stepName(pair, NameIsoFuelLine, t),
		Terms: []lpmodel.Term{
			{Var: pe, Coef: el.Efficiency},
			{Var: pt, Coef: ex.MarginalHeatLoss * th.Efficiency},
		},
		Sense: lpmodel.LessEqual,
	}
	if el.Extendable {
		iso.Terms = append(iso.Terms, lpmodel.Term{Var: vars.Electrical.NominalCapacity, Coef: -el.Efficiency})
	} else {
		iso.RHS = el.Efficiency * el.NominalCapacity
	}
	return []lpmodel.Constraint{back, iso}
}

func stepName(pair model.Pair, name string, t int) string {
	return fmt.Sprintf("%s/%s[%d]", pair.Name, name, t)
}

func addAll(c lpmodel.Collector, cs []lpmodel.Constraint) error {
	for _, con := range cs {
		if err := c.Add(con); err != nil {
			return err
		}
	}
	return nil
}
