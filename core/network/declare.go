package network

import (
	"fmt"
	"math"

	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

// DefaultBigM bounds the input power of a committable, extendable branch
// without a capacity_max.
const DefaultBigM = 1e4

// Declare creates the decision variables of both branches of pair for
// horizon steps and adds the per-branch operating bounds. The returned
// handles are what the coupling generator consumes.
func Declare(m *lpmodel.Model, pair model.Pair, horizon int) (coupling.PairVars, error) {
	if horizon <= 0 {
		return coupling.PairVars{}, fmt.Errorf("pair %s: horizon must be positive, got %d", pair.Name, horizon)
	}
	if err := pair.Validate(); err != nil {
		return coupling.PairVars{}, err
	}
	el, err := declareBranch(m, pair.Electrical, horizon)
	if err != nil {
		return coupling.PairVars{}, err
	}
	th, err := declareBranch(m, pair.Thermal, horizon)
	if err != nil {
		return coupling.PairVars{}, err
	}
	return coupling.PairVars{Electrical: el, Thermal: th}, nil
}

func declareBranch(m *lpmodel.Model, b model.Branch, horizon int) (coupling.BranchVars, error) {
	vars := coupling.BranchVars{NominalCapacity: lpmodel.NoVar}
	if b.Extendable {
		upper := b.CapacityMax
		if upper == 0 {
			upper = math.Inf(1)
		}
		vars.NominalCapacity = m.AddVariable(lpmodel.Variable{
			Name:  fmt.Sprintf("p_nom[%s]", b.Name),
			Kind:  lpmodel.Continuous,
			Lower: b.CapacityMin,
			Upper: upper,
			Cost:  b.CapitalCost,
		})
	}
	for t := 0; t < horizon; t++ {
		lower, upper := 0.0, math.Inf(1)
		if !b.Extendable && !b.Committable {
			lower, upper = b.MinimumInput(b.NominalCapacity), b.NominalCapacity
		}
		p := m.AddVariable(lpmodel.Variable{
			Name:  fmt.Sprintf("p[%s,%d]", b.Name, t),
			Kind:  lpmodel.Continuous,
			Lower: lower,
			Upper: upper,
			Cost:  b.MarginalCost,
		})
		vars.InputPower = append(vars.InputPower, p)
		if b.Committable {
			vars.Status = append(vars.Status, m.Binary(fmt.Sprintf("status[%s,%d]", b.Name, t)))
		}
	}
	for t := range vars.InputPower {
		for _, c := range branchBounds(b, vars, t) {
			if err := m.Add(c); err != nil {
				return coupling.BranchVars{}, err
			}
		}
	}
	if b.Committable {
		if err := declareTransitions(m, b, &vars); err != nil {
			return coupling.BranchVars{}, err
		}
	}
	return vars, nil
}

// declareTransitions adds start-up and shut-down indicators for the costs
// the branch carries:
//
//	su(t) >= s(t) - s(t-1)
//	sd(t) >= s(t-1) - s(t)
//
// The branch counts as running before the first step, so starting on is
// free and starting off is a shut-down.
func declareTransitions(m *lpmodel.Model, b model.Branch, vars *coupling.BranchVars) error {
	for t, s := range vars.Status {
		if b.StartUpCost > 0 {
			su := m.AddVariable(lpmodel.Variable{Name: fmt.Sprintf("start_up[%s,%d]", b.Name, t), Upper: 1, Cost: b.StartUpCost})
			vars.StartUp = append(vars.StartUp, su)
			c := lpmodel.Constraint{
				Name:  fmt.Sprintf("%s/start-up[%d]", b.Name, t),
				Terms: []lpmodel.Term{{Var: su, Coef: 1}, {Var: s, Coef: -1}},
				Sense: lpmodel.GreaterEqual,
				RHS:   -1,
			}
			if t > 0 {
				c.Terms = append(c.Terms, lpmodel.Term{Var: vars.Status[t-1], Coef: 1})
				c.RHS = 0
			}
			if err := m.Add(c); err != nil {
				return err
			}
		}
		if b.ShutDownCost > 0 {
			sd := m.AddVariable(lpmodel.Variable{Name: fmt.Sprintf("shut_down[%s,%d]", b.Name, t), Upper: 1, Cost: b.ShutDownCost})
			vars.ShutDown = append(vars.ShutDown, sd)
			c := lpmodel.Constraint{
				Name:  fmt.Sprintf("%s/shut-down[%d]", b.Name, t),
				Terms: []lpmodel.Term{{Var: sd, Coef: 1}, {Var: s, Coef: 1}},
				Sense: lpmodel.GreaterEqual,
				RHS:   1,
			}
			if t > 0 {
				c.Terms = append(c.Terms, lpmodel.Term{Var: vars.Status[t-1], Coef: -1})
				c.RHS = 0
			}
			if err := m.Add(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// branchBounds returns the operating-range constraints of one step.
func branchBounds(b model.Branch, vars coupling.BranchVars, t int) []lpmodel.Constraint {
	p := vars.InputPower[t]
	name := func(kind string) string { return fmt.Sprintf("%s/%s[%d]", b.Name, kind, t) }
	upper := lpmodel.Constraint{Name: name("p-upper"), Terms: []lpmodel.Term{{Var: p, Coef: 1}}, Sense: lpmodel.LessEqual}
	lower := lpmodel.Constraint{Name: name("p-lower"), Terms: []lpmodel.Term{{Var: p, Coef: 1}}, Sense: lpmodel.GreaterEqual}

	switch {
	case !b.Extendable && !b.Committable:
		return nil
	case !b.Extendable && b.Committable:
		s := vars.Status[t]
		upper.Terms = append(upper.Terms, lpmodel.Term{Var: s, Coef: -b.NominalCapacity})
		lower.Terms = append(lower.Terms, lpmodel.Term{Var: s, Coef: -b.MinimumInput(b.NominalCapacity)})
		return []lpmodel.Constraint{upper, lower}
	case b.Extendable && !b.Committable:
		upper.Terms = append(upper.Terms, lpmodel.Term{Var: vars.NominalCapacity, Coef: -1})
		lower.Terms = append(lower.Terms, lpmodel.Term{Var: vars.NominalCapacity, Coef: -b.MinLoadFraction})
		return []lpmodel.Constraint{upper, lower}
	default:
		// committable and extendable: p <= p_nom, p <= M s,
		// p >= f p_nom - f M (1 - s)
		s := vars.Status[t]
		bigM := b.CapacityMax
		if bigM == 0 {
			bigM = DefaultBigM
		}
		upper.Terms = append(upper.Terms, lpmodel.Term{Var: vars.NominalCapacity, Coef: -1})
		status := lpmodel.Constraint{
			Name:  name("p-status"),
			Terms: []lpmodel.Term{{Var: p, Coef: 1}, {Var: s, Coef: -bigM}},
			Sense: lpmodel.LessEqual,
		}
		f := b.MinLoadFraction
		lower.Terms = append(lower.Terms,
			lpmodel.Term{Var: vars.NominalCapacity, Coef: -f},
			lpmodel.Term{Var: s, Coef: -f * bigM},
		)
		lower.RHS = -f * bigM
		return []lpmodel.Constraint{upper, status, lower}
	}
}
