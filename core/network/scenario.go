package network

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

// DefaultUnservedPenalty is the cost per unit of unserved demand.
const DefaultUnservedPenalty = 1e3

// Scenario is a minimal plant around one CHP pair: fixed electric and heat
// demand per step, a fuel price, and penalised unserved energy.
type Scenario struct {
	ElectricDemand  []float64
	HeatDemand      []float64
	FuelCost        float64
	UnservedPenalty float64
	// Commitment optionally fixes the electrical status per step (0 or 1).
	// With synchronised commitment the thermal branch follows.
	Commitment []float64
	// FuelWindow optionally caps the CHP fuel use per window.
	FuelWindow *coupling.FuelWindow
}

// Plant is a built scenario: the model and the handles needed to read a
// solution back.
type Plant struct {
	Pair             model.Pair
	Model            *lpmodel.Model
	Vars             coupling.PairVars
	UnservedElectric []lpmodel.VarID
	UnservedHeat     []lpmodel.VarID
	Coupling         []lpmodel.Constraint
}

// Horizon returns the number of steps of the scenario.
func (s Scenario) Horizon() int { return len(s.ElectricDemand) }

// Validate checks the demand profiles.
func (s Scenario) Validate() error {
	if len(s.ElectricDemand) == 0 {
		return errors.New("scenario: empty demand profile")
	}
	if len(s.HeatDemand) != len(s.ElectricDemand) {
		return fmt.Errorf("scenario: %w: electric %d steps, heat %d", coupling.ErrHorizonMismatch, len(s.ElectricDemand), len(s.HeatDemand))
	}
	if len(s.Commitment) != 0 && len(s.Commitment) != len(s.ElectricDemand) {
		return fmt.Errorf("scenario: %w: commitment has %d steps", coupling.ErrHorizonMismatch, len(s.Commitment))
	}
	for t := range s.ElectricDemand {
		if s.ElectricDemand[t] < 0 || s.HeatDemand[t] < 0 {
			return fmt.Errorf("scenario: negative demand at step %d", t)
		}
	}
	for t, v := range s.Commitment {
		if v != 0 && v != 1 {
			return fmt.Errorf("scenario: commitment at step %d must be 0 or 1, got %g", t, v)
		}
	}
	return nil
}

// Build declares the pair, emits its coupling constraints through gen and
// adds demand balances and the objective.
func (s Scenario) Build(pair model.Pair, gen *coupling.Generator) (*Plant, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	m := lpmodel.New()
	vars, err := Declare(m, pair, s.Horizon())
	if err != nil {
		return nil, err
	}
	cs, err := gen.Emit(m, pair, vars)
	if err != nil {
		return nil, err
	}
	plant := &Plant{Pair: pair, Model: m, Vars: vars, Coupling: cs}

	penalty := s.UnservedPenalty
	if penalty == 0 {
		penalty = DefaultUnservedPenalty
	}
	for t := 0; t < s.Horizon(); t++ {
		ue := m.AddVariable(lpmodel.Variable{Name: fmt.Sprintf("unserved[electric,%d]", t), Upper: math.Inf(1), Cost: penalty})
		uh := m.AddVariable(lpmodel.Variable{Name: fmt.Sprintf("unserved[heat,%d]", t), Upper: math.Inf(1), Cost: penalty})
		plant.UnservedElectric = append(plant.UnservedElectric, ue)
		plant.UnservedHeat = append(plant.UnservedHeat, uh)

		pe, pt := vars.Electrical.InputPower[t], vars.Thermal.InputPower[t]
		if err := m.Add(lpmodel.Constraint{
			Name:  fmt.Sprintf("balance-electric[%d]", t),
			Terms: []lpmodel.Term{{Var: pe, Coef: pair.Electrical.Efficiency}, {Var: ue, Coef: 1}},
			Sense: lpmodel.Equal,
			RHS:   s.ElectricDemand[t],
		}); err != nil {
			return nil, err
		}
		if err := m.Add(lpmodel.Constraint{
			Name:  fmt.Sprintf("balance-heat[%d]", t),
			Terms: []lpmodel.Term{{Var: pt, Coef: pair.Thermal.Efficiency}, {Var: uh, Coef: 1}},
			Sense: lpmodel.Equal,
			RHS:   s.HeatDemand[t],
		}); err != nil {
			return nil, err
		}
		for _, id := range []lpmodel.VarID{pe, pt} {
			v, err := m.Variable(id)
			if err != nil {
				return nil, err
			}
			if err := m.SetCost(id, v.Cost+s.FuelCost); err != nil {
				return nil, err
			}
		}
		if len(s.Commitment) > 0 {
			if err := s.fixCommitment(m, pair, vars, t); err != nil {
				return nil, err
			}
		}
	}
	if s.FuelWindow != nil {
		w := *s.FuelWindow
		if w.Name == "" {
			w.Name = pair.Name
		}
		if _, err := w.Emit(m, vars.Electrical.InputPower, vars.Thermal.InputPower); err != nil {
			return nil, err
		}
	}
	return plant, nil
}

func (s Scenario) fixCommitment(m *lpmodel.Model, pair model.Pair, vars coupling.PairVars, t int) error {
	if !pair.Electrical.Committable {
		return fmt.Errorf("pair %s: commitment schedule given but electrical branch is not committable", pair.Name)
	}
	return m.Fix(vars.Electrical.Status[t], s.Commitment[t])
}

// Dispatch is the per-step result read back from a solution.
type Dispatch struct {
	ElectricInput    float64
	ThermalInput     float64
	ElectricOutput   float64
	HeatOutput       float64
	UnservedElectric float64
	UnservedHeat     float64
}

// Read extracts the dispatch of every step from a solution vector.
func (p *Plant) Read(x []float64) []Dispatch {
	out := make([]Dispatch, len(p.Vars.Electrical.InputPower))
	for t := range out {
		pe := x[p.Vars.Electrical.InputPower[t]]
		pt := x[p.Vars.Thermal.InputPower[t]]
		out[t] = Dispatch{
			ElectricInput:    pe,
			ThermalInput:     pt,
			ElectricOutput:   p.Pair.Electrical.Output(pe),
			HeatOutput:       p.Pair.Thermal.Output(pt),
			UnservedElectric: x[p.UnservedElectric[t]],
			UnservedHeat:     x[p.UnservedHeat[t]],
		}
	}
	return out
}
