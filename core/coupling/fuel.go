package coupling

import (
	"errors"
	"fmt"

	"github.com/kilianp07/chpcoupling/core/lpmodel"
)

// NameFuelWindow is the name of the fuel window constraint.
const NameFuelWindow = "chp-fuel-window-limit"

// FuelWindow caps the summed input power of several branches over
// consecutive windows of Steps time steps, e.g. a weekly fuel allowance.
type FuelWindow struct {
	Name  string
	Steps int
	Limit float64
}

// Constraints builds one constraint per window. The last window may be
// shorter than Steps.
func (w FuelWindow) Constraints(inputs ...[]lpmodel.VarID) ([]lpmodel.Constraint, error) {
	if w.Steps <= 0 {
		return nil, fmt.Errorf("fuel window %s: steps must be positive", w.Name)
	}
	if w.Limit < 0 {
		return nil, fmt.Errorf("fuel window %s: limit must be non-negative", w.Name)
	}
	if len(inputs) == 0 {
		return nil, errors.New("fuel window: no branches")
	}
	n := len(inputs[0])
	for _, in := range inputs[1:] {
		if len(in) != n {
			return nil, fmt.Errorf("fuel window %s: %w", w.Name, ErrHorizonMismatch)
		}
	}
	var out []lpmodel.Constraint
	for start, k := 0, 0; start < n; start, k = start+w.Steps, k+1 {
		end := min(start+w.Steps, n)
		c := lpmodel.Constraint{
			Name:  fmt.Sprintf("%s/%s[%d]", w.Name, NameFuelWindow, k),
			Sense: lpmodel.LessEqual,
			RHS:   w.Limit,
		}
		for _, in := range inputs {
			for t := start; t < end; t++ {
				c.Terms = append(c.Terms, lpmodel.Term{Var: in[t], Coef: 1})
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Emit adds the window constraints to c.
func (w FuelWindow) Emit(c lpmodel.Collector, inputs ...[]lpmodel.VarID) ([]lpmodel.Constraint, error) {
	cs, err := w.Constraints(inputs...)
	if err != nil {
		return nil, err
	}
	return cs, addAll(c, cs)
}
