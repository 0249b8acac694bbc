package coupling

import (
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

// NameStatusSync is the name of the per-step status synchronisation constraint.
const NameStatusSync = "chp-status-synchronisation"

// SyncConstraints builds electrical.status(t) - thermal.status(t) = 0 for
// every step when the pair asks for synchronised commitment and both
// branches are committable. Otherwise it returns no constraints.
//
// The synchronizer cannot tell whether the minimum-load fractions are
// compatible with the ratio formulation; run the auditor first.
func SyncConstraints(pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if !pair.Synchronized() {
		return nil, nil
	}
	n := vars.Horizon()
	if err := vars.Electrical.validateStatus(pair.Name, "electrical", n); err != nil {
		return nil, err
	}
	if err := vars.Thermal.validateStatus(pair.Name, "thermal", n); err != nil {
		return nil, err
	}
	out := make([]lpmodel.Constraint, 0, n)
	for t := 0; t < n; t++ {
		out = append(out, lpmodel.Constraint{
			Name: stepName(pair, NameStatusSync, t),
			Terms: []lpmodel.Term{
				{Var: vars.Electrical.Status[t], Coef: 1},
				{Var: vars.Thermal.Status[t], Coef: -1},
			},
			Sense: lpmodel.Equal,
		})
	}
	return out, nil
}

// EmitSync adds the synchronisation constraints to c.
func EmitSync(c lpmodel.Collector, pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	cs, err := SyncConstraints(pair, vars)
	if err != nil {
		return nil, err
	}
	return cs, addAll(c, cs)
}
