package coupling

import (
	"github.com/kilianp07/chpcoupling/core/logger"
	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

// Generator emits the full coupling constraint set of a pair: the ratio
// formulation followed by commitment synchronisation.
type Generator struct {
	log logger.Logger
}

// NewGenerator returns a Generator. A nil logger disables logging.
func NewGenerator(log logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop{}
	}
	return &Generator{log: log}
}

// Constraints returns the coupling constraints of pair without adding them
// anywhere.
func (g *Generator) Constraints(pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	ratio, err := RatioConstraints(pair, vars)
	if err != nil {
		g.log.Errorf("pair %s: %v", pair.Name, err)
		return nil, err
	}
	sync, err := SyncConstraints(pair, vars)
	if err != nil {
		g.log.Errorf("pair %s: %v", pair.Name, err)
		return nil, err
	}
	g.log.Debugw("coupling constraints built", map[string]any{
		"pair":        pair.Name,
		"formulation": pair.Formulation().String(),
		"ratio":       len(ratio),
		"sync":        len(sync),
		"horizon":     vars.Horizon(),
	})
	if pair.SynchronizeCommitment && !pair.Synchronized() {
		g.log.Warnf("pair %s: synchronize_commitment set but only one branch is committable, no status constraint emitted", pair.Name)
	}
	return append(ratio, sync...), nil
}

// Emit builds the coupling constraints and adds them to c. A ParameterError
// aborts the pair before anything is added.
func (g *Generator) Emit(c lpmodel.Collector, pair model.Pair, vars PairVars) ([]lpmodel.Constraint, error) {
	cs, err := g.Constraints(pair, vars)
	if err != nil {
		return nil, err
	}
	if err := addAll(c, cs); err != nil {
		return nil, err
	}
	return cs, nil
}
