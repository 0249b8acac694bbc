package coupling

import (
	"errors"
	"fmt"

	"github.com/kilianp07/chpcoupling/core/lpmodel"
	"github.com/kilianp07/chpcoupling/core/model"
)

var (
	// ErrHorizonMismatch is returned when per-step handle slices differ in length.
	ErrHorizonMismatch = errors.New("horizon mismatch")
	// ErrMissingVariable is returned when a handle required by the branch flags is absent.
	ErrMissingVariable = errors.New("missing variable handle")
)

// BranchVars are the decision variables of one branch, resolved once when the
// model is assembled.
type BranchVars struct {
	// InputPower holds one handle per time step.
	InputPower []lpmodel.VarID
	// NominalCapacity is valid only for extendable branches.
	NominalCapacity lpmodel.VarID
	// Status holds one binary handle per time step for committable branches.
	Status []lpmodel.VarID
	// StartUp and ShutDown are per-step transition indicators, declared only
	// for committable branches with a start-up or shut-down cost.
	StartUp  []lpmodel.VarID
	ShutDown []lpmodel.VarID
}

// PairVars groups the handles of both branches of a pair.
type PairVars struct {
	Electrical BranchVars
	Thermal    BranchVars
}

// Horizon returns the number of time steps covered by the handles.
func (v PairVars) Horizon() int {
	return len(v.Electrical.InputPower)
}

func (v PairVars) validate(pair model.Pair) error {
	n := len(v.Electrical.InputPower)
	if len(v.Thermal.InputPower) != n {
		return fmt.Errorf("pair %s: %w: electrical %d steps, thermal %d", pair.Name, ErrHorizonMismatch, n, len(v.Thermal.InputPower))
	}
	if err := v.Electrical.validate(pair.Name, "electrical", pair.Electrical); err != nil {
		return err
	}
	return v.Thermal.validate(pair.Name, "thermal", pair.Thermal)
}

func (b BranchVars) validate(pair, role string, branch model.Branch) error {
	for t, id := range b.InputPower {
		if !id.Valid() {
			return fmt.Errorf("pair %s: %w: %s input power at step %d", pair, ErrMissingVariable, role, t)
		}
	}
	if branch.Extendable && !b.NominalCapacity.Valid() {
		return fmt.Errorf("pair %s: %w: %s nominal capacity", pair, ErrMissingVariable, role)
	}
	return nil
}

func (b BranchVars) validateStatus(pair, role string, n int) error {
	if len(b.Status) != n {
		return fmt.Errorf("pair %s: %w: %s status has %d steps, want %d", pair, ErrHorizonMismatch, role, len(b.Status), n)
	}
	for t, id := range b.Status {
		if !id.Valid() {
			return fmt.Errorf("pair %s: %w: %s status at step %d", pair, ErrMissingVariable, role, t)
		}
	}
	return nil
}
