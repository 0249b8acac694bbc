package model

import (
	"fmt"
	"math"
)

// Branch is one directed energy conversion edge of a CHP unit, fuel to
// electricity or fuel to heat. Capacities are expressed on the input side.
type Branch struct {
	Name            string
	Efficiency      float64 // output/input, in (0,1]
	NominalCapacity float64 // fixed input-side rating, or reference value when extendable
	CapacityMin     float64 // lower bound of the capacity variable when extendable
	CapacityMax     float64 // upper bound of the capacity variable when extendable, 0 means unbounded
	MinLoadFraction float64 // fraction of nominal capacity below which a committed unit may not run
	Committable     bool    // an on/off status variable exists for this branch
	Extendable      bool    // nominal capacity is a decision variable

	// Cost data is consumed when the branch is declared in a model.
	// Start-up and shut-down costs apply to committable branches only.
	MarginalCost float64
	CapitalCost  float64
	StartUpCost  float64
	ShutDownCost float64
}

// Output returns the output power for the given input power.
func (b Branch) Output(input float64) float64 {
	return b.Efficiency * input
}

// MinimumInput returns the smallest input a committed branch may run at
// for the given nominal capacity.
func (b Branch) MinimumInput(capacity float64) float64 {
	return b.MinLoadFraction * capacity
}

// ReferenceCapacity returns the capacity used for static analysis. Fixed
// branches use NominalCapacity; extendable ones fall back to CapacityMax and
// finally to a per-unit capacity of 1 since every audited quantity scales
// linearly with it.
func (b Branch) ReferenceCapacity() float64 {
	switch {
	case b.NominalCapacity > 0:
		return b.NominalCapacity
	case b.Extendable && b.CapacityMax > 0:
		return b.CapacityMax
	default:
		return 1
	}
}

func (b Branch) validate(pair, role string) error {
	field := func(name string) string { return role + "." + name }
	if !finite(b.Efficiency) || b.Efficiency <= 0 {
		return &ParameterError{Pair: pair, Field: field("efficiency"), Value: b.Efficiency, Reason: "must be positive"}
	}
	if b.Efficiency > 1 {
		return &ParameterError{Pair: pair, Field: field("efficiency"), Value: b.Efficiency, Reason: "must not exceed 1 (output/input ratio)"}
	}
	if !finite(b.MinLoadFraction) || b.MinLoadFraction < 0 || b.MinLoadFraction > 1 {
		return &ParameterError{Pair: pair, Field: field("minimum_load_fraction"), Value: b.MinLoadFraction, Reason: "must be within [0,1]"}
	}
	if !finite(b.NominalCapacity) || b.NominalCapacity < 0 {
		return &ParameterError{Pair: pair, Field: field("nominal_capacity"), Value: b.NominalCapacity, Reason: "must be non-negative"}
	}
	if !b.Extendable && b.NominalCapacity == 0 {
		return &ParameterError{Pair: pair, Field: field("nominal_capacity"), Value: 0, Reason: "fixed capacity must be positive"}
	}
	if !finite(b.StartUpCost) || b.StartUpCost < 0 {
		return &ParameterError{Pair: pair, Field: field("start_up_cost"), Value: b.StartUpCost, Reason: "must be non-negative"}
	}
	if !finite(b.ShutDownCost) || b.ShutDownCost < 0 {
		return &ParameterError{Pair: pair, Field: field("shut_down_cost"), Value: b.ShutDownCost, Reason: "must be non-negative"}
	}
	if b.Extendable {
		if !finite(b.CapacityMin) || b.CapacityMin < 0 {
			return &ParameterError{Pair: pair, Field: field("capacity_min"), Value: b.CapacityMin, Reason: "must be non-negative"}
		}
		if b.CapacityMax != 0 && (!finite(b.CapacityMax) || b.CapacityMax < b.CapacityMin) {
			return &ParameterError{Pair: pair, Field: field("capacity_max"), Value: b.CapacityMax, Reason: fmt.Sprintf("must be >= capacity_min (%g)", b.CapacityMin)}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
