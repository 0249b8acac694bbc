package config

import (
	"fmt"

	"github.com/kilianp07/chpcoupling/core/coupling"
	"github.com/kilianp07/chpcoupling/core/network"
)

// DefaultHorizon is used by the emit command when no profile is configured.
const DefaultHorizon = 24

// FuelWindowConfig caps CHP fuel use per window of Steps steps.
type FuelWindowConfig struct {
	Steps int     `json:"steps"`
	Limit float64 `json:"limit"`
}

// ScenarioConfig describes the demand scenario solved by the solve command
// and checked by the profile command.
type ScenarioConfig struct {
	Horizon         int               `json:"horizon"`
	ElectricDemand  []float64         `json:"electric_demand"`
	HeatDemand      []float64         `json:"heat_demand"`
	FuelCost        float64           `json:"fuel_cost"`
	UnservedPenalty float64           `json:"unserved_penalty"`
	Commitment      []float64         `json:"commitment"`
	FuelWindow      *FuelWindowConfig `json:"fuel_window"`
}

// SetDefaults applies sane defaults.
func (c *ScenarioConfig) SetDefaults() {
	if c.Horizon == 0 {
		c.Horizon = len(c.ElectricDemand)
	}
	if c.Horizon == 0 {
		c.Horizon = DefaultHorizon
	}
	if c.UnservedPenalty == 0 {
		c.UnservedPenalty = network.DefaultUnservedPenalty
	}
}

// Validate checks mandatory fields.
func (c ScenarioConfig) Validate() error {
	if c.Horizon < 0 {
		return fmt.Errorf("scenario: horizon must be positive, got %d", c.Horizon)
	}
	if len(c.HeatDemand) != len(c.ElectricDemand) {
		return fmt.Errorf("scenario: electric_demand has %d steps, heat_demand %d", len(c.ElectricDemand), len(c.HeatDemand))
	}
	if len(c.ElectricDemand) > 0 && c.Horizon != len(c.ElectricDemand) {
		return fmt.Errorf("scenario: horizon %d does not match %d demand steps", c.Horizon, len(c.ElectricDemand))
	}
	if c.FuelWindow != nil && c.FuelWindow.Steps <= 0 {
		return fmt.Errorf("scenario: fuel_window.steps must be positive")
	}
	if c.HasProfile() {
		return c.Scenario().Validate()
	}
	return nil
}

// HasProfile reports whether demand profiles are configured.
func (c ScenarioConfig) HasProfile() bool {
	return len(c.ElectricDemand) > 0
}

// Scenario converts the section into a network scenario.
func (c ScenarioConfig) Scenario() network.Scenario {
	s := network.Scenario{
		ElectricDemand:  c.ElectricDemand,
		HeatDemand:      c.HeatDemand,
		FuelCost:        c.FuelCost,
		UnservedPenalty: c.UnservedPenalty,
		Commitment:      c.Commitment,
	}
	if c.FuelWindow != nil {
		s.FuelWindow = &coupling.FuelWindow{Steps: c.FuelWindow.Steps, Limit: c.FuelWindow.Limit}
	}
	return s
}
