package config

import "github.com/kilianp07/chpcoupling/core/model"

// BranchConfig describes one conversion branch of a pair.
type BranchConfig struct {
	Name            string  `json:"name"`
	Efficiency      float64 `json:"efficiency"`
	NominalCapacity float64 `json:"nominal_capacity"`
	CapacityMin     float64 `json:"capacity_min"`
	CapacityMax     float64 `json:"capacity_max"`
	MinLoadFraction float64 `json:"min_load_fraction"`
	Committable     bool    `json:"committable"`
	Extendable      bool    `json:"extendable"`
	MarginalCost    float64 `json:"marginal_cost"`
	CapitalCost     float64 `json:"capital_cost"`
	StartUpCost     float64 `json:"start_up_cost"`
	ShutDownCost    float64 `json:"shut_down_cost"`
}

// ExtractionConfig selects the extraction-condensing formulation.
type ExtractionConfig struct {
	BackpressureSlope float64 `json:"backpressure_slope"`
	MarginalHeatLoss  float64 `json:"marginal_heat_loss"`
}

// PairConfig describes a CHP unit as an electrical and a thermal branch.
type PairConfig struct {
	Name                  string            `json:"name"`
	HeatToPowerRatio      float64           `json:"heat_to_power_ratio"`
	CouplingBand          float64           `json:"coupling_band"`
	ThermalBias           float64           `json:"thermal_bias"`
	SynchronizeCommitment bool              `json:"synchronize_commitment"`
	SizingRatio           float64           `json:"sizing_ratio"`
	Extraction            *ExtractionConfig `json:"extraction"`
	Electrical            BranchConfig      `json:"electrical"`
	Thermal               BranchConfig      `json:"thermal"`
}

func (b BranchConfig) branch() model.Branch {
	return model.Branch{
		Name:            b.Name,
		Efficiency:      b.Efficiency,
		NominalCapacity: b.NominalCapacity,
		CapacityMin:     b.CapacityMin,
		CapacityMax:     b.CapacityMax,
		MinLoadFraction: b.MinLoadFraction,
		Committable:     b.Committable,
		Extendable:      b.Extendable,
		MarginalCost:    b.MarginalCost,
		CapitalCost:     b.CapitalCost,
		StartUpCost:     b.StartUpCost,
		ShutDownCost:    b.ShutDownCost,
	}
}

// Pair builds and validates the model pair. Unnamed branches are named after
// the pair.
func (c PairConfig) Pair() (model.Pair, error) {
	el, th := c.Electrical.branch(), c.Thermal.branch()
	if el.Name == "" {
		el.Name = c.Name + "_generator"
	}
	if th.Name == "" {
		th.Name = c.Name + "_boiler"
	}
	p := model.Pair{
		Name:                  c.Name,
		Electrical:            el,
		Thermal:               th,
		HeatToPowerRatio:      c.HeatToPowerRatio,
		CouplingBand:          c.CouplingBand,
		ThermalBias:           c.ThermalBias,
		SynchronizeCommitment: c.SynchronizeCommitment,
		SizingRatio:           c.SizingRatio,
	}
	if c.Extraction != nil {
		p.Extraction = &model.Extraction{
			BackpressureSlope: c.Extraction.BackpressureSlope,
			MarginalHeatLoss:  c.Extraction.MarginalHeatLoss,
		}
	}
	return model.NewPair(p)
}
