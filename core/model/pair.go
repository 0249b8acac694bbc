package model

// Formulation selects the set of coupling constraints emitted for a pair.
type Formulation int

const (
	// FormulationExact pins heat output to ratio x electrical output.
	FormulationExact Formulation = iota
	// FormulationBanded lets the ratio drift within a relative band with
	// additional thermal headroom in part load.
	FormulationBanded
	// FormulationExtraction uses a backpressure line and a top iso-fuel line.
	FormulationExtraction
)

// String returns a human-readable representation of the formulation.
func (f Formulation) String() string {
	switch f {
	case FormulationExact:
		return "exact"
	case FormulationBanded:
		return "banded"
	case FormulationExtraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// Extraction holds the parameters of an extraction-condensing unit.
type Extraction struct {
	// BackpressureSlope c_b: heat output may not exceed electrical output / c_b.
	BackpressureSlope float64
	// MarginalHeatLoss c_v: electrical output lost per unit of heat extracted.
	MarginalHeatLoss float64
}

// Pair couples an electrical and a thermal branch sharing one fuel source.
// A Pair is a value: build it with NewPair and pass it by value.
type Pair struct {
	Name       string
	Electrical Branch
	Thermal    Branch

	// HeatToPowerRatio is the target Q/P output ratio.
	HeatToPowerRatio float64
	// CouplingBand is the relative tolerance around the ratio; 0 means equality.
	CouplingBand float64
	// ThermalBias is the extra thermal allowance per unit of electrical
	// part-load shortfall. Only used when CouplingBand > 0.
	ThermalBias float64
	// SynchronizeCommitment forces both branches on or off together.
	SynchronizeCommitment bool
	// SizingRatio is the constant used in the nominal-capacity constraint.
	// Zero means HeatToPowerRatio.
	SizingRatio float64
	// Extraction switches to the backpressure / iso-fuel formulation.
	Extraction *Extraction
}

// NewPair validates p and returns it. Any invalid parameter yields a
// *ParameterError and the zero Pair.
func NewPair(p Pair) (Pair, error) {
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	if p.Extraction != nil {
		ex := *p.Extraction
		p.Extraction = &ex
	}
	return p, nil
}

// Validate checks every parameter of the pair.
func (p Pair) Validate() error {
	if !finite(p.HeatToPowerRatio) || p.HeatToPowerRatio <= 0 {
		return &ParameterError{Pair: p.Name, Field: "heat_to_power_ratio", Value: p.HeatToPowerRatio, Reason: "must be positive"}
	}
	if !finite(p.CouplingBand) || p.CouplingBand < 0 || p.CouplingBand >= 1 {
		return &ParameterError{Pair: p.Name, Field: "coupling_band", Value: p.CouplingBand, Reason: "must be within [0,1)"}
	}
	if !finite(p.ThermalBias) || p.ThermalBias < 0 {
		return &ParameterError{Pair: p.Name, Field: "thermal_bias", Value: p.ThermalBias, Reason: "must be non-negative"}
	}
	if !finite(p.SizingRatio) || p.SizingRatio < 0 {
		return &ParameterError{Pair: p.Name, Field: "sizing_ratio", Value: p.SizingRatio, Reason: "must be positive when set"}
	}
	if ex := p.Extraction; ex != nil {
		if !finite(ex.BackpressureSlope) || ex.BackpressureSlope <= 0 {
			return &ParameterError{Pair: p.Name, Field: "extraction.backpressure_slope", Value: ex.BackpressureSlope, Reason: "must be positive"}
		}
		if !finite(ex.MarginalHeatLoss) || ex.MarginalHeatLoss < 0 {
			return &ParameterError{Pair: p.Name, Field: "extraction.marginal_heat_loss", Value: ex.MarginalHeatLoss, Reason: "must be non-negative"}
		}
	}
	if err := p.Electrical.validate(p.Name, "electrical"); err != nil {
		return err
	}
	return p.Thermal.validate(p.Name, "thermal")
}

// Formulation reports which constraint set applies to the pair.
func (p Pair) Formulation() Formulation {
	switch {
	case p.Extraction != nil:
		return FormulationExtraction
	case p.CouplingBand > 0:
		return FormulationBanded
	default:
		return FormulationExact
	}
}

// Sizing returns the ratio constant used in the nominal-capacity constraint.
func (p Pair) Sizing() float64 {
	if p.SizingRatio > 0 {
		return p.SizingRatio
	}
	return p.HeatToPowerRatio
}

// SizingFactor is the thermal/electrical input capacity factor implied by
// the nominal-capacity constraint.
func (p Pair) SizingFactor() float64 {
	return p.Sizing() * p.Electrical.Efficiency / p.Thermal.Efficiency
}

// ThermalCapacityFor derives the thermal input capacity that the
// nominal-capacity constraint pairs with an electrical input capacity.
func (p Pair) ThermalCapacityFor(electrical float64) float64 {
	return p.SizingFactor() * electrical
}

// Synchronized reports whether a status synchronisation constraint applies.
func (p Pair) Synchronized() bool {
	return p.SynchronizeCommitment && p.Electrical.Committable && p.Thermal.Committable
}

// BandLimits returns the lowest and highest heat-to-power ratio the band allows.
func (p Pair) BandLimits() (low, high float64) {
	return p.HeatToPowerRatio * (1 - p.CouplingBand), p.HeatToPowerRatio * (1 + p.CouplingBand)
}
