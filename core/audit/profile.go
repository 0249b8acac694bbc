package audit

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/chpcoupling/core/model"
)

// ProfileStep is the demand Q/P ratio of one step.
type ProfileStep struct {
	Ratio      float64
	Compatible bool
}

// ProfileReport tells in how many steps a demand profile could be served by
// the pair alone, given its ratio band.
type ProfileReport struct {
	Pair       string
	Low, High  float64
	Steps      []ProfileStep
	Compatible int
}

// CheckProfile compares the heat/electric demand ratio of every step with
// the band [rho(1-b), rho(1+b)]. In exact mode the band collapses to rho
// within the auditor tolerance. Steps without electric demand are
// incompatible.
func (a *Auditor) CheckProfile(pair model.Pair, electric, heat []float64) (ProfileReport, error) {
	if err := pair.Validate(); err != nil {
		return ProfileReport{}, err
	}
	if len(electric) != len(heat) {
		return ProfileReport{}, fmt.Errorf("profile: electric has %d steps, heat %d", len(electric), len(heat))
	}
	if len(electric) == 0 {
		return ProfileReport{}, errors.New("profile: empty demand")
	}
	low, high := pair.BandLimits()
	if pair.Formulation() == model.FormulationExact {
		slack := a.tol * pair.HeatToPowerRatio
		low, high = pair.HeatToPowerRatio-slack, pair.HeatToPowerRatio+slack
	}
	rep := ProfileReport{Pair: pair.Name, Low: low, High: high, Steps: make([]ProfileStep, len(electric))}
	for t := range electric {
		if electric[t] <= 0 {
			rep.Steps[t] = ProfileStep{Ratio: math.NaN()}
			continue
		}
		r := heat[t] / electric[t]
		ok := r >= low && r <= high
		rep.Steps[t] = ProfileStep{Ratio: r, Compatible: ok}
		if ok {
			rep.Compatible++
		}
	}
	if rep.Compatible == 0 {
		a.log.Warnf("pair %s: demand Q/P never falls within [%.3f, %.3f]", pair.Name, low, high)
	}
	return rep, nil
}
