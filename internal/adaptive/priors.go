package adaptive

import (
	"fmt"
	"math"
)

// PriorProbability maps each point of a parameter space to an unnormalised
// prior weight.
type PriorProbability interface {
	Density(space []float64) []float64
}

// LinearNormPrior is a normal density over the parameter value.
type LinearNormPrior struct {
	Mu, Sigma float64
}

// Density returns NaN for every point when Sigma is not positive.
func (p LinearNormPrior) Density(space []float64) []float64 {
	return normpdf(space, p.Mu, p.Sigma)
}

// LogNormPrior is a normal density over log10 of the parameter value.
type LogNormPrior struct {
	Mu, Sigma float64
}

// Density returns NaN for every point when Sigma is not positive.
func (p LogNormPrior) Density(space []float64) []float64 {
	logs := make([]float64, len(space))
	for i, v := range space {
		logs[i] = math.Log10(v)
	}
	return normpdf(logs, p.Mu, p.Sigma)
}

// FlatPrior weighs every point equally.
type FlatPrior struct{}

func (FlatPrior) Density(space []float64) []float64 {
	d := make([]float64, len(space))
	for i := range d {
		d[i] = 1
	}
	return d
}

func normpdf(x []float64, mu, sigma float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if sigma <= 0 {
			out[i] = math.NaN()
			continue
		}
		z := (v - mu) / sigma
		out[i] = math.Exp(-0.5*(z*z)) / (math.Sqrt(2*math.Pi) * sigma)
	}
	return out
}

// ParameterDistribution pairs a parameter grid with its prior weights.
type ParameterDistribution struct {
	Space []float64
	Prior []float64
}

// NewParameterDistribution evaluates prior over space.
func NewParameterDistribution(space []float64, prior PriorProbability) ParameterDistribution {
	return ParameterDistribution{Space: space, Prior: prior.Density(space)}
}

func (d ParameterDistribution) validate(name string) error {
	if len(d.Space) == 0 || len(d.Prior) == 0 {
		return fmt.Errorf("%s: %w", name, ErrEmptyParameterSpace)
	}
	if len(d.Space) != len(d.Prior) {
		return fmt.Errorf("%s: %d points, %d prior weights: %w",
			name, len(d.Space), len(d.Prior), ErrPriorMismatch)
	}
	return nil
}

// PosteriorDistributions holds the grids and priors for all four
// psychometric parameters.
type PosteriorDistributions struct {
	Alpha  ParameterDistribution
	Beta   ParameterDistribution
	Gamma  ParameterDistribution
	Lambda ParameterDistribution
}

// ExampleLogisticConfiguration is a grid suited to speech-in-noise SNRs in
// dB: threshold in [-30, 30] with a normal prior around 0, slope in
// [0.1, 10] log-spaced, guess and lapse rates in [0.02, 0.2] with flat
// priors.
func ExampleLogisticConfiguration() PosteriorDistributions {
	return PosteriorDistributions{
		Alpha:  NewParameterDistribution(Linspace(-30, 30, 61), LinearNormPrior{Mu: 0, Sigma: 10}),
		Beta:   NewParameterDistribution(Logspace(0.1, 10, 41), LogNormPrior{Mu: -0.5, Sigma: 0.4}),
		Gamma:  NewParameterDistribution(Linspace(0.02, 0.2, 11), FlatPrior{}),
		Lambda: NewParameterDistribution(Linspace(0.02, 0.2, 11), FlatPrior{}),
	}
}
