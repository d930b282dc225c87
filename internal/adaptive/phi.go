package adaptive

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/threshold.report/internal/psychometric"
)

// MeanPhi estimates each parameter by its posterior mean.
type MeanPhi struct{}

func (MeanPhi) ComputePhi(u *UpdatedMaximumLikelihood) psychometric.Phi {
	w := make([]float64, len(u.logPosterior))
	for i, v := range u.logPosterior {
		w[i] = math.Exp(v)
	}
	sum := sequentialSum(w)
	for i := range w {
		w[i] /= sum
	}
	var est psychometric.Phi
	for i, p := range w {
		g := u.GridPoint(i)
		est.Alpha += p * g.Alpha
		est.Beta += p * g.Beta
		est.Gamma += p * g.Gamma
		est.Lambda += p * g.Lambda
	}
	return est
}

// ModePhi estimates the parameters by the grid point of highest posterior
// probability.
type ModePhi struct{}

func (ModePhi) ComputePhi(u *UpdatedMaximumLikelihood) psychometric.Phi {
	return u.GridPoint(floats.MaxIdx(u.logPosterior))
}
