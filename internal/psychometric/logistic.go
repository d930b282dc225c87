package psychometric

import (
	"math"
	"sort"
)

// Phi holds the parameters of a psychometric function.
type Phi struct {
	Alpha  float64 // threshold
	Beta   float64 // slope
	Gamma  float64 // guess rate
	Lambda float64 // lapse rate
}

// Function is a psychometric function with sweet-point support.
type Function interface {
	// P returns the probability of a correct response at level x.
	P(phi Phi, x float64) float64
	// SweetPoints returns three levels in ascending order.
	SweetPoints(phi Phi) [3]float64
}

// sideOffset is where the two slope sweet-point searches start relative to
// the threshold.
const sideOffset = 10

// wrongSidePenalty is added to the slope variance when a search wanders to
// the other side of the threshold.
const wrongSidePenalty = 1e10

// Logistic is the logistic psychometric function
//
//	P(x) = γ + (1 − γ − λ) / (1 + exp(−(x − α)·β))
type Logistic struct{}

// P evaluates the curve. It does not clamp and is defined for any inputs.
func (Logistic) P(phi Phi, x float64) float64 {
	return phi.Gamma + ((1 - phi.Gamma - phi.Lambda) /
		(1 + math.Exp(-(x-phi.Alpha)*phi.Beta)))
}

// SweetPoints returns the lower slope sweet point, the threshold sweet point
// and the upper slope sweet point, sorted ascending.
func (Logistic) SweetPoints(phi Phi) [3]float64 {
	lower := fminsearch(func(x []float64) float64 {
		v := slopeVariance(phi, x[0])
		if x[0] >= phi.Alpha {
			v += wrongSidePenalty
		}
		return v
	}, []float64{phi.Alpha - sideOffset})[0]

	upper := fminsearch(func(x []float64) float64 {
		v := slopeVariance(phi, x[0])
		if x[0] <= phi.Alpha {
			v += wrongSidePenalty
		}
		return v
	}, []float64{phi.Alpha + sideOffset})[0]

	middle := fminsearch(func(x []float64) float64 {
		return thresholdVariance(phi, x[0])
	}, []float64{phi.Alpha})[0]

	points := []float64{lower, upper, middle}
	sort.Float64s(points)
	return [3]float64{points[0], points[1], points[2]}
}

// varianceNumerator is the part shared by both variance expressions.
func varianceNumerator(phi Phi, x float64) float64 {
	e := math.Exp(phi.Beta * (x - phi.Alpha))
	return -math.Exp(2*phi.Beta*(phi.Alpha-x)) *
		square(1+e) *
		(-phi.Gamma + (phi.Lambda-1)*e) *
		(1 - phi.Gamma + phi.Lambda*e)
}

// thresholdVariance is proportional to the variance of an α estimate from a
// trial at x.
func thresholdVariance(phi Phi, x float64) float64 {
	return varianceNumerator(phi, x) /
		(square(phi.Beta) * square(phi.Gamma+phi.Lambda-1))
}

// slopeVariance is proportional to the variance of a β estimate from a trial
// at x.
func slopeVariance(phi Phi, x float64) float64 {
	return varianceNumerator(phi, x) /
		(square(x-phi.Alpha) * square(phi.Gamma+phi.Lambda-1))
}

func square(x float64) float64 { return x * x }
