package adaptive

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/threshold.report/internal/psychometric"
)

// TrackSpecifications configures an UpdatedMaximumLikelihood procedure.
type TrackSpecifications struct {
	Down       int // consecutive downs that move toward a lower sweet point
	Up         int // consecutive ups that move toward a higher sweet point
	StartingX  float64
	LowerBound float64
	UpperBound float64
	Trials     int // trials until Complete
}

// PhiComputer turns the current posterior into a point estimate.
type PhiComputer interface {
	ComputePhi(u *UpdatedMaximumLikelihood) psychometric.Phi
}

// Indices into the five extended sweet points
// [2·s0−s1, s0, s1, s2, 2·s2−s1] targeted when each parameter is free.
const (
	gammaSweetPoint       = 0
	lowerBetaSweetPoint   = 1
	alphaSweetPoint       = 2
	upperBetaSweetPoint   = 3
	lambdaSweetPoint      = 4
	extendedSweetPointLen = 5
)

// UpdatedMaximumLikelihood is a Bayesian adaptive procedure over a dense
// grid of psychometric function parameters.
//
// The log posterior is stored flat with alpha varying fastest and lambda
// slowest.
type UpdatedMaximumLikelihood struct {
	dist     PosteriorDistributions
	spec     TrackSpecifications
	function psychometric.Function
	computer PhiComputer

	// candidates are the sweet point indices that inform a free parameter,
	// ascending.
	candidates []int
	candidate  int

	logPosterior []float64
	likelihood   []float64

	x               float64
	consecutiveDown int
	consecutiveUp   int
	trackDirection  direction
	reversals       int
	trials          int
	reversalXs      []float64

	phi         psychometric.Phi
	hasPhi      bool
	sweetPoints []float64
}

// NewUpdatedMaximumLikelihood builds the procedure and initialises the
// posterior from the priors.
func NewUpdatedMaximumLikelihood(d PosteriorDistributions, f psychometric.Function,
	c PhiComputer, spec TrackSpecifications) (*UpdatedMaximumLikelihood, error) {
	for _, p := range []struct {
		name string
		dist ParameterDistribution
	}{{"alpha", d.Alpha}, {"beta", d.Beta}, {"gamma", d.Gamma}, {"lambda", d.Lambda}} {
		if err := p.dist.validate(p.name); err != nil {
			return nil, err
		}
	}

	u := &UpdatedMaximumLikelihood{
		dist:     d,
		spec:     spec,
		function: f,
		computer: c,
	}
	if len(d.Alpha.Space) > 1 {
		u.candidates = append(u.candidates, alphaSweetPoint)
	}
	if len(d.Beta.Space) > 1 {
		u.candidates = append(u.candidates, lowerBetaSweetPoint, upperBetaSweetPoint)
	}
	if len(d.Gamma.Space) > 1 {
		u.candidates = append(u.candidates, gammaSweetPoint)
	}
	if len(d.Lambda.Space) > 1 {
		u.candidates = append(u.candidates, lambdaSweetPoint)
	}
	if len(u.candidates) == 0 {
		u.candidates = []int{alphaSweetPoint}
	}
	slices.Sort(u.candidates)

	n := len(d.Alpha.Space) * len(d.Beta.Space) * len(d.Gamma.Space) * len(d.Lambda.Space)
	u.logPosterior = make([]float64, 0, n)
	u.likelihood = make([]float64, n)
	u.Reset()
	return u, nil
}

// Reset restores the starting level, clears counters, reversal history and
// the current estimate, and rebuilds the posterior from the priors.
func (u *UpdatedMaximumLikelihood) Reset() {
	u.trials = 0
	u.consecutiveDown = 0
	u.consecutiveUp = 0
	u.trackDirection = directionUndefined
	u.x = u.spec.StartingX
	u.reversals = 0
	u.reversalXs = nil
	u.phi = psychometric.Phi{}
	u.hasPhi = false
	u.sweetPoints = nil

	u.logPosterior = u.logPosterior[:0]
	for _, l := range u.dist.Lambda.Prior {
		for _, g := range u.dist.Gamma.Prior {
			for _, b := range u.dist.Beta.Prior {
				for _, a := range u.dist.Alpha.Prior {
					u.logPosterior = append(u.logPosterior, a*b*g*l)
				}
			}
		}
	}
	if !logNormalize(u.logPosterior) {
		u.uniformPosterior()
	}

	if u.x < (u.spec.LowerBound+u.spec.UpperBound)/2 {
		u.candidate = u.candidates[0]
	} else {
		u.candidate = u.candidates[len(u.candidates)-1]
	}
}

// Down records a correct response.
func (u *UpdatedMaximumLikelihood) Down() {
	u.consecutiveDown++
	if u.consecutiveDown == u.spec.Down {
		u.candidate = max(u.candidate, u.candidates[0]+1) - 1
		u.consecutiveDown = 0
		if u.trackDirection == directionUp {
			u.reversal()
		}
		u.trackDirection = directionDown
	}
	u.consecutiveUp = 0
	u.respond(false)
}

// Up records an incorrect response.
func (u *UpdatedMaximumLikelihood) Up() {
	u.consecutiveUp++
	if u.consecutiveUp == u.spec.Up {
		u.candidate = min(u.candidate+1, u.candidates[len(u.candidates)-1])
		u.consecutiveUp = 0
		if u.trackDirection == directionDown {
			u.reversal()
		}
		u.trackDirection = directionUp
	}
	u.consecutiveDown = 0
	u.respond(true)
}

func (u *UpdatedMaximumLikelihood) reversal() {
	u.reversals++
	u.reversalXs = append(u.reversalXs, u.x)
}

// respond folds the response at the current level into the posterior and
// moves to the chosen sweet point of the new estimate.
func (u *UpdatedMaximumLikelihood) respond(miss bool) {
	u.evaluateLikelihood(miss)
	if logNormalize(u.likelihood) {
		u.addToPosteriorAndShiftByMax()
	}
	u.phi = u.computer.ComputePhi(u)
	u.hasPhi = true
	u.sweetPoints = u.extendedSweetPoints(u.phi)
	u.x = u.sweetPoints[u.candidate]
	u.trials++
}

func (u *UpdatedMaximumLikelihood) evaluateLikelihood(miss bool) {
	i := 0
	for _, lambda := range u.dist.Lambda.Space {
		for _, gamma := range u.dist.Gamma.Space {
			for _, beta := range u.dist.Beta.Space {
				for _, alpha := range u.dist.Alpha.Space {
					p := u.function.P(psychometric.Phi{Alpha: alpha, Beta: beta, Gamma: gamma, Lambda: lambda}, u.x)
					if miss {
						p = 1 - p
					}
					u.likelihood[i] = p
					i++
				}
			}
		}
	}
}

func (u *UpdatedMaximumLikelihood) addToPosteriorAndShiftByMax() {
	floats.Add(u.logPosterior, u.likelihood)
	m := floats.Max(u.logPosterior)
	if math.IsInf(m, -1) || math.IsNaN(m) {
		u.uniformPosterior()
		return
	}
	floats.AddConst(-m, u.logPosterior)
}

func (u *UpdatedMaximumLikelihood) uniformPosterior() {
	for i := range u.logPosterior {
		u.logPosterior[i] = 0
	}
}

func (u *UpdatedMaximumLikelihood) extendedSweetPoints(phi psychometric.Phi) []float64 {
	s := u.function.SweetPoints(phi)
	points := make([]float64, 0, extendedSweetPointLen)
	points = append(points, 2*s[0]-s[1], s[0], s[1], s[2], 2*s[2]-s[1])
	for i, x := range points {
		points[i] = math.Max(math.Min(x, u.spec.UpperBound), u.spec.LowerBound)
	}
	return points
}

// logNormalize replaces v with log(v/sum(v)) in place. It reports false and
// leaves v untouched when the sum is not a positive finite number.
func logNormalize(v []float64) bool {
	sum := sequentialSum(v)
	if !(sum > 0) || math.IsInf(sum, 1) {
		return false
	}
	for i, x := range v {
		v[i] = math.Log(x / sum)
	}
	return true
}

// sequentialSum adds left to right so results do not depend on the
// platform's vectorised summation order.
func sequentialSum(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum
}

// X returns the next level.
func (u *UpdatedMaximumLikelihood) X() float64 { return u.x }

// Reversals returns the number of reversals since the last reset.
func (u *UpdatedMaximumLikelihood) Reversals() int { return u.reversals }

// Trials returns the number of responses since the last reset.
func (u *UpdatedMaximumLikelihood) Trials() int { return u.trials }

// Complete reports whether the configured number of trials has been run.
// Further responses still refine the estimate.
func (u *UpdatedMaximumLikelihood) Complete() bool { return u.trials >= u.spec.Trials }

// Phi returns the current estimate. ok is false before the first response.
func (u *UpdatedMaximumLikelihood) Phi() (phi psychometric.Phi, ok bool) {
	return u.phi, u.hasPhi
}

// SweetPoints returns the five clamped sweet points of the current
// estimate, or nil before the first response.
func (u *UpdatedMaximumLikelihood) SweetPoints() []float64 {
	return slices.Clone(u.sweetPoints)
}

// Threshold averages the levels of the last n reversals, like
// Track.Threshold.
func (u *UpdatedMaximumLikelihood) Threshold(n int) float64 {
	return lastMean(u.reversalXs, n)
}

// ReversalXs returns the level recorded at each reversal, oldest first.
func (u *UpdatedMaximumLikelihood) ReversalXs() []float64 {
	return slices.Clone(u.reversalXs)
}

// Len returns the number of grid points.
func (u *UpdatedMaximumLikelihood) Len() int { return len(u.logPosterior) }

// GridPoint returns the parameters at flat grid index i.
func (u *UpdatedMaximumLikelihood) GridPoint(i int) psychometric.Phi {
	na, nb, ng, nl := len(u.dist.Alpha.Space), len(u.dist.Beta.Space),
		len(u.dist.Gamma.Space), len(u.dist.Lambda.Space)
	return psychometric.Phi{
		Alpha:  u.dist.Alpha.Space[i%na],
		Beta:   u.dist.Beta.Space[(i/na)%nb],
		Gamma:  u.dist.Gamma.Space[(i/na/nb)%ng],
		Lambda: u.dist.Lambda.Space[(i/na/nb/ng)%nl],
	}
}

// LogPosterior returns a copy of the unnormalised log posterior.
func (u *UpdatedMaximumLikelihood) LogPosterior() []float64 {
	return slices.Clone(u.logPosterior)
}

// Posterior returns the posterior as probabilities summing to one.
func (u *UpdatedMaximumLikelihood) Posterior() []float64 {
	p := make([]float64, len(u.logPosterior))
	for i, v := range u.logPosterior {
		p[i] = math.Exp(v)
	}
	sum := sequentialSum(p)
	for i := range p {
		p[i] /= sum
	}
	return p
}

// String summarises the procedure state for logs.
func (u *UpdatedMaximumLikelihood) String() string {
	return fmt.Sprintf("uml{x=%.4g trials=%d/%d reversals=%d candidate=%d}",
		u.x, u.trials, u.spec.Trials, u.reversals, u.candidate)
}
