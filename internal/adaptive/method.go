package adaptive

import "github.com/banshee-data/threshold.report/internal/psychometric"

// Method is an adaptive procedure driven one response at a time.
type Method interface {
	// X is the stimulus level to present next.
	X() float64
	// Complete reports whether the procedure has finished.
	Complete() bool
	// Reversals is the number of direction changes recorded so far.
	Reversals() int
	// Up records an incorrect response.
	Up()
	// Down records a correct response.
	Down()
	// Reset returns the procedure to its starting state.
	Reset()
}

// ThresholdEstimator is implemented by methods that estimate a threshold
// from their reversal levels.
type ThresholdEstimator interface {
	Threshold(reversals int) float64
}

// PhiEstimator is implemented by methods that estimate psychometric
// function parameters. ok is false until the first response.
type PhiEstimator interface {
	Phi() (phi psychometric.Phi, ok bool)
}

// ReversalRecorder is implemented by methods that keep the level at each
// reversal.
type ReversalRecorder interface {
	ReversalXs() []float64
}

type direction int

const (
	directionUndefined direction = iota
	directionUp
	directionDown
)

var (
	_ Method             = (*Track)(nil)
	_ ThresholdEstimator = (*Track)(nil)
	_ ReversalRecorder   = (*Track)(nil)
	_ Method             = (*UpdatedMaximumLikelihood)(nil)
	_ ThresholdEstimator = (*UpdatedMaximumLikelihood)(nil)
	_ PhiEstimator       = (*UpdatedMaximumLikelihood)(nil)
	_ ReversalRecorder   = (*UpdatedMaximumLikelihood)(nil)
)
