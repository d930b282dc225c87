package adaptive

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// TrackingSequence is one stage of a staircase.
type TrackingSequence struct {
	Up       int     // consecutive ups that raise the level
	Down     int     // consecutive downs that lower the level
	RunCount int     // reversals before moving to the next sequence
	StepSize float64 // level change per step
}

// TrackingRule is an ordered list of sequences.
type TrackingRule []TrackingSequence

// TrackSettings configures a Track.
type TrackSettings struct {
	Rule      TrackingRule
	StartingX float64
	Ceiling   float64
	Floor     float64
	// BumpLimit is the number of consecutive pushes against the ceiling or
	// floor after which the track completes.
	BumpLimit int
}

// DefaultTrackSettings returns settings with an unbounded level range and no
// bump limit.
func DefaultTrackSettings() TrackSettings {
	return TrackSettings{
		Ceiling:   math.Inf(1),
		Floor:     math.Inf(-1),
		BumpLimit: math.MaxInt,
	}
}

type step int

const (
	stepUndefined step = iota
	stepRise
	stepFall
)

// Track is a Levitt up/down staircase.
type Track struct {
	startingX float64
	ceiling   float64
	floor     float64
	bumpLimit int

	// Per-sequence parameters for sequences with a non-zero run count.
	// stepSizes carries one extra zero entry so an exhausted track is
	// immovable.
	ups       []int
	downs     []int
	runCounts []int
	stepSizes []float64

	x                 float64
	sequenceIndex     int
	runCounter        int
	sameDirection     int
	bumpCount         int
	reversals         int
	previousDirection direction
	previousStep      step
	reversalXs        []float64
}

// NewTrack builds a Track. The rule is copied. Sequences with a zero
// RunCount are skipped.
func NewTrack(s TrackSettings) *Track {
	t := &Track{
		startingX: s.StartingX,
		x:         s.StartingX,
		ceiling:   s.Ceiling,
		floor:     s.Floor,
		bumpLimit: s.BumpLimit,
	}
	for _, seq := range s.Rule {
		if seq.RunCount == 0 {
			continue
		}
		t.stepSizes = append(t.stepSizes, seq.StepSize)
		t.runCounts = append(t.runCounts, seq.RunCount)
		t.ups = append(t.ups, seq.Up)
		t.downs = append(t.downs, seq.Down)
	}
	t.stepSizes = append(t.stepSizes, 0)
	return t
}

// X returns the current level.
func (t *Track) X() float64 { return t.x }

// Reversals returns the number of reversals so far.
func (t *Track) Reversals() int { return t.reversals }

// Complete reports whether every sequence is exhausted or the bump limit
// has been reached.
func (t *Track) Complete() bool {
	return t.sequenceIndex == len(t.runCounts) || t.bumpCount == t.bumpLimit
}

// Up records an incorrect response.
func (t *Track) Up() { t.update(directionUp, t.ceiling, t.ups, t.stepUp) }

// Down records a correct response.
func (t *Track) Down() { t.update(directionDown, t.floor, t.downs, t.stepDown) }

func (t *Track) update(d direction, boundary float64, thresholds []int, onThreshold func()) {
	if t.Complete() {
		return
	}
	if t.x == boundary {
		t.bumpCount++
	} else {
		t.bumpCount = 0
	}
	if t.previousDirection == d {
		t.sameDirection++
	} else {
		t.sameDirection = 1
	}
	if t.sameDirection == thresholds[t.sequenceIndex] {
		onThreshold()
	}
	t.previousDirection = d
}

func (t *Track) stepUp() {
	if t.previousStep == stepFall {
		t.reversal()
	}
	t.x = math.Min(t.x+t.stepSize(), t.ceiling)
	t.sameDirection = 0
	t.previousStep = stepRise
}

func (t *Track) stepDown() {
	if t.previousStep == stepRise {
		t.reversal()
	}
	t.x = math.Max(t.x-t.stepSize(), t.floor)
	t.sameDirection = 0
	t.previousStep = stepFall
}

func (t *Track) stepSize() float64 { return t.stepSizes[t.sequenceIndex] }

// reversal records the level before the step that reverses direction.
func (t *Track) reversal() {
	t.reversals++
	t.reversalXs = append(t.reversalXs, t.x)
	t.runCounter++
	if t.runCounter == t.runCounts[t.sequenceIndex] {
		t.runCounter = 0
		t.sequenceIndex++
	}
}

// Reset restores the starting level and clears all counters and history.
func (t *Track) Reset() {
	t.x = t.startingX
	t.sequenceIndex = 0
	t.runCounter = 0
	t.sameDirection = 0
	t.bumpCount = 0
	t.reversals = 0
	t.previousDirection = directionUndefined
	t.previousStep = stepUndefined
	t.reversalXs = nil
}

// ReversalXs returns the level recorded at each reversal, oldest first.
func (t *Track) ReversalXs() []float64 {
	return append([]float64(nil), t.reversalXs...)
}

// Threshold averages the levels of the last n reversals. Fewer are used if
// fewer were recorded. It returns NaN if n is not positive or no reversal
// has happened.
func (t *Track) Threshold(n int) float64 {
	return lastMean(t.reversalXs, n)
}

// String summarises the track state for logs.
func (t *Track) String() string {
	return fmt.Sprintf("levitt{x=%.4g sequence=%d/%d reversals=%d bumps=%d}",
		t.x, t.sequenceIndex, len(t.runCounts), t.reversals, t.bumpCount)
}

func lastMean(xs []float64, n int) float64 {
	if n <= 0 || len(xs) == 0 {
		return math.NaN()
	}
	if n > len(xs) {
		n = len(xs)
	}
	return stat.Mean(xs[len(xs)-n:], nil)
}
