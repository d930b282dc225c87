package adaptive

import (
	"math"
	"slices"
	"testing"
)

// trackFixture mirrors a three-sequence rule where only the first sequence
// is active unless a test gives the others a run count.
type trackFixture struct {
	settings TrackSettings
}

func newTrackFixture() *trackFixture {
	s := DefaultTrackSettings()
	s.Rule = make(TrackingRule, 3)
	s.Rule[0].RunCount = 999
	return &trackFixture{settings: s}
}

func (f *trackFixture) first() *TrackingSequence  { return &f.settings.Rule[0] }
func (f *trackFixture) second() *TrackingSequence { return &f.settings.Rule[1] }
func (f *trackFixture) third() *TrackingSequence  { return &f.settings.Rule[2] }

func (f *trackFixture) track() *Track { return NewTrack(f.settings) }

func apply(m Method, directions string) {
	for _, c := range directions {
		switch c {
		case 'd':
			m.Down()
		case 'u':
			m.Up()
		}
	}
}

func assertXAfterDown(t *testing.T, tr *Track, want float64) {
	t.Helper()
	tr.Down()
	if got := tr.X(); got != want {
		t.Errorf("X() = %v, want %v", got, want)
	}
}

func assertXAfterUp(t *testing.T, tr *Track, want float64) {
	t.Helper()
	tr.Up()
	if got := tr.X(); got != want {
		t.Errorf("X() = %v, want %v", got, want)
	}
}

func assertXAfter(t *testing.T, tr *Track, directions string, want float64) {
	t.Helper()
	apply(tr, directions)
	if got := tr.X(); got != want {
		t.Errorf("X() = %v, want %v", got, want)
	}
}

func TestTrack_XEqualToStartingX(t *testing.T) {
	f := newTrackFixture()
	f.settings.StartingX = 1
	if got := f.track().X(); got != 1.0 {
		t.Errorf("X() = %v, want %v", got, 1.0)
	}
}

func TestTrack_NoRunSequencesMeansNoChanges(t *testing.T) {
	f := newTrackFixture()
	f.settings.StartingX = 5
	tr := f.track()
	assertXAfterDown(t, tr, 5)
	assertXAfterUp(t, tr, 5)
}

func TestTrack_EmptyRuleIsCompleteAndImmovable(t *testing.T) {
	s := DefaultTrackSettings()
	s.StartingX = 3
	tr := NewTrack(s)
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
	apply(tr, "dduu")
	if got := tr.X(); got != 3.0 {
		t.Errorf("X() = %v, want %v", got, 3.0)
	}
	if got := tr.Reversals(); got != 0 {
		t.Errorf("Reversals() = %v, want %v", got, 0)
	}
	if got := tr.Threshold(1); !math.IsNaN(got) {
		t.Errorf("Threshold(1) = %v, want NaN", got)
	}
}

func TestTrack_ZeroRunCountSequencesAreSkipped(t *testing.T) {
	s := DefaultTrackSettings()
	s.Rule = TrackingRule{{Up: 1, Down: 1, RunCount: 0, StepSize: 100}}
	tr := NewTrack(s)
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
	tr.Down()
	if got := tr.X(); got != 0.0 {
		t.Errorf("X() = %v, want %v", got, 0.0)
	}
}

func TestTrack_RuleIsCopied(t *testing.T) {
	f := newTrackFixture()
	f.first().Down = 1
	f.first().StepSize = 2
	tr := f.track()
	f.settings.Rule[0].StepSize = 50
	assertXAfterDown(t, tr, -2)
}

func TestTrack_StepsAccordingToStepSize1Down1Up(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	assertXAfterDown(t, tr, 5-4)
	assertXAfterUp(t, tr, 5-4+4)
	assertXAfterDown(t, tr, 5-4+4-4)
	assertXAfterDown(t, tr, 5-4+4-4-4)
	assertXAfterUp(t, tr, 5-4+4-4-4+4)
}

func TestTrack_StepsAccordingToStepSize2Down1Up(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 2
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	assertXAfterDown(t, tr, 5)
	assertXAfterDown(t, tr, 5-4)
	assertXAfterUp(t, tr, 5-4+4)
	assertXAfterDown(t, tr, 5-4+4)
	assertXAfterDown(t, tr, 5-4+4-4)
	assertXAfterUp(t, tr, 5-4+4-4+4)
}

func TestTrack_StepsAccordingToStepSize1Down2Up(t *testing.T) {
	f := newTrackFixture()
	f.first().Down = 1
	f.first().Up = 2
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	assertXAfterDown(t, tr, 5-4)
	assertXAfterUp(t, tr, 5-4)
	assertXAfterUp(t, tr, 5-4+4)
	assertXAfterDown(t, tr, 5-4+4-4)
	assertXAfterUp(t, tr, 5-4+4-4)
	assertXAfterUp(t, tr, 5-4+4-4+4)
}

func TestTrack_ExhaustedRunSequencesMeansNoMoreStepChanges(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	f.first().RunCount = 3
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	assertXAfter(t, tr, "dudu", 5-4+4-4)
	assertXAfterDown(t, tr, 5-4+4-4)
	assertXAfterUp(t, tr, 5-4+4-4)
}

func TestTrack_FloorActsAsLowerLimit(t *testing.T) {
	f := newTrackFixture()
	f.settings.Floor = 0
	f.first().Down = 1
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	if got := tr.X(); got != 5.0 {
		t.Errorf("X() = %v, want %v", got, 5.0)
	}
	assertXAfterDown(t, tr, 5-4)
	assertXAfterDown(t, tr, 0)
}

func TestTrack_CeilingActsAsUpperLimit(t *testing.T) {
	f := newTrackFixture()
	f.settings.Ceiling = 10
	f.first().Up = 1
	f.first().StepSize = 4
	f.settings.StartingX = 5
	tr := f.track()
	if got := tr.X(); got != 5.0 {
		t.Errorf("X() = %v, want %v", got, 5.0)
	}
	assertXAfterUp(t, tr, 5+4)
	assertXAfterUp(t, tr, 10)
}

func TestTrack_IncompleteWhenNonZeroRunCount(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 3
	if f.track().Complete() {
		t.Errorf("Complete() = true, want false")
	}
}

func TestTrack_CompleteWhenExhausted(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	f.first().RunCount = 3
	tr := f.track()
	tr.Down()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	tr.Up()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	tr.Down()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	tr.Up()
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
}

func TestTrack_BumpLimit(t *testing.T) {
	tests := []struct {
		name       string
		startingX  float64
		ceiling    float64
		floor      float64
		up, down   int
		stepSize   float64
		directions string
		complete   []bool
	}{
		{
			name:      "pushed up at ceiling",
			startingX: 10, ceiling: 10, floor: math.Inf(-1),
			directions: "uuu",
			complete:   []bool{false, false, true},
		},
		{
			name:      "still complete after one more push up",
			startingX: 10, ceiling: 10, floor: math.Inf(-1),
			directions: "uuuu",
			complete:   []bool{false, false, true, true},
		},
		{
			name:      "still complete when pushed down after limit",
			startingX: 10, ceiling: 10, floor: math.Inf(-1),
			directions: "uuud",
			complete:   []bool{false, false, true, true},
		},
		{
			name:      "reaches ceiling then pushed",
			startingX: 5, ceiling: 7, floor: math.Inf(-1),
			up: 1, stepSize: 2,
			directions: "uuuu",
			complete:   []bool{false, false, false, true},
		},
		{
			name:      "pushed down at floor",
			startingX: -10, ceiling: math.Inf(1), floor: -10,
			directions: "ddd",
			complete:   []bool{false, false, true},
		},
		{
			name:      "still complete after one more push down",
			startingX: -10, ceiling: math.Inf(1), floor: -10,
			directions: "dddd",
			complete:   []bool{false, false, true, true},
		},
		{
			name:      "still complete when pushed up after limit",
			startingX: -10, ceiling: math.Inf(1), floor: -10,
			directions: "dddu",
			complete:   []bool{false, false, true, true},
		},
		{
			name:      "reaches floor then pushed",
			startingX: -5, ceiling: math.Inf(1), floor: -7,
			down: 1, stepSize: 2,
			directions: "dddd",
			complete:   []bool{false, false, false, true},
		},
		{
			name:      "interrupted pushes at floor",
			startingX: -5, ceiling: math.Inf(1), floor: -5,
			directions: "ddud",
			complete:   []bool{false, false, false, false},
		},
		{
			name:      "interrupted pushes at ceiling",
			startingX: 5, ceiling: 5, floor: math.Inf(-1),
			directions: "uudu",
			complete:   []bool{false, false, false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTrackFixture()
			f.settings.StartingX = tt.startingX
			f.settings.Ceiling = tt.ceiling
			f.settings.Floor = tt.floor
			f.settings.BumpLimit = 3
			f.first().Up = tt.up
			f.first().Down = tt.down
			f.first().StepSize = tt.stepSize
			tr := f.track()
			for i, c := range tt.directions {
				apply(tr, string(c))
				if got := tr.Complete(); got != tt.complete[i] {
					t.Errorf("Complete() after %q = %v, want %v", tt.directions[:i+1], got, tt.complete[i])
				}
			}
		})
	}
}

func TestTrack_BumpLimitAfterReset(t *testing.T) {
	f := newTrackFixture()
	f.settings.StartingX = -10
	f.settings.Floor = -10
	f.settings.BumpLimit = 3
	tr := f.track()
	tr.Down()
	tr.Reset()
	tr.Down()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	tr.Down()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	tr.Down()
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
}

func TestTrack_Threshold(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 7
	f.first().StepSize = 3
	f.first().Down = 2
	f.first().Up = 1
	tr := f.track()
	apply(tr, "dduudd")
	assertXAfter(t, tr, "uuuu", 12)
	assertXAfter(t, tr, "dddd", 6)
	assertXAfterUp(t, tr, 9)
	assertXAfter(t, tr, "dddd", 3)
	tr.Up()
	if got := tr.Threshold(4); got != (12+6+9+3)/4.0 {
		t.Errorf("Threshold(4) = %v, want %v", got, (12+6+9+3)/4.0)
	}
}

func TestTrack_ThresholdFromTwoSequences(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 4
	f.first().StepSize = 3
	f.first().Down = 2
	f.first().Up = 1
	*f.second() = TrackingSequence{RunCount: 5, StepSize: 6, Down: 2, Up: 1}
	tr := f.track()
	assertXAfter(t, tr, "dduudddduuu", 6)
	assertXAfter(t, tr, "dd", 0)
	assertXAfter(t, tr, "uuuu", 24)
	assertXAfter(t, tr, "dd", 18)
	assertXAfter(t, tr, "uuu", 36)
	assertXAfter(t, tr, "dd", 30)
	tr.Up()
	if got := tr.Threshold(6); got != (6+0+24+18+36+30)/6.0 {
		t.Errorf("Threshold(6) = %v, want %v", got, (6+0+24+18+36+30)/6.0)
	}
}

func TestTrack_ThresholdTooManyReversals(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 4
	f.first().StepSize = 3
	f.first().Down = 2
	f.first().Up = 1
	tr := f.track()
	assertXAfter(t, tr, "dddddd", -9)
	assertXAfter(t, tr, "uu", -3)
	assertXAfter(t, tr, "dd", -6)
	assertXAfter(t, tr, "uuu", 3)
	apply(tr, "dd")
	if got := tr.Threshold(5); got != (-9-3-6+3)/4.0 {
		t.Errorf("Threshold(5) = %v, want %v", got, (-9-3-6+3)/4.0)
	}
	if got, want := tr.ReversalXs(), []float64{-9, -3, -6, 3}; !slices.Equal(got, want) {
		t.Errorf("ReversalXs() = %v, want %v", got, want)
	}
}

func TestTrack_ThresholdNonPositiveReversals(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 4
	f.first().StepSize = 3
	f.first().Down = 2
	f.first().Up = 1
	tr := f.track()
	apply(tr, "dduddudd")
	if got := tr.Threshold(-1); !math.IsNaN(got) {
		t.Errorf("Threshold(-1) = %v, want NaN", got)
	}
	if got := tr.Threshold(0); !math.IsNaN(got) {
		t.Errorf("Threshold(0) = %v, want NaN", got)
	}
	if math.IsNaN(tr.Threshold(1)) {
		t.Errorf("Threshold(1) = NaN, want a level")
	}
}

// Levitt (1971), https://doi.org/10.1121/1.1912375
func TestTrack_LevittFigure4(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 8
	f.first().StepSize = 1
	f.first().Down = 1
	f.first().Up = 1
	assertXAfter(t, f.track(), "dduuuudduuuddddduuudduu", 1)
}

func TestTrack_LevittFigure5(t *testing.T) {
	f := newTrackFixture()
	f.first().RunCount = 5
	f.first().StepSize = 1
	f.first().Down = 2
	f.first().Up = 1
	assertXAfter(t, f.track(), "dddduduududdddduuuddddd", 1)
}

func twoSequenceFixture() *trackFixture {
	f := newTrackFixture()
	f.settings.StartingX = 65
	f.first().RunCount = 2
	f.first().StepSize = 8
	f.first().Down = 2
	f.first().Up = 1
	*f.second() = TrackingSequence{RunCount: 1, StepSize: 4, Down: 2, Up: 1}
	return f
}

func assertTwoSequenceTrajectory(t *testing.T, tr *Track) {
	t.Helper()
	assertXAfterDown(t, tr, 65)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8-8)
	assertXAfterUp(t, tr, 65-8-8+8)
	assertXAfterUp(t, tr, 65-8-8+8+8)
	assertXAfterDown(t, tr, 65-8-8+8+8)
	assertXAfterDown(t, tr, 65-8-8+8+8-4)
	assertXAfterDown(t, tr, 65-8-8+8+8-4)
	assertXAfterDown(t, tr, 65-8-8+8+8-4-4)
	assertXAfterUp(t, tr, 65-8-8+8+8-4-4)
}

func TestTrack_TwoSequences(t *testing.T) {
	assertTwoSequenceTrajectory(t, twoSequenceFixture().track())
}

func TestTrack_TwoSequencesWithReset(t *testing.T) {
	tr := twoSequenceFixture().track()
	apply(tr, "dddduuddddu")
	tr.Reset()
	assertTwoSequenceTrajectory(t, tr)
}

func TestTrack_TwoSequencesWithResetMidSequence(t *testing.T) {
	tr := twoSequenceFixture().track()
	apply(tr, "dddduud")
	tr.Reset()
	assertXAfterDown(t, tr, 65)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8-8)
	assertXAfterUp(t, tr, 65-8-8+8)
}

func TestTrack_ThreeSequences(t *testing.T) {
	f := newTrackFixture()
	*f.first() = TrackingSequence{RunCount: 1, StepSize: 10, Down: 3, Up: 1}
	*f.second() = TrackingSequence{RunCount: 1, StepSize: 5, Down: 3, Up: 1}
	*f.third() = TrackingSequence{RunCount: 6, StepSize: 2, Down: 3, Up: 1}
	assertXAfter(t, f.track(), "ddudddudddddudddddduddd", 3)
}

func TestTrack_VaryingDownUpRule(t *testing.T) {
	f := newTrackFixture()
	f.settings.StartingX = 65
	*f.first() = TrackingSequence{RunCount: 2, StepSize: 8, Up: 1, Down: 2}
	*f.second() = TrackingSequence{RunCount: 1, StepSize: 4, Up: 2, Down: 1}
	tr := f.track()
	assertXAfterDown(t, tr, 65)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8)
	assertXAfterDown(t, tr, 65-8-8)
	assertXAfterUp(t, tr, 65-8-8+8)
	assertXAfterUp(t, tr, 65-8-8+8+8)
	assertXAfterDown(t, tr, 65-8-8+8+8)
	assertXAfterDown(t, tr, 65-8-8+8+8-4)
	assertXAfterDown(t, tr, 65-8-8+8+8-4-4)
	assertXAfterUp(t, tr, 65-8-8+8+8-4-4)
	assertXAfterUp(t, tr, 65-8-8+8+8-4-4)
}

func TestTrack_Reversals(t *testing.T) {
	f := newTrackFixture()
	f.first().Down = 2
	f.first().Up = 1
	tr := f.track()
	if got := tr.Reversals(); got != 0 {
		t.Errorf("Reversals() = %v, want %v", got, 0)
	}
	steps := []struct {
		dir  byte
		want int
	}{{'u', 0}, {'d', 0}, {'d', 1}, {'u', 2}, {'d', 2}, {'d', 3}}
	for _, s := range steps {
		apply(tr, string(s.dir))
		if got := tr.Reversals(); got != s.want {
			t.Errorf("Reversals() = %v, want %v", got, s.want)
		}
	}
}

func TestTrack_SanityTest(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 2
	f.first().StepSize = 3
	f.settings.BumpLimit = 5
	f.settings.Floor = -10
	tr := f.track()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	for _, want := range []float64{0, -3, -3, -6, -6, -9, -9, -10} {
		assertXAfterDown(t, tr, want)
	}
	for range 4 {
		tr.Down()
		if tr.Complete() {
			t.Errorf("Complete() = true, want false")
		}
	}
	tr.Up()
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	if got := tr.X(); got != -7.0 {
		t.Errorf("X() = %v, want %v", got, -7.0)
	}
	assertXAfterDown(t, tr, -7)
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	assertXAfterDown(t, tr, -10)
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
	for range 4 {
		tr.Down()
		if tr.Complete() {
			t.Errorf("Complete() = true, want false")
		}
	}
	tr.Down()
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
	for _, c := range "uuddudd" + "u" {
		apply(tr, string(c))
		if !tr.Complete() {
			t.Errorf("Complete() = false, want true")
		}
	}
	if got := tr.X(); got != -10.0 {
		t.Errorf("X() = %v, want %v", got, -10.0)
	}
}

func TestTrack_ResetResetsReversals(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	tr := f.track()
	tr.Down()
	tr.Up()
	tr.Reset()
	if got := tr.Reversals(); got != 0 {
		t.Errorf("Reversals() = %v, want %v", got, 0)
	}
	if got := tr.ReversalXs(); len(got) != 0 {
		t.Errorf("ReversalXs() = %v, want empty", got)
	}
	tr.Down()
	if got := tr.Reversals(); got != 0 {
		t.Errorf("Reversals() = %v, want %v", got, 0)
	}
	tr.Up()
	if got := tr.Reversals(); got != 1 {
		t.Errorf("Reversals() = %v, want %v", got, 1)
	}
}

func TestTrack_ResetRestoresStartingX(t *testing.T) {
	f := newTrackFixture()
	f.settings.StartingX = 4
	f.first().Up = 1
	f.first().Down = 1
	f.first().StepSize = 2
	tr := f.track()
	apply(tr, "ddduduu")
	tr.Reset()
	if got := tr.X(); got != 4.0 {
		t.Errorf("X() = %v, want %v", got, 4.0)
	}
	if got := tr.Reversals(); got != 0 {
		t.Errorf("Reversals() = %v, want %v", got, 0)
	}
	if tr.Complete() {
		t.Errorf("Complete() = true, want false")
	}
}

func TestTrack_CompleteIsIdempotent(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	f.first().RunCount = 1
	f.first().StepSize = 1
	tr := f.track()
	apply(tr, "du")
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
	x, r := tr.X(), tr.Reversals()
	apply(tr, "ddduuu")
	if !tr.Complete() {
		t.Errorf("Complete() = false, want true")
	}
	if got := tr.X(); got != x {
		t.Errorf("X() = %v, want %v", got, x)
	}
	if got := tr.Reversals(); got != r {
		t.Errorf("Reversals() = %v, want %v", got, r)
	}
}

func TestTrack_String(t *testing.T) {
	f := newTrackFixture()
	f.first().Up = 1
	f.first().Down = 1
	f.first().StepSize = 2
	tr := f.track()
	if got := tr.String(); got != "levitt{x=0 sequence=0/1 reversals=0 bumps=0}" {
		t.Errorf("String() = %v, want %v", got, "levitt{x=0 sequence=0/1 reversals=0 bumps=0}")
	}
	apply(tr, "du")
	if got := tr.String(); got != "levitt{x=0 sequence=0/1 reversals=1 bumps=0}" {
		t.Errorf("String() = %v, want %v", got, "levitt{x=0 sequence=0/1 reversals=1 bumps=0}")
	}
}
