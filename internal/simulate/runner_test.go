package simulate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/threshold.report/internal/adaptive"
	"github.com/banshee-data/threshold.report/internal/monitoring"
	"github.com/banshee-data/threshold.report/internal/psychometric"
	"github.com/banshee-data/threshold.report/internal/testutil"
	"github.com/banshee-data/threshold.report/internal/timeutil"
)

func oneStageTrack(runCount int, step float64) *adaptive.Track {
	s := adaptive.DefaultTrackSettings()
	s.Rule = adaptive.TrackingRule{{Up: 1, Down: 1, RunCount: runCount, StepSize: step}}
	return adaptive.NewTrack(s)
}

func alternating(n int) *Scripted {
	s := &Scripted{Answers: make([]bool, n)}
	for i := range s.Answers {
		s.Answers[i] = i%2 == 0
	}
	return s
}

// tickingResponder advances a mock clock by one second per answer.
type tickingResponder struct {
	Responder
	clock *timeutil.MockClock
}

func (t tickingResponder) Respond(x float64) bool {
	t.clock.Advance(time.Second)
	return t.Responder.Respond(x)
}

func TestRun_AlwaysCorrectStopsAtFloor(t *testing.T) {
	s := adaptive.DefaultTrackSettings()
	s.Rule = adaptive.TrackingRule{{Up: 1, Down: 1, RunCount: 2, StepSize: 2}}
	s.Floor = -4
	s.BumpLimit = 2
	tr := adaptive.NewTrack(s)

	clock := timeutil.NewMockClock(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	rn := &Runner{Clock: clock}
	res, err := rn.Run(context.Background(), tr,
		tickingResponder{Responder: &Scripted{Answers: []bool{true}}, clock: clock})
	require.NoError(t, err)

	assert.True(t, res.Complete)
	assert.Equal(t, []float64{0, -2, -4, -4}, res.Levels())
	assert.Equal(t, 0, res.Reversals)
	testutil.AssertNaN(t, "Threshold", res.Threshold)
	testutil.AssertNaN(t, "ReversalMean", res.ReversalMean)
	assert.Equal(t, 100.0, res.PercentCorrect)
	assert.Equal(t, 4*time.Second, res.Duration)
	assert.False(t, res.HasPhi)
}

func TestRun_AlternatingAnswers(t *testing.T) {
	tr := oneStageTrack(4, 2)
	rn := &Runner{ThresholdReversals: 4}
	res, err := rn.Run(context.Background(), tr, alternating(6))
	require.NoError(t, err)

	assert.True(t, res.Complete)
	require.Len(t, res.Trials, 5)
	for i, want := range []int{0, 1, 2, 3, 4} {
		assert.Equal(t, i, res.Trials[i].Index)
		assert.Equal(t, want, res.Trials[i].Reversals)
	}
	assert.Equal(t, []float64{-2, 0, -2, 0}, res.ReversalXs)
	testutil.AssertClose(t, "Threshold", res.Threshold, -1, 1e-15)
	testutil.AssertClose(t, "ReversalMean", res.ReversalMean, -1, 1e-15)
	testutil.AssertClose(t, "ReversalStdDev", res.ReversalStdDev, math.Sqrt(4.0/3), 1e-15)
	assert.Equal(t, 60.0, res.PercentCorrect)
}

func TestRun_ResetsMethodFirst(t *testing.T) {
	tr := oneStageTrack(4, 2)
	tr.Down()
	tr.Down()
	rn := &Runner{}
	res, err := rn.Run(context.Background(), tr, alternating(5))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Trials[0].X)
}

func TestRun_MaxTrialsCap(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})

	rn := &Runner{MaxTrials: 10}
	res, err := rn.Run(context.Background(), oneStageTrack(999, 1), &Scripted{Answers: []bool{true}})
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Len(t, res.Trials, 10)
	assert.Equal(t, -9.0, res.Trials[9].X)
	require.Len(t, logged, 1)
	assert.True(t, strings.HasPrefix(logged[0], "[simulate] stopped after 10 trials"), logged[0])
}

func TestRun_VerboseLogsEveryTrial(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	count := 0
	monitoring.SetLogger(func(format string, v ...interface{}) { count++ })

	rn := &Runner{Verbose: true}
	_, err := rn.Run(context.Background(), oneStageTrack(4, 2), alternating(5))
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rn := &Runner{}
	res, err := rn.Run(ctx, oneStageTrack(4, 2), &Scripted{Answers: []bool{true}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Trials)
	assert.False(t, res.Complete)
}

func TestRun_UMLWithSimulatedListener(t *testing.T) {
	s := adaptive.Settings{
		Method: adaptive.KindUML,
		Levitt: adaptive.TrackSettings{StartingX: 30, Ceiling: 30, Floor: -30},
		UML:    adaptive.DefaultUMLSettings(),
	}
	s.UML.Trials = 30
	m, err := adaptive.New(s)
	require.NoError(t, err)

	listener := NewListener(psychometric.Phi{Alpha: -5, Beta: 1, Gamma: 0.05, Lambda: 0.05}, 42)
	res, err := (&Runner{}).Run(context.Background(), m, listener)
	require.NoError(t, err)

	assert.True(t, res.Complete)
	assert.Len(t, res.Trials, 30)
	require.True(t, res.HasPhi)
	assert.GreaterOrEqual(t, res.Phi.Alpha, -30.0)
	assert.LessOrEqual(t, res.Phi.Alpha, 30.0)
	for _, trial := range res.Trials {
		assert.GreaterOrEqual(t, trial.X, -30.0)
		assert.LessOrEqual(t, trial.X, 30.0)
	}
}

func TestRun_SameSeedSameRun(t *testing.T) {
	phi := psychometric.Phi{Alpha: 3, Beta: 0.5, Gamma: 0.1, Lambda: 0.02}
	run := func() []float64 {
		res, err := (&Runner{MaxTrials: 60}).Run(context.Background(), oneStageTrack(999, 1), NewListener(phi, 7))
		require.NoError(t, err)
		return res.Levels()
	}
	assert.Equal(t, run(), run())
}
