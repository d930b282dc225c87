package simulate

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/threshold.report/internal/adaptive"
	"github.com/banshee-data/threshold.report/internal/monitoring"
	"github.com/banshee-data/threshold.report/internal/psychometric"
	"github.com/banshee-data/threshold.report/internal/timeutil"
)

// DefaultMaxTrials caps a run when Runner.MaxTrials is not set. A Levitt
// rule with a huge run count would otherwise never finish.
const DefaultMaxTrials = 500

// DefaultThresholdReversals is used when Runner.ThresholdReversals is not set.
const DefaultThresholdReversals = 4

// Trial is one presentation and its answer.
type Trial struct {
	Index   int
	X       float64
	Correct bool
	// Reversals is the method's reversal count after the answer.
	Reversals int
}

// Result summarises a finished run.
type Result struct {
	Trials   []Trial
	Complete bool

	// Threshold is the mean level of the last ThresholdReversals reversals,
	// NaN when the method recorded none.
	Threshold float64
	// Phi is the final estimate of methods that estimate parameters.
	Phi    psychometric.Phi
	HasPhi bool

	Reversals      int
	ReversalXs     []float64
	ReversalMean   float64
	ReversalStdDev float64
	PercentCorrect float64

	Started  time.Time
	Duration time.Duration
}

// Runner presents trials to a Responder until the method completes.
type Runner struct {
	MaxTrials          int
	ThresholdReversals int
	Clock              timeutil.Clock
	// Verbose logs every trial.
	Verbose bool
}

var logf = monitoring.Prefixed("[simulate] ")

// Run resets m and drives it with r. A correct answer lowers the level
// (Down), an incorrect one raises it (Up). Hitting MaxTrials is not an
// error; Result.Complete is false instead. Cancelling ctx returns the
// trials run so far along with ctx.Err().
func (rn *Runner) Run(ctx context.Context, m adaptive.Method, r Responder) (Result, error) {
	clock := rn.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	maxTrials := rn.MaxTrials
	if maxTrials <= 0 {
		maxTrials = DefaultMaxTrials
	}

	m.Reset()
	res := Result{Started: clock.Now()}
	for i := 0; !m.Complete() && i < maxTrials; i++ {
		if err := ctx.Err(); err != nil {
			rn.summarise(&res, m, clock)
			return res, err
		}
		x := m.X()
		correct := r.Respond(x)
		if correct {
			m.Down()
		} else {
			m.Up()
		}
		res.Trials = append(res.Trials, Trial{Index: i, X: x, Correct: correct, Reversals: m.Reversals()})
		if rn.Verbose {
			logf("trial %d x=%g correct=%t -> %v", i, x, correct, m)
		}
	}
	if !m.Complete() {
		logf("stopped after %d trials without completing: %v", maxTrials, m)
	}
	rn.summarise(&res, m, clock)
	return res, nil
}

func (rn *Runner) summarise(res *Result, m adaptive.Method, clock timeutil.Clock) {
	res.Complete = m.Complete()
	res.Reversals = m.Reversals()
	res.Duration = clock.Since(res.Started)

	n := rn.ThresholdReversals
	if n <= 0 {
		n = DefaultThresholdReversals
	}
	res.Threshold = math.NaN()
	if est, ok := m.(adaptive.ThresholdEstimator); ok {
		res.Threshold = est.Threshold(n)
	}
	if est, ok := m.(adaptive.PhiEstimator); ok {
		res.Phi, res.HasPhi = est.Phi()
	}

	res.ReversalMean, res.ReversalStdDev = math.NaN(), math.NaN()
	if rec, ok := m.(adaptive.ReversalRecorder); ok {
		res.ReversalXs = rec.ReversalXs()
		switch len(res.ReversalXs) {
		case 0:
		case 1:
			res.ReversalMean, res.ReversalStdDev = res.ReversalXs[0], 0
		default:
			res.ReversalMean, res.ReversalStdDev = stat.MeanStdDev(res.ReversalXs, nil)
		}
	}

	if len(res.Trials) > 0 {
		correct := 0
		for _, t := range res.Trials {
			if t.Correct {
				correct++
			}
		}
		res.PercentCorrect = 100 * float64(correct) / float64(len(res.Trials))
	}
}

// Levels returns the presented level of every trial.
func (r Result) Levels() []float64 {
	xs := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		xs[i] = t.X
	}
	return xs
}
