// Package simulate drives adaptive procedures with a simulated listener
// whose answers follow a known psychometric function.
package simulate

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/threshold.report/internal/psychometric"
)

// Responder answers a single trial presented at level x.
type Responder interface {
	Respond(x float64) bool
}

// Listener answers correctly with probability Function.P(Phi, x).
type Listener struct {
	Phi      psychometric.Phi
	Function psychometric.Function
	// Src seeds the draws. A nil Src uses the global source.
	Src rand.Source
}

// NewListener returns a logistic listener with a PCG source seeded by seed.
func NewListener(phi psychometric.Phi, seed uint64) *Listener {
	return &Listener{
		Phi:      phi,
		Function: psychometric.Logistic{},
		Src:      rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// Respond draws one answer at level x.
func (l *Listener) Respond(x float64) bool {
	b := distuv.Bernoulli{P: l.Function.P(l.Phi, x), Src: l.Src}
	return b.Rand() == 1
}

// Scripted replays a fixed answer sequence, then repeats the last answer.
// It is useful for reproducing a recorded session.
type Scripted struct {
	Answers []bool
	next    int
}

// Respond returns the next scripted answer. An empty script answers false.
func (s *Scripted) Respond(float64) bool {
	if len(s.Answers) == 0 {
		return false
	}
	i := min(s.next, len(s.Answers)-1)
	s.next++
	return s.Answers[i]
}
