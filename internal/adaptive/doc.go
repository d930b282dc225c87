// Package adaptive implements adaptive procedures that pick the stimulus
// level of the next trial from a listener's previous responses.
//
// Two procedures are provided, both satisfying Method:
//
//   - Track, a multi-sequence up/down staircase (Levitt 1971). Each
//     TrackingSequence says how many consecutive downs or ups move the level,
//     by how much, and for how many reversals the sequence stays active.
//   - UpdatedMaximumLikelihood, a Bayesian procedure that keeps a posterior
//     over the four parameters of a psychometric function and places each
//     trial at one of the function's sweet points.
//
// Down means the listener answered correctly, so the task should get harder.
// Up means the answer was wrong. Neither procedure is safe for concurrent use;
// drive each instance from a single goroutine.
package adaptive
