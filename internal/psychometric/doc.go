// Package psychometric models the probability that a listener answers a
// trial correctly as a function of stimulus level.
//
// The four-parameter model is described by Phi: Alpha is the threshold
// (the level at the curve's midpoint), Beta the slope, Gamma the guess rate
// (the lower asymptote) and Lambda the lapse rate (one minus the upper
// asymptote).
//
// Besides evaluating the curve, a Function reports the curve's sweet points:
// stimulus levels at which a single trial is most informative about Alpha or
// Beta. The adaptive package places trials at these levels.
package psychometric
