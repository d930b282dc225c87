// Package tracksettings reads staircase rules from a small line-oriented
// text format:
//
//	up: 1 1
//	down: 2 2
//	reversals per step size: 4 6
//	step sizes (dB): 4 2
//
// The Nth number on each line belongs to the Nth sequence. Lines may appear
// in any order. Lines without a known label are ignored.
package tracksettings

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/threshold.report/internal/adaptive"
)

// ErrMalformedValue is returned when a recognised line holds a token that
// is not a finite number of the expected type.
var ErrMalformedValue = errors.New("tracksettings: malformed value")

// Property is a labelled line of the format.
type Property int

const (
	Up Property = iota
	Down
	ReversalsPerStepSize
	StepSizes
)

var propertyNames = map[Property]string{
	Up:                   "up",
	Down:                 "down",
	ReversalsPerStepSize: "reversals per step size",
	StepSizes:            "step sizes (dB)",
}

// Name returns the label used in the text format.
func (p Property) Name() string { return propertyNames[p] }

func propertyFor(label string) (Property, bool) {
	for p, name := range propertyNames {
		if name == label {
			return p, true
		}
	}
	return 0, false
}

// Interpreter turns track settings text into a rule. It holds no state
// between calls.
type Interpreter struct{}

// TrackingRule parses contents.
func (Interpreter) TrackingRule(contents string) (adaptive.TrackingRule, error) {
	return Parse(contents)
}

// Parse parses contents into a rule. Fields never mentioned stay zero. A
// document with no values gives an empty, non-nil rule.
func Parse(contents string) (adaptive.TrackingRule, error) {
	rule := adaptive.TrackingRule{}
	for n, line := range strings.Split(contents, "\n") {
		label, values, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		p, ok := propertyFor(strings.TrimSpace(label))
		if !ok {
			continue
		}
		for i, token := range strings.Fields(values) {
			if i == len(rule) {
				rule = append(rule, adaptive.TrackingSequence{})
			}
			if err := apply(&rule[i], p, token); err != nil {
				return nil, fmt.Errorf("line %d (%s): %w", n+1, p.Name(), err)
			}
		}
	}
	return rule, nil
}

func apply(seq *adaptive.TrackingSequence, p Property, token string) error {
	if p == StepSizes {
		v, err := strconv.ParseFloat(token, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%q: %w", token, ErrMalformedValue)
		}
		seq.StepSize = v
		return nil
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return fmt.Errorf("%q: %w", token, ErrMalformedValue)
	}
	switch p {
	case Up:
		seq.Up = v
	case Down:
		seq.Down = v
	case ReversalsPerStepSize:
		seq.RunCount = v
	}
	return nil
}

// Format renders rule in the text format. Parse(Format(r)) reproduces r.
func Format(rule adaptive.TrackingRule) string {
	var b strings.Builder
	line := func(p Property, value func(adaptive.TrackingSequence) string) {
		b.WriteString(p.Name())
		b.WriteString(":")
		for _, seq := range rule {
			b.WriteString(" ")
			b.WriteString(value(seq))
		}
		b.WriteString("\n")
	}
	line(Up, func(s adaptive.TrackingSequence) string { return strconv.Itoa(s.Up) })
	line(Down, func(s adaptive.TrackingSequence) string { return strconv.Itoa(s.Down) })
	line(ReversalsPerStepSize, func(s adaptive.TrackingSequence) string { return strconv.Itoa(s.RunCount) })
	line(StepSizes, func(s adaptive.TrackingSequence) string { return strconv.FormatFloat(s.StepSize, 'g', -1, 64) })
	return b.String()
}
