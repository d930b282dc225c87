package adaptive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/threshold.report/internal/psychometric"
)

// Kind names an adaptive procedure.
type Kind string

const (
	KindLevitt Kind = "levitt"
	KindUML    Kind = "uml"
)

// SpaceKind selects how a parameter grid is spaced.
type SpaceKind string

const (
	SpaceLinear SpaceKind = "linear"
	SpaceLog    SpaceKind = "log"
)

// ParameterSpaceSetting describes a parameter grid, e.g. "linear -30 30 61".
type ParameterSpaceSetting struct {
	Kind  SpaceKind
	Lower float64
	Upper float64
	N     int
}

// Space builds the grid.
func (s ParameterSpaceSetting) Space() []float64 {
	if s.Kind == SpaceLog {
		return Logspace(s.Lower, s.Upper, s.N)
	}
	return Linspace(s.Lower, s.Upper, s.N)
}

func (s ParameterSpaceSetting) String() string {
	return fmt.Sprintf("%s %s %s %d", s.Kind, formatFloat(s.Lower), formatFloat(s.Upper), s.N)
}

// PriorKind selects a prior family.
type PriorKind string

const (
	PriorLinearNorm PriorKind = "linearnorm"
	PriorLogNorm    PriorKind = "lognorm"
	PriorFlat       PriorKind = "flat"
)

// PriorSetting describes a prior, e.g. "lognorm -0.5 0.4" or "flat".
type PriorSetting struct {
	Kind  PriorKind
	Mu    float64
	Sigma float64
}

// Prior builds the prior.
func (s PriorSetting) Prior() PriorProbability {
	switch s.Kind {
	case PriorLinearNorm:
		return LinearNormPrior{Mu: s.Mu, Sigma: s.Sigma}
	case PriorLogNorm:
		return LogNormPrior{Mu: s.Mu, Sigma: s.Sigma}
	default:
		return FlatPrior{}
	}
}

func (s PriorSetting) String() string {
	if s.Kind == PriorFlat {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s %s %s", s.Kind, formatFloat(s.Mu), formatFloat(s.Sigma))
}

// ParseParameterSpace parses "<linear|log> <lower> <upper> <n>".
func ParseParameterSpace(s string) (ParameterSpaceSetting, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: want 4 fields: %w", s, ErrInvalidSetting)
	}
	kind := SpaceKind(strings.ToLower(fields[0]))
	if kind != SpaceLinear && kind != SpaceLog {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: unknown spacing %q: %w", s, fields[0], ErrInvalidSetting)
	}
	lower, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: lower: %w", s, err)
	}
	upper, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: upper: %w", s, err)
	}
	n, err := strconv.Atoi(fields[3])
	if err != nil {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: points: %w", s, err)
	}
	if n < 1 {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: need at least one point: %w", s, ErrInvalidSetting)
	}
	if kind == SpaceLog && (lower <= 0 || upper <= 0) {
		return ParameterSpaceSetting{}, fmt.Errorf("parameter space %q: log bounds must be positive: %w", s, ErrInvalidSetting)
	}
	return ParameterSpaceSetting{Kind: kind, Lower: lower, Upper: upper, N: n}, nil
}

// ParsePrior parses "<linearnorm|lognorm> <mu> <sigma>" or "flat".
func ParsePrior(s string) (PriorSetting, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return PriorSetting{}, fmt.Errorf("prior %q: %w", s, ErrInvalidSetting)
	}
	kind := PriorKind(strings.ToLower(fields[0]))
	switch kind {
	case PriorFlat:
		if len(fields) != 1 {
			return PriorSetting{}, fmt.Errorf("prior %q: flat takes no arguments: %w", s, ErrInvalidSetting)
		}
		return PriorSetting{Kind: PriorFlat}, nil
	case PriorLinearNorm, PriorLogNorm:
	default:
		return PriorSetting{}, fmt.Errorf("prior %q: unknown kind %q: %w", s, fields[0], ErrInvalidSetting)
	}
	if len(fields) != 3 {
		return PriorSetting{}, fmt.Errorf("prior %q: want mu and sigma: %w", s, ErrInvalidSetting)
	}
	mu, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return PriorSetting{}, fmt.Errorf("prior %q: mu: %w", s, err)
	}
	sigma, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return PriorSetting{}, fmt.Errorf("prior %q: sigma: %w", s, err)
	}
	if sigma <= 0 {
		return PriorSetting{}, fmt.Errorf("prior %q: sigma must be positive: %w", s, ErrInvalidSetting)
	}
	return PriorSetting{Kind: kind, Mu: mu, Sigma: sigma}, nil
}

// ParameterSetting pairs a grid with its prior.
type ParameterSetting struct {
	Space ParameterSpaceSetting
	Prior PriorSetting
}

func (p ParameterSetting) distribution() ParameterDistribution {
	return NewParameterDistribution(p.Space.Space(), p.Prior.Prior())
}

// UMLSettings configures an UpdatedMaximumLikelihood built by New.
type UMLSettings struct {
	Alpha, Beta, Gamma, Lambda ParameterSetting
	Up, Down                   int
	Trials                     int
	// Estimator is "mean" (default) or "mode".
	Estimator string
}

// DefaultUMLSettings returns the example logistic grid with a 2-down 1-up
// candidate rule.
func DefaultUMLSettings() UMLSettings {
	return UMLSettings{
		Alpha: ParameterSetting{
			Space: ParameterSpaceSetting{Kind: SpaceLinear, Lower: -30, Upper: 30, N: 61},
			Prior: PriorSetting{Kind: PriorLinearNorm, Mu: 0, Sigma: 10},
		},
		Beta: ParameterSetting{
			Space: ParameterSpaceSetting{Kind: SpaceLog, Lower: 0.1, Upper: 10, N: 41},
			Prior: PriorSetting{Kind: PriorLogNorm, Mu: -0.5, Sigma: 0.4},
		},
		Gamma: ParameterSetting{
			Space: ParameterSpaceSetting{Kind: SpaceLinear, Lower: 0.02, Upper: 0.2, N: 11},
			Prior: PriorSetting{Kind: PriorFlat},
		},
		Lambda: ParameterSetting{
			Space: ParameterSpaceSetting{Kind: SpaceLinear, Lower: 0.02, Upper: 0.2, N: 11},
			Prior: PriorSetting{Kind: PriorFlat},
		},
		Up:   1,
		Down: 2,
	}
}

// Settings selects and configures a procedure. Levitt.StartingX, Ceiling and
// Floor also serve as the UML starting level and bounds.
type Settings struct {
	Method Kind
	Levitt TrackSettings
	UML    UMLSettings
}

// New builds the procedure named by s.Method.
func New(s Settings) (Method, error) {
	switch s.Method {
	case KindLevitt, "":
		return NewTrack(s.Levitt), nil
	case KindUML:
		return newUML(s)
	default:
		return nil, fmt.Errorf("%q: %w", s.Method, ErrUnknownMethod)
	}
}

func newUML(s Settings) (*UpdatedMaximumLikelihood, error) {
	var computer PhiComputer
	switch s.UML.Estimator {
	case "", "mean":
		computer = MeanPhi{}
	case "mode":
		computer = ModePhi{}
	default:
		return nil, fmt.Errorf("estimator %q: %w", s.UML.Estimator, ErrInvalidSetting)
	}
	d := PosteriorDistributions{
		Alpha:  s.UML.Alpha.distribution(),
		Beta:   s.UML.Beta.distribution(),
		Gamma:  s.UML.Gamma.distribution(),
		Lambda: s.UML.Lambda.distribution(),
	}
	spec := TrackSpecifications{
		Down:       s.UML.Down,
		Up:         s.UML.Up,
		StartingX:  s.Levitt.StartingX,
		LowerBound: s.Levitt.Floor,
		UpperBound: s.Levitt.Ceiling,
		Trials:     s.UML.Trials,
	}
	u, err := NewUpdatedMaximumLikelihood(d, psychometric.Logistic{}, computer, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build uml: %w", err)
	}
	return u, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
