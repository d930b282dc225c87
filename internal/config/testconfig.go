package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/banshee-data/threshold.report/internal/adaptive"
	"github.com/banshee-data/threshold.report/internal/fsutil"
)

// TestConfig describes one adaptive test. Every field is optional; the Get*
// methods supply defaults for anything left out.
type TestConfig struct {
	// Procedure
	Method    *string  `json:"method,omitempty"` // "levitt" or "uml"
	StartingX *float64 `json:"starting_x,omitempty"`
	Ceiling   *float64 `json:"ceiling,omitempty"`
	Floor     *float64 `json:"floor,omitempty"`
	BumpLimit *int     `json:"bump_limit,omitempty"`

	// Staircase rule, inline or from a track settings file. The file wins
	// when both are given.
	TrackSettingsFile    *string   `json:"track_settings_file,omitempty"`
	Up                   []int     `json:"up,omitempty"`
	Down                 []int     `json:"down,omitempty"`
	ReversalsPerStepSize []int     `json:"reversals_per_step_size,omitempty"`
	StepSizes            []float64 `json:"step_sizes,omitempty"`
	ThresholdReversals   *int      `json:"threshold,omitempty"`

	// UML
	Trials      *int    `json:"trials,omitempty"`
	UMLUp       *int    `json:"uml_up,omitempty"`
	UMLDown     *int    `json:"uml_down,omitempty"`
	Estimator   *string `json:"estimator,omitempty"` // "mean" or "mode"
	AlphaSpace  *string `json:"alpha_space,omitempty"`
	AlphaPrior  *string `json:"alpha_prior,omitempty"`
	BetaSpace   *string `json:"beta_space,omitempty"`
	BetaPrior   *string `json:"beta_prior,omitempty"`
	GammaSpace  *string `json:"gamma_space,omitempty"`
	GammaPrior  *string `json:"gamma_prior,omitempty"`
	LambdaSpace *string `json:"lambda_space,omitempty"`
	LambdaPrior *string `json:"lambda_prior,omitempty"`

	// Simulation
	MaxTrials *int `json:"max_trials,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTestConfig returns a two-stage 2-down 1-up staircase between
// -30 and 30 dB, the rule used when no config file is given.
func DefaultTestConfig() *TestConfig {
	return &TestConfig{
		Method:               ptrString(string(adaptive.KindLevitt)),
		StartingX:            ptrFloat64(0),
		Ceiling:              ptrFloat64(30),
		Floor:                ptrFloat64(-30),
		BumpLimit:            ptrInt(3),
		Up:                   []int{1, 1},
		Down:                 []int{2, 2},
		ReversalsPerStepSize: []int{2, 6},
		StepSizes:            []float64{4, 2},
		ThresholdReversals:   ptrInt(6),
	}
}

// EmptyTestConfig returns a TestConfig with all fields unset.
func EmptyTestConfig() *TestConfig {
	return &TestConfig{}
}

// LoadTestConfig loads a TestConfig from a JSON file on disk.
func LoadTestConfig(path string) (*TestConfig, error) {
	return LoadTestConfigFS(fsutil.OS{}, path)
}

// LoadTestConfigFS loads a TestConfig through fsys. The file must have a
// .json extension and be under 1MB. A relative track_settings_file is
// resolved against the config file's directory.
func LoadTestConfigFS(fsys fsutil.FileSystem, path string) (*TestConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTestConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.TrackSettingsFile != nil && *cfg.TrackSettingsFile != "" && !filepath.IsAbs(*cfg.TrackSettingsFile) {
		cfg.TrackSettingsFile = ptrString(filepath.Join(filepath.Dir(cleanPath), *cfg.TrackSettingsFile))
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TestConfig) Validate() error {
	if c.Method != nil {
		switch adaptive.Kind(*c.Method) {
		case adaptive.KindLevitt, adaptive.KindUML:
		default:
			return fmt.Errorf("method must be %q or %q, got %q", adaptive.KindLevitt, adaptive.KindUML, *c.Method)
		}
	}

	if c.GetFloor() > c.GetCeiling() {
		return fmt.Errorf("floor %g is above ceiling %g", c.GetFloor(), c.GetCeiling())
	}

	if c.BumpLimit != nil && *c.BumpLimit < 1 {
		return fmt.Errorf("bump_limit must be positive, got %d", *c.BumpLimit)
	}

	if c.ThresholdReversals != nil && *c.ThresholdReversals < 1 {
		return fmt.Errorf("threshold must be positive, got %d", *c.ThresholdReversals)
	}

	for name, v := range map[string]*int{"trials": c.Trials, "max_trials": c.MaxTrials} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}
	for name, v := range map[string]*int{"uml_up": c.UMLUp, "uml_down": c.UMLDown} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, *v)
		}
	}

	// A zero up or down count never steps.
	for name, counts := range map[string][]int{"up": c.Up, "down": c.Down} {
		for i, v := range counts {
			if v < 1 {
				return fmt.Errorf("%s[%d] must be positive, got %d", name, i, v)
			}
		}
	}
	for i, v := range c.ReversalsPerStepSize {
		if v < 0 {
			return fmt.Errorf("reversals_per_step_size[%d] must be non-negative, got %d", i, v)
		}
	}
	for i, v := range c.StepSizes {
		if v < 0 {
			return fmt.Errorf("step_sizes[%d] must be non-negative, got %g", i, v)
		}
	}

	if c.Estimator != nil && *c.Estimator != "mean" && *c.Estimator != "mode" {
		return fmt.Errorf("estimator must be \"mean\" or \"mode\", got %q", *c.Estimator)
	}

	for name, v := range map[string]*string{
		"alpha_space": c.AlphaSpace, "beta_space": c.BetaSpace,
		"gamma_space": c.GammaSpace, "lambda_space": c.LambdaSpace,
	} {
		if v == nil {
			continue
		}
		if _, err := adaptive.ParseParameterSpace(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	for name, v := range map[string]*string{
		"alpha_prior": c.AlphaPrior, "beta_prior": c.BetaPrior,
		"gamma_prior": c.GammaPrior, "lambda_prior": c.LambdaPrior,
	} {
		if v == nil {
			continue
		}
		if _, err := adaptive.ParsePrior(*v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// GetMethod returns the procedure kind or the default (levitt).
func (c *TestConfig) GetMethod() adaptive.Kind {
	if c.Method == nil {
		return adaptive.KindLevitt
	}
	return adaptive.Kind(*c.Method)
}

// GetStartingX returns the starting level or the default.
func (c *TestConfig) GetStartingX() float64 {
	if c.StartingX == nil {
		return 0
	}
	return *c.StartingX
}

// GetCeiling returns the ceiling or +Inf.
func (c *TestConfig) GetCeiling() float64 {
	if c.Ceiling == nil {
		return math.Inf(1)
	}
	return *c.Ceiling
}

// GetFloor returns the floor or -Inf.
func (c *TestConfig) GetFloor() float64 {
	if c.Floor == nil {
		return math.Inf(-1)
	}
	return *c.Floor
}

// GetBumpLimit returns the bump limit or math.MaxInt (no limit).
func (c *TestConfig) GetBumpLimit() int {
	if c.BumpLimit == nil {
		return math.MaxInt
	}
	return *c.BumpLimit
}

// GetThresholdReversals returns how many trailing reversals the threshold
// averages.
func (c *TestConfig) GetThresholdReversals() int {
	if c.ThresholdReversals == nil {
		return 4
	}
	return *c.ThresholdReversals
}

// GetTrials returns the UML trial count or the default.
func (c *TestConfig) GetTrials() int {
	if c.Trials == nil {
		return 40
	}
	return *c.Trials
}

// GetMaxTrials returns the simulation safety cap.
func (c *TestConfig) GetMaxTrials() int {
	if c.MaxTrials == nil {
		return 500
	}
	return *c.MaxTrials
}

// InlineRule returns the staircase rule given by the up/down/reversal/step
// arrays. The Nth element of each array belongs to the Nth sequence.
func (c *TestConfig) InlineRule() adaptive.TrackingRule {
	n := max(len(c.Up), len(c.Down), len(c.ReversalsPerStepSize), len(c.StepSizes))
	rule := make(adaptive.TrackingRule, n)
	for i, v := range c.Up {
		rule[i].Up = v
	}
	for i, v := range c.Down {
		rule[i].Down = v
	}
	for i, v := range c.ReversalsPerStepSize {
		rule[i].RunCount = v
	}
	for i, v := range c.StepSizes {
		rule[i].StepSize = v
	}
	return rule
}

// UMLSettings builds UML settings, starting from adaptive.DefaultUMLSettings
// and overriding what the config sets. Validate must have passed.
func (c *TestConfig) UMLSettings() (adaptive.UMLSettings, error) {
	s := adaptive.DefaultUMLSettings()
	s.Trials = c.GetTrials()
	if c.UMLUp != nil {
		s.Up = *c.UMLUp
	}
	if c.UMLDown != nil {
		s.Down = *c.UMLDown
	}
	if c.Estimator != nil {
		s.Estimator = *c.Estimator
	}
	for _, p := range []struct {
		space, prior *string
		dst          *adaptive.ParameterSetting
	}{
		{c.AlphaSpace, c.AlphaPrior, &s.Alpha},
		{c.BetaSpace, c.BetaPrior, &s.Beta},
		{c.GammaSpace, c.GammaPrior, &s.Gamma},
		{c.LambdaSpace, c.LambdaPrior, &s.Lambda},
	} {
		if p.space != nil {
			v, err := adaptive.ParseParameterSpace(*p.space)
			if err != nil {
				return adaptive.UMLSettings{}, err
			}
			p.dst.Space = v
		}
		if p.prior != nil {
			v, err := adaptive.ParsePrior(*p.prior)
			if err != nil {
				return adaptive.UMLSettings{}, err
			}
			p.dst.Prior = v
		}
	}
	return s, nil
}

// AdaptiveSettings converts the config into factory settings using rule as
// the staircase rule.
func (c *TestConfig) AdaptiveSettings(rule adaptive.TrackingRule) (adaptive.Settings, error) {
	uml, err := c.UMLSettings()
	if err != nil {
		return adaptive.Settings{}, err
	}
	return adaptive.Settings{
		Method: c.GetMethod(),
		Levitt: adaptive.TrackSettings{
			Rule:      rule,
			StartingX: c.GetStartingX(),
			Ceiling:   c.GetCeiling(),
			Floor:     c.GetFloor(),
			BumpLimit: c.GetBumpLimit(),
		},
		UML: uml,
	}, nil
}
