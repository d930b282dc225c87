// Command staircase runs one simulated adaptive test against a listener
// with known psychometric parameters and reports the outcome.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/threshold.report/internal/adaptive"
	"github.com/banshee-data/threshold.report/internal/config"
	"github.com/banshee-data/threshold.report/internal/db"
	"github.com/banshee-data/threshold.report/internal/monitoring"
	"github.com/banshee-data/threshold.report/internal/psychometric"
	"github.com/banshee-data/threshold.report/internal/report"
	"github.com/banshee-data/threshold.report/internal/simulate"
	"github.com/banshee-data/threshold.report/internal/tracksettings"
	"github.com/banshee-data/threshold.report/internal/version"
)

type options struct {
	configPath    string
	trackSettings string
	method        string
	seed          uint64
	listener      psychometric.Phi
	dbPath        string
	list          int
	pngPath       string
	htmlPath      string
	verbose       bool
	quiet         bool
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("staircase", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON test config (defaults to a 2-down 1-up staircase)")
	fs.StringVar(&o.trackSettings, "track-settings", "", "Path to a track settings file; overrides the config's rule")
	fs.StringVar(&o.method, "method", "", "Override the config's method (levitt or uml)")
	fs.Uint64Var(&o.seed, "seed", 1, "Seed for the simulated listener")
	fs.Float64Var(&o.listener.Alpha, "alpha", -10, "Listener threshold (dB)")
	fs.Float64Var(&o.listener.Beta, "beta", 1, "Listener slope")
	fs.Float64Var(&o.listener.Gamma, "gamma", 0.02, "Listener guess rate")
	fs.Float64Var(&o.listener.Lambda, "lambda", 0.02, "Listener lapse rate")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record the run in")
	fs.IntVar(&o.list, "list", 0, "List the N most recent runs in -db and exit")
	fs.StringVar(&o.pngPath, "png", "", "Write a PNG plot of the level track")
	fs.StringVar(&o.htmlPath, "html", "", "Write an interactive HTML chart of the level track")
	fs.BoolVar(&o.verbose, "verbose", false, "Log every trial")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress diagnostic logs")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.list > 0 && o.dbPath == "" {
		return nil, errors.New("-list requires -db")
	}
	return o, nil
}

func loadConfig(o *options) (*config.TestConfig, adaptive.TrackingRule, error) {
	cfg := config.DefaultTestConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadTestConfig(o.configPath); err != nil {
			return nil, nil, err
		}
	}
	if o.method != "" {
		cfg.Method = &o.method
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	rulePath := o.trackSettings
	if rulePath == "" && cfg.TrackSettingsFile != nil {
		rulePath = *cfg.TrackSettingsFile
	}
	if rulePath == "" {
		return cfg, cfg.InlineRule(), nil
	}
	rule, err := tracksettings.NewReader().Read(rulePath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rule, nil
}

func run(ctx context.Context, o *options, out io.Writer) error {
	if o.showVersion {
		fmt.Fprintln(out, version.String("staircase"))
		return nil
	}
	if o.list > 0 {
		return listRuns(ctx, o, out)
	}

	cfg, rule, err := loadConfig(o)
	if err != nil {
		return err
	}
	settings, err := cfg.AdaptiveSettings(rule)
	if err != nil {
		return err
	}
	method, err := adaptive.New(settings)
	if err != nil {
		return err
	}

	runner := &simulate.Runner{
		MaxTrials:          cfg.GetMaxTrials(),
		ThresholdReversals: cfg.GetThresholdReversals(),
		Verbose:            o.verbose,
	}
	listener := simulate.NewListener(o.listener, o.seed)
	res, err := runner.Run(ctx, method, listener)
	if err != nil {
		return err
	}
	printResult(out, cfg.GetMethod(), o.listener, res)

	title := fmt.Sprintf("%s run, seed %d", cfg.GetMethod(), o.seed)
	if o.pngPath != "" {
		if err := report.SavePNG(o.pngPath, title, res.Trials, res.Threshold); err != nil {
			return err
		}
		fmt.Fprintf(out, "plot: %s\n", o.pngPath)
	}
	if o.htmlPath != "" {
		if err := report.New().SaveHTML(o.htmlPath, title, res.Trials, res.Threshold); err != nil {
			return err
		}
		fmt.Fprintf(out, "chart: %s\n", o.htmlPath)
	}

	if o.dbPath != "" {
		store, err := db.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		settingsJSON, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		r := db.NewRun(string(cfg.GetMethod()), settingsJSON, o.seed, o.listener, res)
		if err := store.RecordRun(ctx, r); err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}
		fmt.Fprintf(out, "recorded run %s\n", r.RunID)
	}
	return nil
}

func printResult(out io.Writer, method adaptive.Kind, listener psychometric.Phi, res simulate.Result) {
	fmt.Fprintf(out, "method: %s\n", method)
	fmt.Fprintf(out, "trials: %d (complete: %t)\n", len(res.Trials), res.Complete)
	fmt.Fprintf(out, "reversals: %d\n", res.Reversals)
	fmt.Fprintf(out, "percent correct: %.1f\n", res.PercentCorrect)
	if !math.IsNaN(res.Threshold) {
		fmt.Fprintf(out, "threshold: %.2f dB (listener alpha %.2f)\n", res.Threshold, listener.Alpha)
	}
	if !math.IsNaN(res.ReversalStdDev) {
		fmt.Fprintf(out, "reversal levels: mean %.2f sd %.2f\n", res.ReversalMean, res.ReversalStdDev)
	}
	if res.HasPhi {
		fmt.Fprintf(out, "phi: alpha %.3f beta %.3f gamma %.3f lambda %.3f\n",
			res.Phi.Alpha, res.Phi.Beta, res.Phi.Gamma, res.Phi.Lambda)
	}
}

func listRuns(ctx context.Context, o *options, out io.Writer) error {
	store, err := db.Open(o.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	runs, err := store.ListRuns(ctx, o.list)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s %-6s trials=%d reversals=%d threshold=%.2f\n",
			r.RunID, r.Method, r.TrialCount, r.Reversals, r.Threshold)
	}
	return nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("invalid arguments: %v", err)
	}
	if o.quiet {
		monitoring.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		log.Fatalf("staircase: %v", err)
	}
}
