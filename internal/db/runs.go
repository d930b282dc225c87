package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/threshold.report/internal/psychometric"
	"github.com/banshee-data/threshold.report/internal/simulate"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one stored simulated test.
type Run struct {
	RunID    string          `json:"run_id"`
	Method   string          `json:"method"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Seed     uint64          `json:"seed"`

	// Listener is the simulated listener's true parameters.
	Listener psychometric.Phi `json:"listener"`

	Complete       bool    `json:"complete"`
	TrialCount     int     `json:"trial_count"`
	Reversals      int     `json:"reversals"`
	Threshold      float64 `json:"-"` // NaN when no reversal was recorded
	PercentCorrect float64 `json:"percent_correct"`
	CreatedAt      int64   `json:"created_at"` // unix nanoseconds

	// Phi is the final estimate of parameter-estimating methods.
	Phi *psychometric.Phi `json:"phi,omitempty"`

	// Trials is only filled by GetRun.
	Trials []simulate.Trial `json:"trials,omitempty"`
}

// NewRun builds a Run from a finished simulation.
func NewRun(method string, settings json.RawMessage, seed uint64, listener psychometric.Phi, res simulate.Result) *Run {
	r := &Run{
		Method:         method,
		Settings:       settings,
		Seed:           seed,
		Listener:       listener,
		Complete:       res.Complete,
		TrialCount:     len(res.Trials),
		Reversals:      res.Reversals,
		Threshold:      res.Threshold,
		PercentCorrect: res.PercentCorrect,
		Trials:         res.Trials,
	}
	if res.HasPhi {
		phi := res.Phi
		r.Phi = &phi
	}
	return r
}

// RecordRun stores run and its trials in one transaction. An empty RunID is
// filled with a new UUID, a zero CreatedAt with the DB clock.
func (db *DB) RecordRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = db.Clock.Now().UnixNano()
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var settings interface{}
	if len(run.Settings) > 0 {
		settings = string(run.Settings)
	}
	var phi [4]sql.NullFloat64
	if run.Phi != nil {
		phi = [4]sql.NullFloat64{
			nullFloat(run.Phi.Alpha), nullFloat(run.Phi.Beta),
			nullFloat(run.Phi.Gamma), nullFloat(run.Phi.Lambda),
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, method, settings_json, seed,
			listener_alpha, listener_beta, listener_gamma, listener_lambda,
			complete, trial_count, reversals, threshold,
			phi_alpha, phi_beta, phi_gamma, phi_lambda,
			percent_correct, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Method, settings, int64(run.Seed),
		run.Listener.Alpha, run.Listener.Beta, run.Listener.Gamma, run.Listener.Lambda,
		run.Complete, run.TrialCount, run.Reversals, nullFloat(run.Threshold),
		phi[0], phi[1], phi[2], phi[3],
		run.PercentCorrect, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trials (run_id, trial_index, x, correct, reversals)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trial insert: %w", err)
	}
	defer stmt.Close()
	for _, t := range run.Trials {
		if _, err := stmt.ExecContext(ctx, run.RunID, t.Index, t.X, t.Correct, t.Reversals); err != nil {
			return fmt.Errorf("insert trial %d: %w", t.Index, err)
		}
	}
	return tx.Commit()
}

const runColumns = `
	run_id, method, settings_json, seed,
	listener_alpha, listener_beta, listener_gamma, listener_lambda,
	complete, trial_count, reversals, threshold,
	phi_alpha, phi_beta, phi_gamma, phi_lambda,
	percent_correct, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r         Run
		settings  sql.NullString
		seed      int64
		threshold sql.NullFloat64
		phi       [4]sql.NullFloat64
	)
	err := row.Scan(
		&r.RunID, &r.Method, &settings, &seed,
		&r.Listener.Alpha, &r.Listener.Beta, &r.Listener.Gamma, &r.Listener.Lambda,
		&r.Complete, &r.TrialCount, &r.Reversals, &threshold,
		&phi[0], &phi[1], &phi[2], &phi[3],
		&r.PercentCorrect, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if settings.Valid {
		r.Settings = json.RawMessage(settings.String)
	}
	r.Seed = uint64(seed)
	r.Threshold = math.NaN()
	if threshold.Valid {
		r.Threshold = threshold.Float64
	}
	if phi[0].Valid {
		r.Phi = &psychometric.Phi{
			Alpha:  phi[0].Float64,
			Beta:   phi[1].Float64,
			Gamma:  phi[2].Float64,
			Lambda: phi[3].Float64,
		}
	}
	return &r, nil
}

// GetRun returns the run with its trials in presentation order.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT trial_index, x, correct, reversals
		FROM trials
		WHERE run_id = ?
		ORDER BY trial_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t simulate.Trial
		if err := rows.Scan(&t.Index, &t.X, &t.Correct, &t.Reversals); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		r.Trials = append(r.Trials, t)
	}
	return r, rows.Err()
}

// ListRuns returns up to limit runs, newest first, without their trials.
// A non-positive limit returns every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its trials.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
