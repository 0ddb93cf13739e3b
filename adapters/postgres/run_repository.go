package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"nullbench/domain/core"
	"nullbench/domain/run"
	"nullbench/domain/verdict"
	"nullbench/ports"
)

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL. Scores,
// fingerprint and result travel as JSONB so the audit record replays without
// schema churn when the result shape grows.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// SaveRun upserts a run and its accumulated null distribution
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, er *run.EvaluationRun) error {
	fingerprintJSON, err := json.Marshal(er.Fingerprint)
	if err != nil {
		return err
	}
	scoresJSON, err := json.Marshal(er.Null.Scores())
	if err != nil {
		return err
	}

	var resultJSON []byte
	if er.Result != nil {
		resultJSON, err = json.Marshal(er.Result)
		if err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO evaluation_runs (
			id, sequence_hash, scorer_name, fingerprint, status,
			requested_trials, completed_trials, failed_trials,
			null_scores, result, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			requested_trials = EXCLUDED.requested_trials,
			completed_trials = EXCLUDED.completed_trials,
			failed_trials = EXCLUDED.failed_trials,
			null_scores = EXCLUDED.null_scores,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at`,
		er.ID.String(), er.SequenceHash.String(), er.ScorerName, fingerprintJSON, string(er.Status),
		er.Counts.Requested, er.Counts.Completed, er.Counts.Failed,
		scoresJSON, resultJSON, er.CreatedAt.Time(), er.UpdatedAt.Time())

	return err
}

// GetRun retrieves a run by ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.EvaluationRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sequence_hash, scorer_name, fingerprint, status,
			   requested_trials, completed_trials, failed_trials,
			   null_scores, result, created_at, updated_at
		FROM evaluation_runs
		WHERE id = $1`, id.String())

	er, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return er, err
}

// ListRuns returns the most recent runs
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]*run.EvaluationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence_hash, scorer_name, fingerprint, status,
			   requested_trials, completed_trials, failed_trials,
			   null_scores, result, created_at, updated_at
		FROM evaluation_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*run.EvaluationRun
	for rows.Next() {
		er, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, er)
	}
	return runs, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scannable) (*run.EvaluationRun, error) {
	var (
		id, seqHash, scorerName, status     string
		fingerprintJSON, scoresJSON         []byte
		resultJSON                          []byte
		requested, completed, failed        int
		createdAt, updatedAt                time.Time
	)

	err := row.Scan(&id, &seqHash, &scorerName, &fingerprintJSON, &status,
		&requested, &completed, &failed, &scoresJSON, &resultJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var fp run.Fingerprint
	if err := json.Unmarshal(fingerprintJSON, &fp); err != nil {
		return nil, err
	}

	var scores []float64
	if err := json.Unmarshal(scoresJSON, &scores); err != nil {
		return nil, err
	}

	er := &run.EvaluationRun{
		ID:           core.RunID(id),
		SequenceHash: core.SequenceHash(seqHash),
		ScorerName:   scorerName,
		Fingerprint:  fp,
		Status:       run.Status(status),
		Counts: run.TrialCounts{
			Requested: requested,
			Completed: completed,
			Failed:    failed,
		},
		Null:      run.FromScores(scores),
		CreatedAt: core.NewTimestamp(createdAt),
		UpdatedAt: core.NewTimestamp(updatedAt),
	}

	if len(resultJSON) > 0 {
		var result verdict.SignificanceResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, err
		}
		er.Result = &result
	}

	return er, nil
}
