package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pelagos/occurrence-engine/occurrence"
	"github.com/pelagos/occurrence-engine/pipeline"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// SaveRun persists one run report. The validation error detail is stored as
// JSON; the run log is written outside the load transaction so a failed load
// still leaves its report behind.
func (s *Store) SaveRun(ctx context.Context, r pipeline.Report) error {
	var errorsJSON []byte
	if len(r.Errors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(r.Errors)
		if err != nil {
			return fmt.Errorf("marshal validation errors: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs
			(id, species, status, started_at, finished_at,
			 input_count, valid_count, duplicate_count, loaded_count,
			 errors_json, failure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Species, r.Status,
		r.StartedAt.Format(time.RFC3339Nano), r.FinishedAt.Format(time.RFC3339Nano),
		r.Input, r.Valid, r.Duplicates, r.Loaded,
		nullable(errorsJSON), nullString(r.Failure))
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns all run reports, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]pipeline.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, species, status, started_at, finished_at,
		       input_count, valid_count, duplicate_count, loaded_count,
		       errors_json, failure
		FROM pipeline_runs
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []pipeline.Report
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetRun returns one run report by id.
func (s *Store) GetRun(ctx context.Context, id string) (pipeline.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, species, status, started_at, finished_at,
		       input_count, valid_count, duplicate_count, loaded_count,
		       errors_json, failure
		FROM pipeline_runs
		WHERE id = ?`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Report{}, ErrRunNotFound
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (pipeline.Report, error) {
	var (
		r          pipeline.Report
		started    string
		finished   string
		errorsJSON sql.NullString
		failure    sql.NullString
	)
	err := row.Scan(&r.ID, &r.Species, &r.Status, &started, &finished,
		&r.Input, &r.Valid, &r.Duplicates, &r.Loaded, &errorsJSON, &failure)
	if err != nil {
		return pipeline.Report{}, err
	}

	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return pipeline.Report{}, fmt.Errorf("parse started_at for run %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return pipeline.Report{}, fmt.Errorf("parse finished_at for run %s: %w", r.ID, err)
	}
	if errorsJSON.Valid {
		var verrs []occurrence.ValidationError
		if err := json.Unmarshal([]byte(errorsJSON.String), &verrs); err != nil {
			return pipeline.Report{}, fmt.Errorf("parse errors for run %s: %w", r.ID, err)
		}
		r.Errors = verrs
	}
	r.Failure = failure.String
	return r, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
