package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapglot/pkg/analyzer"
	"github.com/leapstack-labs/leapglot/pkg/divergence"
)

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, source, source_hash, verdict, violations, benign, errors, summary, report, created_at`

// RecordRun stores an analysis result.
func (s *SQLiteStore) RecordRun(ctx context.Context, res *analyzer.Result, src []byte) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if res == nil || res.Report == nil {
		return nil, fmt.Errorf("no result to record")
	}

	report, err := res.MarshalIndent()
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	run := &Run{
		ID:         generateID(),
		Source:     res.Source,
		SourceHash: hashSource(src),
		Verdict:    string(res.Report.Verdict),
		Violations: res.Report.Count(divergence.Violation),
		Benign:     res.Report.Count(divergence.Benign),
		Errors:     len(res.Errors),
		Summary:    res.Report.Summary(),
		Report:     string(report),
		CreatedAt:  time.Now().UTC(),
	}

	s.logger.Debug("recording run", slog.String("id", run.ID), slog.String("verdict", run.Verdict))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.SourceHash, run.Verdict, run.Violations, run.Benign, run.Errors,
		run.Summary, run.Report, run.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID, including its full report.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit, newest
// first. Reports are omitted.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return collectRuns(rows)
}

// ListRunsForSource lists the runs of one buffer content, newest first.
func (s *SQLiteStore) ListRunsForSource(ctx context.Context, src []byte, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE source_hash = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		hashSource(src), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return collectRuns(rows)
}

// PruneRuns deletes all but the newest keep runs and reports how many
// were removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var created string
	if err := row.Scan(&run.ID, &run.Source, &run.SourceHash, &run.Verdict, &run.Violations,
		&run.Benign, &run.Errors, &run.Summary, &run.Report, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	run.CreatedAt = t
	return run, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Report = ""
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
