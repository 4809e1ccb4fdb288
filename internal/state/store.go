// Package state records analysis runs in a local SQLite history.
package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/leapglot/pkg/analyzer"
)

// Run is one recorded analysis.
type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	SourceHash string    `json:"source_hash"`
	Verdict    string    `json:"verdict"`
	Violations int       `json:"violations"`
	Benign     int       `json:"benign"`
	Errors     int       `json:"errors"`
	Summary    string    `json:"summary"`
	Report     string    `json:"report,omitempty"` // full result JSON
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the history store.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	RecordRun(ctx context.Context, res *analyzer.Result, src []byte) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListRunsForSource(ctx context.Context, src []byte, limit int) ([]*Run, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
}
