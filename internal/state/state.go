// Package state persists small operational checkpoints between runs:
// the last successful refresh per source and running failure counts.
// Refresh history and domain data live in the SQLite store; this is
// only the bookkeeping the scheduler needs to survive a restart.
package state

import (
	"context"
	"time"
)

// Checkpoint records the last successful refresh for one source.
type Checkpoint struct {
	Source      string    `json:"source"`
	RefreshID   string    `json:"refresh_id"`
	CompletedAt time.Time `json:"completed_at"`
	Records     int       `json:"records"`
}

// Store persists checkpoints and failure counters.
type Store interface {
	// PutCheckpoint stores the checkpoint for its source.
	PutCheckpoint(ctx context.Context, cp *Checkpoint) error
	// GetCheckpoint returns the checkpoint for a source, or nil when
	// none was recorded yet.
	GetCheckpoint(ctx context.Context, source string) (*Checkpoint, error)
	// ListCheckpoints returns all recorded checkpoints.
	ListCheckpoints(ctx context.Context) ([]*Checkpoint, error)
	// IncrementFailures bumps the consecutive failure count for a
	// source and returns the new value.
	IncrementFailures(ctx context.Context, source string) (int, error)
	// ResetFailures clears the failure count after a success.
	ResetFailures(ctx context.Context, source string) error
	// Failures returns the current consecutive failure count.
	Failures(ctx context.Context, source string) (int, error)
	// Close releases the backing store.
	Close() error
}

// Open picks the backend: in-memory when requested or when no
// directory is configured, Badger on disk otherwise.
func Open(dir string, inMemory bool) (Store, error) {
	if inMemory || dir == "" {
		return NewMemoryStore(), nil
	}
	return OpenBadgerStore(dir)
}
