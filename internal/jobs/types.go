package jobs

import (
	"context"
	"time"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/state"
)

// Source is one upstream availability provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (carpark.Availability, error)
}

// DetailSource additionally provides carpark detail records.
type DetailSource interface {
	Source
	Details(ctx context.Context) ([]carpark.Detail, error)
}

// SnapshotCache holds the latest merged snapshot and detail list for
// the API to serve.
type SnapshotCache interface {
	SetSnapshot(key string, snap *carpark.Snapshot, ttl time.Duration)
	SetDetails(key string, details []carpark.Detail, ttl time.Duration)
}

// HistoryStore persists per-source availability rows and detail
// records across refreshes.
type HistoryStore interface {
	InsertAvailability(ctx context.Context, refreshID string, snap carpark.Availability) error
	UpsertDetails(ctx context.Context, details []carpark.Detail, updatedAt time.Time) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// StateStore records per-source checkpoints and failure streaks so a
// restarted daemon knows where it left off.
type StateStore interface {
	PutCheckpoint(ctx context.Context, cp *state.Checkpoint) error
	IncrementFailures(ctx context.Context, source string) (int, error)
	ResetFailures(ctx context.Context, source string) error
}

// Exporter writes refresh artifacts to disk.
type Exporter interface {
	WriteSnapshot(ctx context.Context, snap *carpark.Snapshot) error
	WriteDetails(ctx context.Context, details []carpark.Detail) error
}

// FeedPublisher emits refresh events.
type FeedPublisher interface {
	Publish(ctx context.Context, snap *carpark.Snapshot) error
}

// Deps holds the collaborators of the refresh pipeline. Sources are
// fetched in order of authority: the first source wins when two report
// the same carpark and lot type.
type Deps struct {
	Sources  []Source
	Cache    SnapshotCache
	Store    HistoryStore
	State    StateStore
	Exporter Exporter
	Feed     FeedPublisher
	Clock    func() time.Time
	NewID    func() string
}

// Config tunes the refresh pipeline.
type Config struct {
	CacheTTL        time.Duration // snapshot lifetime in the cache
	Retention       time.Duration // history rows older than this are pruned, 0 keeps forever
	DetailsInterval time.Duration // how often carpark details are re-fetched, 0 means every cycle
}

// SourceResult is the outcome of one source fetch within a cycle.
type SourceResult struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// Result summarizes one refresh cycle.
type Result struct {
	RefreshID  string         `json:"refresh_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    string         `json:"outcome"` // "ok", "partial" or "failed"
	Lots       int            `json:"lots"`
	Sources    []SourceResult `json:"sources"`
}

// Refresh cycle outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)
