// Package jobs runs the refresh pipeline: fetch availability from every
// configured source, merge the results into a snapshot, then fan the
// snapshot out to the cache, the history store, disk artifacts and the
// event feed. A failing source degrades the cycle instead of aborting
// it; only a cycle where every source fails is an error.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zeecm/parking/internal/cache"
	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/log"
	"github.com/zeecm/parking/internal/metrics"
	"github.com/zeecm/parking/internal/state"
)

// ErrRefreshInProgress is returned when a refresh is requested while
// another one is still running.
var ErrRefreshInProgress = errors.New("jobs: refresh already in progress")

// Refresher executes refresh cycles. At most one cycle runs at a time;
// concurrent requests are rejected with ErrRefreshInProgress.
type Refresher struct {
	deps Deps
	cfg  Config

	busy atomic.Bool

	mu          sync.Mutex
	last        *Result
	lastDetails time.Time
}

// NewRefresher wires a refresh pipeline. Sources must not be empty;
// every other collaborator is optional and skipped when nil.
func NewRefresher(deps Deps, cfg Config) (*Refresher, error) {
	if len(deps.Sources) == 0 {
		return nil, errors.New("jobs: at least one source is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Refresher{deps: deps, cfg: cfg}, nil
}

// Run executes one refresh cycle. The returned Result is non-nil even
// when the cycle failed, so callers can report what happened.
func (r *Refresher) Run(ctx context.Context) (*Result, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer r.busy.Store(false)

	return r.runOnce(ctx)
}

// LastResult returns the outcome of the most recent cycle, or nil if
// none has completed yet.
func (r *Refresher) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// LastRun returns the finish time of the most recent cycle, or the zero
// time if none has completed yet.
func (r *Refresher) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return time.Time{}
	}
	return r.last.FinishedAt
}

func (r *Refresher) runOnce(ctx context.Context) (*Result, error) {
	refreshID := r.deps.NewID()
	started := r.deps.Clock()
	logger := log.WithComponentFromContext(ctx, "jobs")

	logger.Info().
		Str(log.FieldEvent, "refresh.start").
		Str(log.FieldRefreshID, refreshID).
		Int("sources", len(r.deps.Sources)).
		Msg("starting refresh")

	avs := make([]carpark.Availability, len(r.deps.Sources))
	errs := make([]error, len(r.deps.Sources))

	var wg sync.WaitGroup
	for i, src := range r.deps.Sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			avs[i], errs[i] = src.Fetch(ctx)
		}()
	}
	wg.Wait()

	results := make([]SourceResult, 0, len(r.deps.Sources))
	fetched := make([]carpark.Availability, 0, len(r.deps.Sources))
	okNames := make([]string, 0, len(r.deps.Sources))

	for i, src := range r.deps.Sources {
		name := src.Name()
		if errs[i] != nil {
			results = append(results, SourceResult{Source: name, Error: errs[i].Error()})
			metrics.RecordRefreshFailure("fetch:" + name)
			r.noteSourceFailure(ctx, logger, name, errs[i])
			continue
		}

		av := avs[i]
		results = append(results, SourceResult{Source: name, Records: len(av.Lots)})
		fetched = append(fetched, av)
		okNames = append(okNames, name)
		r.noteSourceSuccess(ctx, logger, refreshID, av)
	}

	if len(fetched) == 0 {
		finished := r.deps.Clock()
		res := &Result{
			RefreshID:  refreshID,
			StartedAt:  started,
			FinishedAt: finished,
			Outcome:    OutcomeFailed,
			Sources:    results,
		}
		r.setLast(res)
		metrics.RecordRefresh(OutcomeFailed, finished.Sub(started))
		logger.Error().
			Str(log.FieldEvent, "refresh.failed").
			Str(log.FieldRefreshID, refreshID).
			Msg("all sources failed")
		return res, fmt.Errorf("refresh %s: all sources failed: %w", refreshID, errors.Join(errs...))
	}

	merged := carpark.Merge(fetched...)
	snap := &carpark.Snapshot{
		RefreshID: refreshID,
		FetchedAt: r.deps.Clock(),
		Sources:   okNames,
		Lots:      merged,
	}

	recordLotGauges(merged)

	if r.deps.Cache != nil {
		r.deps.Cache.SetSnapshot(cache.SnapshotKey, snap, r.cfg.CacheTTL)
	}

	r.refreshDetails(ctx, logger)

	if r.deps.Exporter != nil {
		if err := r.deps.Exporter.WriteSnapshot(ctx, snap); err != nil {
			metrics.RecordRefreshFailure("export")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "refresh.export.failed").
				Str(log.FieldRefreshID, refreshID).
				Msg("snapshot export failed")
		}
	}

	if r.deps.Feed != nil {
		if err := r.deps.Feed.Publish(ctx, snap); err != nil {
			metrics.RecordRefreshFailure("feed")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "refresh.feed.failed").
				Str(log.FieldRefreshID, refreshID).
				Msg("feed publish failed")
		}
	}

	r.prune(ctx, logger)

	outcome := OutcomeOK
	if len(okNames) < len(r.deps.Sources) {
		outcome = OutcomePartial
	}

	finished := r.deps.Clock()
	res := &Result{
		RefreshID:  refreshID,
		StartedAt:  started,
		FinishedAt: finished,
		Outcome:    outcome,
		Lots:       len(merged),
		Sources:    results,
	}
	r.setLast(res)
	metrics.RecordRefresh(outcome, finished.Sub(started))

	logger.Info().
		Str(log.FieldEvent, "refresh.complete").
		Str(log.FieldRefreshID, refreshID).
		Str("outcome", outcome).
		Int("lots", len(merged)).
		Dur("duration", finished.Sub(started)).
		Msg("refresh completed")

	return res, nil
}

// noteSourceFailure records the failure streak for a source and logs it.
func (r *Refresher) noteSourceFailure(ctx context.Context, logger zerolog.Logger, name string, fetchErr error) {
	ev := logger.Error().Err(fetchErr).
		Str(log.FieldEvent, "refresh.source.failed").
		Str(log.FieldSource, name)

	if r.deps.State != nil {
		if streak, err := r.deps.State.IncrementFailures(ctx, name); err == nil {
			ev = ev.Int("consecutive_failures", streak)
		}
	}
	ev.Msg("source fetch failed")
}

// noteSourceSuccess persists the history rows and the checkpoint for a
// fetched source. Persistence failures degrade to warnings: the data is
// still served from the cache.
func (r *Refresher) noteSourceSuccess(ctx context.Context, logger zerolog.Logger, refreshID string, av carpark.Availability) {
	logger.Debug().
		Str(log.FieldEvent, "refresh.source.fetched").
		Str(log.FieldSource, av.Source).
		Int(log.FieldRecords, len(av.Lots)).
		Msg("source fetched")

	if r.deps.Store != nil {
		if err := r.deps.Store.InsertAvailability(ctx, refreshID, av); err != nil {
			metrics.RecordRefreshFailure("store")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "refresh.history.failed").
				Str(log.FieldSource, av.Source).
				Msg("history insert failed")
		}
	}

	if r.deps.State != nil {
		if err := r.deps.State.ResetFailures(ctx, av.Source); err != nil {
			logger.Warn().Err(err).Str(log.FieldSource, av.Source).Msg("reset failure streak")
		}
		cp := &state.Checkpoint{
			Source:      av.Source,
			RefreshID:   refreshID,
			CompletedAt: r.deps.Clock(),
			Records:     len(av.Lots),
		}
		if err := r.deps.State.PutCheckpoint(ctx, cp); err != nil {
			logger.Warn().Err(err).Str(log.FieldSource, av.Source).Msg("checkpoint write failed")
		}
	}
}

// refreshDetails re-fetches carpark detail records when they are due.
// Detail tariffs change rarely, so this runs on a much longer cadence
// than availability.
func (r *Refresher) refreshDetails(ctx context.Context, logger zerolog.Logger) {
	ds := r.detailSource()
	if ds == nil || !r.detailsDue() {
		return
	}

	details, err := ds.Details(ctx)
	if err != nil {
		metrics.RecordRefreshFailure("details")
		logger.Warn().Err(err).
			Str(log.FieldEvent, "refresh.details.failed").
			Str(log.FieldSource, ds.Name()).
			Msg("details fetch failed")
		return
	}

	now := r.deps.Clock()
	if r.deps.Store != nil {
		if err := r.deps.Store.UpsertDetails(ctx, details, now); err != nil {
			metrics.RecordRefreshFailure("store")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "refresh.details.store_failed").
				Msg("details upsert failed")
		}
	}
	if r.deps.Cache != nil {
		// no TTL: details are served until the next successful fetch
		r.deps.Cache.SetDetails(cache.DetailsKey, details, 0)
	}
	if r.deps.Exporter != nil {
		if err := r.deps.Exporter.WriteDetails(ctx, details); err != nil {
			metrics.RecordRefreshFailure("export")
			logger.Warn().Err(err).
				Str(log.FieldEvent, "refresh.details.export_failed").
				Msg("details export failed")
		}
	}

	r.mu.Lock()
	r.lastDetails = now
	r.mu.Unlock()

	logger.Info().
		Str(log.FieldEvent, "refresh.details.updated").
		Int(log.FieldRecords, len(details)).
		Msg("carpark details updated")
}

func (r *Refresher) detailSource() DetailSource {
	for _, src := range r.deps.Sources {
		if ds, ok := src.(DetailSource); ok {
			return ds
		}
	}
	return nil
}

func (r *Refresher) detailsDue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastDetails.IsZero() {
		return true
	}
	return r.deps.Clock().Sub(r.lastDetails) >= r.cfg.DetailsInterval
}

func (r *Refresher) prune(ctx context.Context, logger zerolog.Logger) {
	if r.deps.Store == nil || r.cfg.Retention <= 0 {
		return
	}
	cutoff := r.deps.Clock().Add(-r.cfg.Retention)
	removed, err := r.deps.Store.Prune(ctx, cutoff)
	if err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "refresh.prune.failed").
			Msg("history prune failed")
		return
	}
	if removed > 0 {
		logger.Debug().
			Str(log.FieldEvent, "refresh.prune").
			Int64("removed", removed).
			Msg("history pruned")
	}
}

func (r *Refresher) setLast(res *Result) {
	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
}

// recordLotGauges publishes the merged availability totals per agency
// and lot type.
func recordLotGauges(lots []carpark.Lot) {
	type key struct {
		agency  carpark.Agency
		lotType carpark.LotType
	}
	totals := make(map[key]int)
	for _, l := range lots {
		totals[key{l.Agency, l.LotType}] += l.Available
	}
	for k, n := range totals {
		metrics.SetLotsAvailable(string(k.agency), string(k.lotType), n)
	}
}
