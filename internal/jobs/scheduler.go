package jobs

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/zeecm/parking/internal/log"
)

// runner is the part of Refresher the scheduler drives.
type runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Scheduler triggers refresh cycles on a fixed interval. A random
// jitter is added to every delay so multiple instances polling the same
// upstream do not align their requests.
type Scheduler struct {
	refresher runner
	interval  time.Duration
	jitter    time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	rnd       *rand.Rand
}

// NewScheduler creates a scheduler for the given refresher. timeout
// bounds each cycle; zero means the cycle inherits the loop context.
func NewScheduler(r *Refresher, interval, jitter, timeout time.Duration) *Scheduler {
	return &Scheduler{
		refresher: r,
		interval:  interval,
		jitter:    jitter,
		timeout:   timeout,
		logger:    log.WithComponent("scheduler"),
		// #nosec G404 -- jitter only needs to spread load, not be unpredictable
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start runs one cycle immediately and then one per interval. It blocks
// until ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.start").
		Dur("interval", s.interval).
		Dur("jitter", s.jitter).
		Msg("scheduler started")

	s.runOnce(ctx)

	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().
				Str(log.FieldEvent, "scheduler.stop").
				Msg("scheduler stopped")
			return nil
		case <-timer.C:
			s.runOnce(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	if _, err := s.refresher.Run(runCtx); err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			s.logger.Warn().
				Str(log.FieldEvent, "scheduler.skipped").
				Msg("previous refresh still running, skipping cycle")
			return
		}
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "scheduler.refresh.failed").
			Msg("scheduled refresh failed")
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	d := s.interval
	if s.jitter > 0 {
		d += time.Duration(s.rnd.Int63n(int64(s.jitter) + 1))
	}
	return d
}
