package sched

import (
	"context"
	"time"

	"video-analysis-platform/internal/infra/worker"
	"video-analysis-platform/internal/usecase"

	"github.com/rs/zerolog"
)

type sweeper interface {
	Sweep(ctx context.Context) (*usecase.SweepResult, error)
}

type taskPool interface {
	Submit(task worker.Task) error
}

// SweepWorker is the externally scheduled cadence behind the cron sweep: a
// ticker that submits sweep runs into the shared worker pool. Overlapping
// runs are harmless — idempotency comes from the trigger's claim check.
type SweepWorker struct {
	interval time.Duration
	sweep    sweeper
	pool     taskPool
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, sweep sweeper, pool taskPool, logger *zerolog.Logger) *SweepWorker {
	sweepLog := logger.With().Str("component", "SweepWorker").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweepWorker{interval: interval, sweep: sweep, pool: pool, log: &sweepLog}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			if err := w.pool.Submit(w.runOnce); err != nil {
				w.log.Warn().Err(err).Msg("sweep run not scheduled")
			}
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	res, err := w.sweep.Sweep(runCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep run failed")
		return err
	}
	if res.Total > 0 {
		w.log.Info().Int("total", res.Total).Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).Msg("sweep cycle finished")
	}
	return nil
}
