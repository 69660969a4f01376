package usecase

import (
	"context"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/infra/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// jobTrigger is what the sweep needs from the trigger use case.
type jobTrigger interface {
	Trigger(ctx context.Context, jobID string) (*TriggerOutcome, error)
}

type SweepOutcome struct {
	JobID          string          `json:"job_id"`
	Triggered      bool            `json:"triggered"`
	Status         model.JobStatus `json:"status,omitempty"`
	ExternalHandle string          `json:"external_handle,omitempty"`
	ErrorType      string          `json:"error_type,omitempty"`
	Error          string          `json:"error,omitempty"`
}

type SweepResult struct {
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Outcomes  []SweepOutcome `json:"outcomes"`
}

// SweepUseCase scans for untriggered queued jobs and fans out trigger calls.
// It owns no idempotency of its own: concurrent sweeps are safe because the
// trigger's claim check makes each submission at-most-once.
type SweepUseCase struct {
	repo      repository.JobRepository
	trigger   jobTrigger
	batchSize int
	log       *zerolog.Logger
}

func NewSweepUseCase(repo repository.JobRepository, trigger jobTrigger, batchSize int, logger *zerolog.Logger) *SweepUseCase {
	if batchSize <= 0 {
		batchSize = 10
	}
	sweepLog := logger.With().Str("component", "SweepUseCase").Logger()
	return &SweepUseCase{repo: repo, trigger: trigger, batchSize: batchSize, log: &sweepLog}
}

// Sweep triggers up to batchSize of the oldest untriggered jobs concurrently,
// settle-all: one job's failure never prevents the others from being
// attempted or reported.
func (uc *SweepUseCase) Sweep(ctx context.Context) (*SweepResult, error) {
	jobs, err := uc.repo.ListUntriggered(ctx, uc.batchSize)
	if err != nil {
		return nil, err
	}

	outcomes := make([]SweepOutcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(uc.batchSize)
	for i, job := range jobs {
		i, jobID := i, job.JobID
		g.Go(func() error {
			out, err := uc.trigger.Trigger(ctx, jobID)
			if err != nil {
				outcomes[i] = SweepOutcome{JobID: jobID, Error: err.Error()}
				return nil
			}
			outcomes[i] = SweepOutcome{
				JobID:          jobID,
				Triggered:      out.Triggered,
				Status:         out.Status,
				ExternalHandle: out.ExternalHandle,
				ErrorType:      out.ErrorType,
				Error:          out.Message,
			}
			return nil
		})
	}
	_ = g.Wait()

	res := &SweepResult{Total: len(jobs), Outcomes: outcomes}
	for _, o := range outcomes {
		// A job that got submitted concurrently still counts as handled.
		if o.Triggered || o.ExternalHandle != "" {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	metrics.ObserveSweep(res.Succeeded, res.Failed)
	if res.Total > 0 {
		uc.log.Info().Int("total", res.Total).Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).Msg("sweep finished")
	}
	return res, nil
}
