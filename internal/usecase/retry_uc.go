package usecase

import (
	"context"
	"fmt"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// RetryResult is the retry controller's decision. Exactly one of Forwarded,
// Rejected or CheckStatus is set.
type RetryResult struct {
	JobID       string          `json:"job_id"`
	Forwarded   bool            `json:"forwarded"`
	Rejected    bool            `json:"rejected"`
	CheckStatus bool            `json:"check_status"`
	Reason      string          `json:"reason,omitempty"`
	RetryCount  int             `json:"retry_count,omitempty"`
	Outcome     *TriggerOutcome `json:"outcome,omitempty"`
}

// RetryUseCase validates job state and re-invokes the trigger.
type RetryUseCase struct {
	repo    repository.JobRepository
	trigger jobTrigger
	log     *zerolog.Logger
}

func NewRetryUseCase(repo repository.JobRepository, trigger jobTrigger, logger *zerolog.Logger) *RetryUseCase {
	retryLog := logger.With().Str("component", "RetryUseCase").Logger()
	return &RetryUseCase{repo: repo, trigger: trigger, log: &retryLog}
}

// Retry re-submits jobID if its state allows it. Completed and running jobs
// are rejected without mutation; a queued job that already holds a handle is
// pointed at the live status check instead of being resubmitted.
func (uc *RetryUseCase) Retry(ctx context.Context, jobID string) (*RetryResult, error) {
	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.Retriable() {
		metrics.IncRetry("rejected")
		return &RetryResult{
			JobID:    jobID,
			Rejected: true,
			Reason: fmt.Sprintf("job is %s; retry is only allowed from queued, failed, worker_died or timed_out",
				job.Status),
		}, nil
	}

	if job.Status == model.JobStatusQueued && job.Submitted() {
		metrics.IncRetry("check_status")
		return &RetryResult{
			JobID:       jobID,
			CheckStatus: true,
			Reason: fmt.Sprintf("job already submitted (handle %s); check live status instead of re-submitting",
				job.ExternalHandle),
		}, nil
	}

	// Re-open the submission window: back to queued, handle cleared, error
	// state wiped. The trigger's claim check still guards double submission.
	queued := model.JobStatusQueued
	emptyStr := ""
	retryCount := job.RetryCount + 1
	upd := repository.JobUpdate{
		Status:       &queued,
		RetryCount:   &retryCount,
		Error:        &emptyStr,
		ErrorType:    &emptyStr,
		ErrorDetails: &emptyStr,
	}
	if job.Submitted() {
		upd.ExternalHandle = &emptyStr
	}
	if err := uc.repo.Update(ctx, jobID, upd); err != nil {
		return nil, fmt.Errorf("requeue for retry: %w", err)
	}
	uc.log.Info().Str("job_id", jobID).Int("retry_count", retryCount).Msg("job requeued for retry")

	out, err := uc.trigger.Trigger(ctx, jobID)
	if err != nil {
		return nil, err
	}
	metrics.IncRetry("forwarded")
	return &RetryResult{
		JobID:      jobID,
		Forwarded:  true,
		RetryCount: retryCount,
		Outcome:    out,
	}, nil
}
