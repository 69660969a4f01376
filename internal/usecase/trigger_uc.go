package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// TriggerOutcome reports the result of one trigger attempt. Triggered is true
// only when THIS call submitted the job; an idempotent no-op carries the
// pre-existing status and handle instead.
type TriggerOutcome struct {
	JobID          string          `json:"job_id"`
	Triggered      bool            `json:"triggered"`
	Status         model.JobStatus `json:"status"`
	ExternalHandle string          `json:"external_handle,omitempty"`
	ErrorType      string          `json:"error_type,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// TriggerUseCase submits one queued job to the compute provider, idempotently.
type TriggerUseCase struct {
	repo          repository.JobRepository
	store         adapter.ObjectStore
	provider      adapter.ComputeProvider
	webhookURL    string
	signTTL       time.Duration
	submitTimeout time.Duration
	log           *zerolog.Logger
}

func NewTriggerUseCase(
	repo repository.JobRepository,
	store adapter.ObjectStore,
	provider adapter.ComputeProvider,
	webhookURL string,
	signTTL time.Duration,
	submitTimeout time.Duration,
	logger *zerolog.Logger,
) *TriggerUseCase {
	trigLog := logger.With().Str("component", "TriggerUseCase").Logger()
	if signTTL <= 0 {
		signTTL = time.Hour
	}
	if submitTimeout <= 0 {
		submitTimeout = 30 * time.Second
	}
	return &TriggerUseCase{
		repo:          repo,
		store:         store,
		provider:      provider,
		webhookURL:    webhookURL,
		signTTL:       signTTL,
		submitTimeout: submitTimeout,
		log:           &trigLog,
	}
}

// Trigger submits jobID to the provider if and only if it is queued with no
// external handle. Submission failures are written to the record
// (status=failed, handle left null so a retry can re-attempt); only
// not-found and configuration problems come back as errors.
func (uc *TriggerUseCase) Trigger(ctx context.Context, jobID string) (*TriggerOutcome, error) {
	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Untriggered() {
		metrics.IncTrigger("noop")
		return &TriggerOutcome{
			JobID:          jobID,
			Status:         job.Status,
			ExternalHandle: job.ExternalHandle,
			Message:        fmt.Sprintf("job is %s; nothing to do", job.Status),
		}, nil
	}

	videoKey := job.Params[model.ParamVideoKey]
	if videoKey == "" {
		uc.markFailed(ctx, jobID, model.ErrorTypeMissingConfig,
			"job params missing video storage reference", "")
		metrics.IncTrigger(model.ErrorTypeMissingConfig)
		return nil, fmt.Errorf("%w: job_params missing %q", domain.ErrMissingConfig, model.ParamVideoKey)
	}

	videoURL, err := uc.store.SignURL(ctx, videoKey, uc.signTTL)
	if err != nil {
		if errors.Is(err, domain.ErrMissingConfig) {
			uc.markFailed(ctx, jobID, model.ErrorTypeMissingConfig, "storage configuration missing", "")
			metrics.IncTrigger(model.ErrorTypeMissingConfig)
			return nil, err
		}
		uc.markFailed(ctx, jobID, model.ErrorTypeStorage, "signing input video failed", err.Error())
		metrics.IncTrigger(model.ErrorTypeStorage)
		return &TriggerOutcome{JobID: jobID, Status: model.JobStatusFailed, ErrorType: model.ErrorTypeStorage}, nil
	}

	subCtx, cancel := context.WithTimeout(ctx, uc.submitTimeout)
	defer cancel()
	res, err := uc.provider.Submit(subCtx, adapter.SubmitRequest{
		VideoURL:   videoURL,
		UserID:     job.UserID,
		VideoID:    job.VideoID,
		JobID:      job.JobID,
		WebhookURL: uc.webhookURL,
	})
	if err != nil {
		return uc.submitFailed(ctx, jobID, err)
	}

	claimed, err := uc.repo.MarkRunning(ctx, jobID, res.ID)
	if err != nil {
		return nil, fmt.Errorf("mark running: %w", err)
	}
	if !claimed {
		// Lost the claim to a concurrent trigger; report the winner's state.
		fresh, err := uc.repo.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		uc.log.Warn().Str("job_id", jobID).Str("handle", res.ID).
			Msg("submission raced a concurrent trigger; claim lost")
		metrics.IncTrigger("noop")
		return &TriggerOutcome{
			JobID:          jobID,
			Status:         fresh.Status,
			ExternalHandle: fresh.ExternalHandle,
			Message:        "job was claimed concurrently",
		}, nil
	}

	uc.log.Info().Str("job_id", jobID).Str("handle", res.ID).Msg("job submitted to provider")
	metrics.IncTrigger("submitted")
	return &TriggerOutcome{
		JobID:          jobID,
		Triggered:      true,
		Status:         model.JobStatusRunning,
		ExternalHandle: res.ID,
	}, nil
}

// submitFailed classifies a provider submit error, persists it, and returns
// the outcome. The handle stays null so a later retry may submit again.
func (uc *TriggerUseCase) submitFailed(ctx context.Context, jobID string, err error) (*TriggerOutcome, error) {
	if errors.Is(err, domain.ErrMissingConfig) {
		uc.markFailed(ctx, jobID, model.ErrorTypeMissingConfig, "provider configuration missing", "")
		metrics.IncTrigger(model.ErrorTypeMissingConfig)
		return nil, err
	}

	var apiErr *adapter.ProviderAPIError
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		uc.markFailed(ctx, jobID, model.ErrorTypeTimeout,
			fmt.Sprintf("provider submit exceeded %s", uc.submitTimeout), "")
		metrics.IncTrigger(model.ErrorTypeTimeout)
		uc.log.Error().Str("job_id", jobID).Dur("timeout", uc.submitTimeout).Msg("provider submit timed out")
		return &TriggerOutcome{JobID: jobID, Status: model.JobStatusFailed, ErrorType: model.ErrorTypeTimeout}, nil
	case errors.As(err, &apiErr):
		uc.markFailed(ctx, jobID, model.ErrorTypeProviderAPI,
			"provider rejected submission",
			fmt.Sprintf("status=%d body=%s", apiErr.StatusCode, apiErr.Body))
		metrics.IncTrigger(model.ErrorTypeProviderAPI)
		uc.log.Error().Str("job_id", jobID).Int("status", apiErr.StatusCode).Msg("provider rejected submission")
		return &TriggerOutcome{JobID: jobID, Status: model.JobStatusFailed, ErrorType: model.ErrorTypeProviderAPI}, nil
	default:
		uc.markFailed(ctx, jobID, model.ErrorTypeProviderAPI, "provider submit failed", err.Error())
		metrics.IncTrigger(model.ErrorTypeProviderAPI)
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("provider submit failed")
		return &TriggerOutcome{JobID: jobID, Status: model.JobStatusFailed, ErrorType: model.ErrorTypeProviderAPI}, nil
	}
}

func (uc *TriggerUseCase) markFailed(ctx context.Context, jobID, errType, msg, details string) {
	failed := model.JobStatusFailed
	upd := repository.JobUpdate{
		Status:    &failed,
		Error:     &msg,
		ErrorType: &errType,
	}
	if details != "" {
		upd.ErrorDetails = &details
	}
	if err := uc.repo.Update(ctx, jobID, upd); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("could not persist failure state")
	}
}
