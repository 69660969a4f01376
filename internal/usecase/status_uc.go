package usecase

import (
	"context"
	"time"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// StatusUseCase builds the read projection served to the UI and used by the
// poll-fallback path: the stored record combined with the latest
// artifact-derived progress.
type StatusUseCase struct {
	repo  repository.JobRepository
	probe *ArtifactProbe
	log   *zerolog.Logger
}

func NewStatusUseCase(repo repository.JobRepository, probe *ArtifactProbe, logger *zerolog.Logger) *StatusUseCase {
	statusLog := logger.With().Str("component", "StatusUseCase").Logger()
	return &StatusUseCase{repo: repo, probe: probe, log: &statusLog}
}

func (uc *StatusUseCase) View(ctx context.Context, jobID string) (*model.JobView, error) {
	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	view := &model.JobView{
		JobID:          job.JobID,
		UserID:         job.UserID,
		VideoID:        job.VideoID,
		Status:         job.Status,
		ExternalHandle: job.ExternalHandle,
		RetryCount:     job.RetryCount,
		Error:          job.Error,
		ErrorType:      job.ErrorType,
		CurrentStep:    job.CurrentStep,
		CreatedAt:      job.CreatedAt.UTC().Format(time.RFC3339),
	}

	if job.Status == model.JobStatusCompleted {
		view.Progress = 100
		view.Stage = model.FinalStage().Stage
		return view, nil
	}

	// Best-effort enrichment; a probe failure just means no fresher signal.
	set, err := uc.probe.Probe(ctx, job.UserID, job.VideoID)
	if err != nil {
		uc.log.Debug().Err(err).Str("job_id", jobID).Msg("artifact probe unavailable for view")
		return view, nil
	}
	view.Progress = set.Percent
	view.Stage = set.Stage
	return view, nil
}
