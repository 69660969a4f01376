package repository

import (
	"context"

	"video-analysis-platform/internal/domain/model"
)

// JobUpdate is a field-scoped partial update. Nil fields are left untouched.
type JobUpdate struct {
	Status *model.JobStatus
	// ExternalHandle set to the empty string clears the stored handle
	// (retry of a dead worker re-opens the submission window).
	ExternalHandle *string
	CurrentStep    *string
	Error          *string
	ErrorType      *string
	ErrorDetails   *string
	RetryCount     *int
}

type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	// Get returns domain.ErrNotFound when no record exists.
	Get(ctx context.Context, jobID string) (*model.Job, error)
	Update(ctx context.Context, jobID string, upd JobUpdate) error
	// ListUntriggered returns up to limit jobs with status=queued and no
	// external handle, oldest first.
	ListUntriggered(ctx context.Context, limit int) ([]*model.Job, error)
	// MarkRunning claims a queued, unsubmitted job: it atomically sets
	// status=running, stores the handle and sets current_step="submitted",
	// but only if the job is still queued with a null handle. It reports
	// whether this caller won the claim.
	MarkRunning(ctx context.Context, jobID, handle string) (bool, error)
}
