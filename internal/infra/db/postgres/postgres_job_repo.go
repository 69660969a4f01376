package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `job_id, user_id, video_id, status, external_handle, params,
retry_count, error, error_type, error_details, current_step, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, job *model.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	const q = `
INSERT INTO jobs (job_id, user_id, video_id, status, external_handle, params,
                  retry_count, error, error_type, error_details, current_step, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12, $13)
ON CONFLICT (job_id) DO NOTHING;`

	tag, err := r.pool.Exec(ctx, q,
		job.JobID, job.UserID, job.VideoID, job.Status, job.ExternalHandle, job.Params,
		job.RetryCount, job.Error, job.ErrorType, job.ErrorDetails, job.CurrentStep,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, jobID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1;`
	return scanJob(r.pool.QueryRow(ctx, q, jobID))
}

// Update applies only the fields set on upd, in one statement. An empty
// string for ExternalHandle clears the column back to NULL.
func (r *jobRepo) Update(ctx context.Context, jobID string, upd repository.JobUpdate) error {
	set := []string{"updated_at = now()"}
	args := []any{jobID}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.ExternalHandle != nil {
		args = append(args, *upd.ExternalHandle)
		set = append(set, fmt.Sprintf("external_handle = NULLIF($%d, '')", len(args)))
	}
	if upd.CurrentStep != nil {
		add("current_step", *upd.CurrentStep)
	}
	if upd.Error != nil {
		args = append(args, *upd.Error)
		set = append(set, fmt.Sprintf("error = NULLIF($%d, '')", len(args)))
	}
	if upd.ErrorType != nil {
		args = append(args, *upd.ErrorType)
		set = append(set, fmt.Sprintf("error_type = NULLIF($%d, '')", len(args)))
	}
	if upd.ErrorDetails != nil {
		args = append(args, *upd.ErrorDetails)
		set = append(set, fmt.Sprintf("error_details = NULLIF($%d, '')", len(args)))
	}
	if upd.RetryCount != nil {
		add("retry_count", *upd.RetryCount)
	}

	q := fmt.Sprintf(`UPDATE jobs SET %s WHERE job_id = $1;`, strings.Join(set, ", "))
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) ListUntriggered(ctx context.Context, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'queued' AND external_handle IS NULL
ORDER BY created_at
LIMIT $1;`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list untriggered jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// MarkRunning is the atomic claim closing the trigger's read-then-write
// window: only a job still queued with no handle transitions to running.
func (r *jobRepo) MarkRunning(ctx context.Context, jobID, handle string) (bool, error) {
	const q = `
UPDATE jobs
SET status = 'running', external_handle = $2, current_step = 'submitted', updated_at = now()
WHERE job_id = $1 AND status = 'queued' AND external_handle IS NULL;`

	tag, err := r.pool.Exec(ctx, q, jobID, handle)
	if err != nil {
		return false, fmt.Errorf("mark job running: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job                     model.Job
		handle, errMsg, errType *string
		errDetails, currentStep *string
	)
	err := row.Scan(
		&job.JobID, &job.UserID, &job.VideoID, &job.Status, &handle, &job.Params,
		&job.RetryCount, &errMsg, &errType, &errDetails, &currentStep,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan job row: %w", err)
	}
	if handle != nil {
		job.ExternalHandle = *handle
	}
	if errMsg != nil {
		job.Error = *errMsg
	}
	if errType != nil {
		job.ErrorType = *errType
	}
	if errDetails != nil {
		job.ErrorDetails = *errDetails
	}
	if currentStep != nil {
		job.CurrentStep = *currentStep
	}
	return &job, nil
}
