//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"

	"github.com/google/uuid"
)

func newTestJob(userID string, createdAt time.Time) *model.Job {
	id := uuid.NewString()
	return &model.Job{
		JobID:     id,
		UserID:    userID,
		VideoID:   "v-" + id[:8],
		Status:    model.JobStatusQueued,
		Params:    map[string]string{model.ParamVideoKey: userID + "/video/source.mp4"},
		CreatedAt: createdAt,
	}
}

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewJobRepo(testPool)

	t.Run("should create and read back a job", func(t *testing.T) {
		cleanup(t)

		job := newTestJob("u-1", time.Now())
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := repo.Create(ctx, job); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("duplicate create err = %v, want ErrAlreadyExists", err)
		}

		got, err := repo.Get(ctx, job.JobID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Status != model.JobStatusQueued || got.ExternalHandle != "" {
			t.Fatalf("job = %+v", got)
		}
		if got.Params[model.ParamVideoKey] != job.Params[model.ParamVideoKey] {
			t.Fatalf("params = %+v", got.Params)
		}

		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get missing err = %v, want ErrNotFound", err)
		}
	})

	t.Run("should apply partial updates and clear handle with empty string", func(t *testing.T) {
		cleanup(t)

		job := newTestJob("u-1", time.Now())
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}

		failed := model.JobStatusFailed
		msg := "provider rejected submission"
		errType := model.ErrorTypeProviderAPI
		if err := repo.Update(ctx, job.JobID, repository.JobUpdate{
			Status:    &failed,
			Error:     &msg,
			ErrorType: &errType,
		}); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, _ := repo.Get(ctx, job.JobID)
		if got.Status != failed || got.Error != msg || got.ErrorType != errType {
			t.Fatalf("job after update = %+v", got)
		}

		// Set then clear the handle.
		handle := "rp-1"
		if err := repo.Update(ctx, job.JobID, repository.JobUpdate{ExternalHandle: &handle}); err != nil {
			t.Fatalf("Update handle: %v", err)
		}
		empty := ""
		if err := repo.Update(ctx, job.JobID, repository.JobUpdate{ExternalHandle: &empty}); err != nil {
			t.Fatalf("Update clear handle: %v", err)
		}
		got, _ = repo.Get(ctx, job.JobID)
		if got.ExternalHandle != "" {
			t.Fatalf("handle = %q, want cleared", got.ExternalHandle)
		}

		var isNull bool
		if err := testPool.QueryRow(ctx,
			"SELECT external_handle IS NULL FROM jobs WHERE job_id = $1", job.JobID).Scan(&isNull); err != nil {
			t.Fatalf("query handle: %v", err)
		}
		if !isNull {
			t.Fatal("cleared handle must be NULL, not empty string")
		}
	})

	t.Run("should list untriggered jobs oldest first with limit", func(t *testing.T) {
		cleanup(t)

		base := time.Now().Add(-time.Hour)
		var oldest *model.Job
		for i := 0; i < 12; i++ {
			j := newTestJob("u-1", base.Add(time.Duration(i)*time.Minute))
			if i == 0 {
				oldest = j
			}
			if err := repo.Create(ctx, j); err != nil {
				t.Fatalf("Create %d: %v", i, err)
			}
		}
		// A submitted job does not show up.
		submitted := newTestJob("u-1", base)
		submitted.ExternalHandle = "rp-1"
		submitted.Status = model.JobStatusRunning
		if err := repo.Create(ctx, submitted); err != nil {
			t.Fatalf("Create submitted: %v", err)
		}

		jobs, err := repo.ListUntriggered(ctx, 10)
		if err != nil {
			t.Fatalf("ListUntriggered: %v", err)
		}
		if len(jobs) != 10 {
			t.Fatalf("len = %d, want 10", len(jobs))
		}
		if jobs[0].JobID != oldest.JobID {
			t.Fatalf("first job = %s, want the oldest", jobs[0].JobID)
		}
	})

	t.Run("should claim a queued job exactly once", func(t *testing.T) {
		cleanup(t)

		job := newTestJob("u-1", time.Now())
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("Create: %v", err)
		}

		claimed, err := repo.MarkRunning(ctx, job.JobID, "rp-1")
		if err != nil {
			t.Fatalf("MarkRunning: %v", err)
		}
		if !claimed {
			t.Fatal("first claim must succeed")
		}

		// A concurrent trigger loses the claim.
		claimed, err = repo.MarkRunning(ctx, job.JobID, "rp-2")
		if err != nil {
			t.Fatalf("second MarkRunning: %v", err)
		}
		if claimed {
			t.Fatal("second claim must fail")
		}

		got, _ := repo.Get(ctx, job.JobID)
		if got.Status != model.JobStatusRunning || got.ExternalHandle != "rp-1" || got.CurrentStep != "submitted" {
			t.Fatalf("job after claim = %+v", got)
		}
	})
}
