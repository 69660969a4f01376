package adapter

import (
	"context"

	"video-analysis-platform/internal/domain/model"
)

// ProgressListener receives one update. Listeners for a job are invoked
// synchronously, in registration order, on every publish.
type ProgressListener func(model.ProgressUpdate)

// ProgressBus is the publish/subscribe channel carrying live job progress.
// The in-memory implementation is private to one server process; a broker
// implementation (Redis) can be substituted at the composition root for
// multi-instance deployments without touching callers.
type ProgressBus interface {
	Publish(ctx context.Context, u model.ProgressUpdate) error
	// Subscribe registers fn for jobID and returns a cancel function that
	// deregisters it. Cancel is safe to call more than once.
	Subscribe(jobID string, fn ProgressListener) (cancel func())
	// Latest returns the most recently published update for jobID, or nil
	// when nothing has been published yet.
	Latest(ctx context.Context, jobID string) (*model.ProgressUpdate, error)
}
