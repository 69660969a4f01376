package adapter

import (
	"context"
	"fmt"
)

// ProviderAPIError is a non-2xx response from the compute provider. It
// carries the status and body so they can be persisted into the job's
// error_details.
type ProviderAPIError struct {
	StatusCode int
	Body       string
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("provider api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ProviderStatus is the external compute provider's job status vocabulary.
type ProviderStatus string

const (
	ProviderStatusInQueue    ProviderStatus = "IN_QUEUE"
	ProviderStatusInProgress ProviderStatus = "IN_PROGRESS"
	ProviderStatusCompleted  ProviderStatus = "COMPLETED"
	ProviderStatusFailed     ProviderStatus = "FAILED"
	ProviderStatusCancelled  ProviderStatus = "CANCELLED"
	ProviderStatusTimedOut   ProviderStatus = "TIMED_OUT"
)

// Alive reports whether the provider still considers the job in flight.
func (s ProviderStatus) Alive() bool {
	return s == ProviderStatusInQueue || s == ProviderStatusInProgress
}

// Dead reports a provider-side terminal failure (worker died, cancelled,
// or ran out of time) as opposed to a clean completion.
func (s ProviderStatus) Dead() bool {
	return s == ProviderStatusFailed || s == ProviderStatusCancelled || s == ProviderStatusTimedOut
}

type SubmitRequest struct {
	VideoURL   string
	UserID     string
	VideoID    string
	JobID      string
	WebhookURL string
}

type SubmitResult struct {
	ID     string
	Status ProviderStatus
}

type StatusResult struct {
	Status ProviderStatus
	Output map[string]any
	Error  string
	Logs   string
}

// ComputeProvider is the hex port for the external GPU compute service.
// Submit must honor ctx cancellation; callers bound it with a hard timeout.
type ComputeProvider interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	Status(ctx context.Context, handle string) (StatusResult, error)
}
