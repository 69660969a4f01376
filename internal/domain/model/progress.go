package model

// ProgressUpdate is the ephemeral live-update payload pushed to clients.
// It is a snapshot, not a delta: consumers must tolerate duplicates and gaps.
type ProgressUpdate struct {
	JobID    string         `json:"job_id"`
	Status   JobStatus      `json:"status"`
	Progress int            `json:"progress"`
	Stage    string         `json:"stage,omitempty"`
	Error    string         `json:"error,omitempty"`
	Results  map[string]any `json:"results,omitempty"`
}

func (u ProgressUpdate) Terminal() bool { return u.Status.Terminal() }

// JobView is the read projection served to the UI: the stored record combined
// with the latest artifact-derived progress. Computed, never stored.
type JobView struct {
	JobID          string    `json:"job_id"`
	UserID         string    `json:"user_id"`
	VideoID        string    `json:"video_id"`
	Status         JobStatus `json:"status"`
	ExternalHandle string    `json:"external_handle,omitempty"`
	RetryCount     int       `json:"retry_count"`
	Error          string    `json:"error,omitempty"`
	ErrorType      string    `json:"error_type,omitempty"`
	CurrentStep    string    `json:"current_step,omitempty"`
	Progress       int       `json:"progress"`
	Stage          string    `json:"stage,omitempty"`
	CreatedAt      string    `json:"created_at"`
}
