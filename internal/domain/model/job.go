package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusWorkerDied JobStatus = "worker_died"
	JobStatusTimedOut   JobStatus = "timed_out"
)

// Terminal reports whether no further processing happens without an explicit retry.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Retriable reports whether the retry controller may act on a job in this status.
func (s JobStatus) Retriable() bool {
	switch s {
	case JobStatusQueued, JobStatusFailed, JobStatusWorkerDied, JobStatusTimedOut:
		return true
	}
	return false
}

// Error type tags persisted alongside a failed job.
const (
	ErrorTypeTimeout       = "timeout"
	ErrorTypeProviderAPI   = "provider_api_error"
	ErrorTypeMissingConfig = "missing_config"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeWorkerDied    = "worker_died"
)

// ParamVideoKey is the job_params entry holding the object-storage key of the
// input video. A job cannot be submitted without it.
const ParamVideoKey = "video_key"

// Job is the persisted record for one analysis run. ExternalHandle is empty
// until the compute provider has accepted the job at least once.
type Job struct {
	JobID          string            `json:"job_id"`
	UserID         string            `json:"user_id"`
	VideoID        string            `json:"video_id"`
	Status         JobStatus         `json:"status"`
	ExternalHandle string            `json:"external_handle,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
	RetryCount     int               `json:"retry_count"`
	Error          string            `json:"error,omitempty"`
	ErrorType      string            `json:"error_type,omitempty"`
	ErrorDetails   string            `json:"error_details,omitempty"`
	CurrentStep    string            `json:"current_step,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Submitted reports whether the provider has ever accepted this job.
func (j *Job) Submitted() bool { return j.ExternalHandle != "" }

// Untriggered is the only condition under which submission is attempted.
func (j *Job) Untriggered() bool {
	return j.Status == JobStatusQueued && j.ExternalHandle == ""
}
