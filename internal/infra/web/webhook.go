package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/infra/metrics"
)

const webhookSecretHeader = "X-Webhook-Secret"

// providerCallback is the payload the worker posts back during and after a
// run. Status values follow the job lifecycle; error_type may override the
// default classification on failure.
type providerCallback struct {
	JobID     string          `json:"job_id"`
	Status    model.JobStatus `json:"status"`
	Progress  int             `json:"progress"`
	Stage     string          `json:"stage"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
	Results   map[string]any  `json:"results"`
}

// handleProviderWebhook is the sole external producer into the progress bus.
// It also persists terminal statuses and the last known pipeline stage so
// progress survives a restart and reaches poll-based observers.
func (s *Server) handleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret == "" {
		s.log.Error().Msg("webhook secret is not configured")
		writeError(w, http.StatusForbidden, "webhook not configured")
		return
	}
	got := r.Header.Get(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var cb providerCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cb.JobID == "" || !validCallbackStatus(cb.Status) {
		writeError(w, http.StatusBadRequest, "job_id and a valid status are required")
		return
	}

	if _, err := s.repo.Get(r.Context(), cb.JobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		s.log.Error().Err(err).Str("job_id", cb.JobID).Msg("webhook job lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	upd := repository.JobUpdate{Status: &cb.Status}
	if cb.Stage != "" {
		upd.CurrentStep = &cb.Stage
	}
	if cb.Status == model.JobStatusCompleted {
		final := model.FinalStage().Stage
		upd.CurrentStep = &final
	}
	if cb.Status.Terminal() || cb.Status == model.JobStatusWorkerDied || cb.Status == model.JobStatusTimedOut {
		if cb.Error != "" {
			upd.Error = &cb.Error
		}
		if et := callbackErrorType(cb); et != "" {
			upd.ErrorType = &et
		}
	}
	if err := s.repo.Update(r.Context(), cb.JobID, upd); err != nil {
		s.log.Error().Err(err).Str("job_id", cb.JobID).Msg("webhook record update failed")
		writeError(w, http.StatusInternalServerError, "failed to update job")
		return
	}

	u := model.ProgressUpdate{
		JobID:    cb.JobID,
		Status:   cb.Status,
		Progress: cb.Progress,
		Stage:    cb.Stage,
		Error:    cb.Error,
		Results:  cb.Results,
	}
	if cb.Status == model.JobStatusCompleted && u.Progress == 0 {
		u.Progress = 100
	}
	if err := s.bus.Publish(r.Context(), u); err != nil {
		s.log.Error().Err(err).Str("job_id", cb.JobID).Msg("progress publish failed")
		writeError(w, http.StatusInternalServerError, "failed to publish update")
		return
	}
	metrics.IncProgressEvent(string(cb.Status))
	s.log.Debug().Str("job_id", cb.JobID).Str("status", string(cb.Status)).
		Int("progress", u.Progress).Msg("progress update received")
	w.WriteHeader(http.StatusNoContent)
}

func validCallbackStatus(st model.JobStatus) bool {
	switch st {
	case model.JobStatusRunning, model.JobStatusCompleted, model.JobStatusFailed,
		model.JobStatusWorkerDied, model.JobStatusTimedOut:
		return true
	}
	return false
}

func callbackErrorType(cb providerCallback) string {
	if cb.ErrorType != "" {
		return cb.ErrorType
	}
	switch cb.Status {
	case model.JobStatusWorkerDied:
		return model.ErrorTypeWorkerDied
	case model.JobStatusTimedOut:
		return model.ErrorTypeTimeout
	case model.JobStatusFailed:
		return model.ErrorTypeWorkerDied
	}
	return ""
}
