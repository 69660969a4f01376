package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type jobCreateRequest struct {
	JobID   string            `json:"job_id"`
	UserID  string            `json:"user_id"`
	VideoID string            `json:"video_id"`
	Params  map[string]string `json:"params"`
}

// handleCreateJob records a queued job for a freshly uploaded video. The
// caller may assign the job id; otherwise one is generated.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "user_id and video_id are required")
		return
	}
	if req.Params[model.ParamVideoKey] == "" {
		writeError(w, http.StatusBadRequest, "params."+model.ParamVideoKey+" is required")
		return
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}

	job := &model.Job{
		JobID:   req.JobID,
		UserID:  req.UserID,
		VideoID: req.VideoID,
		Status:  model.JobStatusQueued,
		Params:  req.Params,
	}
	if err := s.repo.Create(r.Context(), job); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "job already exists")
			return
		}
		s.log.Error().Err(err).Str("job_id", req.JobID).Msg("create job failed")
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	s.log.Info().Str("job_id", job.JobID).Str("user_id", job.UserID).Msg("job created")
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	view, err := s.viewer.View(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("job view failed")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	out, err := s.trigger.Trigger(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrMissingConfig):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			s.log.Error().Err(err).Str("job_id", jobID).Msg("trigger failed")
			writeError(w, http.StatusInternalServerError, "trigger failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	res, err := s.retrier.Retry(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, domain.ErrMissingConfig):
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			s.log.Error().Err(err).Str("job_id", jobID).Msg("retry failed")
			writeError(w, http.StatusInternalServerError, "retry failed")
		}
		return
	}
	code := http.StatusOK
	if res.Rejected {
		code = http.StatusConflict
	}
	writeJSON(w, code, res)
}

// handleJobHealth serves the oracle's advice for the UI staleness check. The
// oracle needs an external handle; an unsubmitted job is answered from the
// record alone.
func (s *Server) handleJobHealth(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.repo.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("health lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if !job.Submitted() {
		rec := usecase.RecommendationWait
		detail := "job not yet submitted"
		switch job.Status {
		case model.JobStatusCompleted:
			rec = usecase.RecommendationSuccess
			detail = "job already completed"
		case model.JobStatusFailed:
			rec = usecase.RecommendationRetry
			detail = "job failed before submission"
		}
		writeJSON(w, http.StatusOK, &usecase.HealthReport{Recommendation: rec, Detail: detail})
		return
	}

	report, err := s.checker.Check(r.Context(), job.ExternalHandle, job.UserID, job.VideoID)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("health check failed")
		writeError(w, http.StatusInternalServerError, "health check failed")
		return
	}
	s.publishSynthetic(r.Context(), job, report)
	writeJSON(w, http.StatusOK, report)
}

// publishSynthetic turns an oracle report into a best-effort live update so
// connected streams see progress even when the worker's webhooks are not
// arriving. The record itself is never touched here.
func (s *Server) publishSynthetic(ctx context.Context, job *model.Job, report *usecase.HealthReport) {
	u := model.ProgressUpdate{
		JobID:    job.JobID,
		Progress: report.Progress,
		Stage:    report.Stage,
	}
	switch report.Recommendation {
	case usecase.RecommendationSuccess:
		u.Status = model.JobStatusCompleted
		u.Progress = 100
	case usecase.RecommendationRetry:
		u.Status = model.JobStatusWorkerDied
		u.Error = report.Detail
	case usecase.RecommendationFailed:
		u.Status = model.JobStatusFailed
		u.Error = report.Detail
	default:
		u.Status = model.JobStatusRunning
	}
	if err := s.bus.Publish(ctx, u); err != nil {
		s.log.Warn().Err(err).Str("job_id", job.JobID).Msg("synthetic progress publish failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
