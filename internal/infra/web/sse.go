package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
)

type connectedFrame struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleJobEvents is the SSE gateway. Frame order on connect: a connected
// frame, then the most recent published update if one exists, then live
// forwarding. Comment-only heartbeats keep intermediaries from idling the
// connection out; a terminal update closes the stream after a short grace
// so the final frame flushes.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncSSEConnections()
	defer metrics.DecSSEConnections()

	// The listener must never block a publish; an overflowing connection
	// drops frames. Updates are snapshots, the poll fallback carries
	// correctness.
	updates := make(chan model.ProgressUpdate, 16)
	cancel := s.bus.Subscribe(jobID, func(u model.ProgressUpdate) {
		select {
		case updates <- u:
		default:
		}
	})
	defer cancel()

	writeFrame(w, connectedFrame{JobID: jobID, Status: "connected"})
	flusher.Flush()

	if latest, err := s.bus.Latest(r.Context(), jobID); err == nil && latest != nil {
		writeFrame(w, latest)
		flusher.Flush()
		if latest.Terminal() {
			s.graceClose(r)
			return
		}
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	s.log.Debug().Str("job_id", jobID).Msg("sse stream opened")
	for {
		select {
		case <-r.Context().Done():
			s.log.Debug().Str("job_id", jobID).Msg("sse client disconnected")
			return
		case u := <-updates:
			writeFrame(w, u)
			flusher.Flush()
			if u.Terminal() {
				s.graceClose(r)
				return
			}
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// writeFrame emits one SSE data frame. Write failures are deliberately
// ignored: a broken connection surfaces through the request context and the
// push channel is best-effort anyway.
func writeFrame(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
}

func (s *Server) graceClose(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(s.terminalGrace):
	}
}
