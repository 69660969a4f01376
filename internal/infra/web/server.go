package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Consumer-side views of the use cases, kept narrow so tests can stub them.
type jobTrigger interface {
	Trigger(ctx context.Context, jobID string) (*usecase.TriggerOutcome, error)
}

type jobRetrier interface {
	Retry(ctx context.Context, jobID string) (*usecase.RetryResult, error)
}

type jobViewer interface {
	View(ctx context.Context, jobID string) (*model.JobView, error)
}

type healthChecker interface {
	Check(ctx context.Context, handle, userID, videoID string) (*usecase.HealthReport, error)
}

// Server carries the job API, the provider webhook receiver and the SSE
// gateway. It mutates job records only through the repository port; live
// updates flow through the progress bus.
type Server struct {
	repo    repository.JobRepository
	bus     adapter.ProgressBus
	trigger jobTrigger
	retrier jobRetrier
	viewer  jobViewer
	checker healthChecker

	webhookSecret string
	log           *zerolog.Logger

	heartbeat     time.Duration
	terminalGrace time.Duration

	server *http.Server
}

func NewServer(
	repo repository.JobRepository,
	bus adapter.ProgressBus,
	trigger jobTrigger,
	retrier jobRetrier,
	viewer jobViewer,
	checker healthChecker,
	webhookSecret string,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		repo:          repo,
		bus:           bus,
		trigger:       trigger,
		retrier:       retrier,
		viewer:        viewer,
		checker:       checker,
		webhookSecret: webhookSecret,
		log:           &webLog,
		heartbeat:     30 * time.Second,
		terminalGrace: time.Second,
	}
}

// Routes builds the router. Exposed separately from Start so tests can mount
// it on httptest servers.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/trigger", s.handleTriggerJob)
			r.Post("/retry", s.handleRetryJob)
			r.Get("/health", s.handleJobHealth)
			r.Get("/events", s.handleJobEvents)
		})
	})

	r.Post("/webhooks/provider", s.handleProviderWebhook)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
