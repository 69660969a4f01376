package web

import (
	"context"
	"sort"
	"sync"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/repository"
	"video-analysis-platform/internal/infra/bus"
	"video-analysis-platform/internal/usecase"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type memJobRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Job
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Create(ctx context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[job.JobID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *job
	m.store[job.JobID] = &cp
	return nil
}

func (m *memJobRepo) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) Update(ctx context.Context, jobID string, upd repository.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.ExternalHandle != nil {
		j.ExternalHandle = *upd.ExternalHandle
	}
	if upd.CurrentStep != nil {
		j.CurrentStep = *upd.CurrentStep
	}
	if upd.Error != nil {
		j.Error = *upd.Error
	}
	if upd.ErrorType != nil {
		j.ErrorType = *upd.ErrorType
	}
	if upd.ErrorDetails != nil {
		j.ErrorDetails = *upd.ErrorDetails
	}
	if upd.RetryCount != nil {
		j.RetryCount = *upd.RetryCount
	}
	j.UpdatedAt = time.Now()
	return nil
}

func (m *memJobRepo) ListUntriggered(ctx context.Context, limit int) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Untriggered() {
			cp := *j
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) MarkRunning(ctx context.Context, jobID, handle string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !j.Untriggered() {
		return false, nil
	}
	j.Status = model.JobStatusRunning
	j.ExternalHandle = handle
	j.CurrentStep = "submitted"
	return true, nil
}

type stubTrigger struct {
	mu    sync.Mutex
	out   *usecase.TriggerOutcome
	err   error
	calls int
}

func (s *stubTrigger) Trigger(ctx context.Context, jobID string) (*usecase.TriggerOutcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.out, s.err
}

type stubRetrier struct {
	res *usecase.RetryResult
	err error
}

func (s *stubRetrier) Retry(ctx context.Context, jobID string) (*usecase.RetryResult, error) {
	return s.res, s.err
}

type stubViewer struct {
	view *model.JobView
	err  error
}

func (s *stubViewer) View(ctx context.Context, jobID string) (*model.JobView, error) {
	return s.view, s.err
}

type stubChecker struct {
	mu     sync.Mutex
	report *usecase.HealthReport
	err    error
	calls  int
}

func (s *stubChecker) Check(ctx context.Context, handle, userID, videoID string) (*usecase.HealthReport, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.report, s.err
}

type serverDeps struct {
	repo    *memJobRepo
	bus     *bus.MemoryBus
	trigger *stubTrigger
	retrier *stubRetrier
	viewer  *stubViewer
	checker *stubChecker
}

func newTestServer() (*Server, *serverDeps) {
	d := &serverDeps{
		repo:    newMemJobRepo(),
		bus:     bus.NewMemoryBus(),
		trigger: &stubTrigger{},
		retrier: &stubRetrier{},
		viewer:  &stubViewer{},
		checker: &stubChecker{},
	}
	s := NewServer(d.repo, d.bus, d.trigger, d.retrier, d.viewer, d.checker, "hook-secret", nopLogger())
	return s, d
}
