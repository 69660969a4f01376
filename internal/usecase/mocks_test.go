// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"video-analysis-platform/internal/domain"
	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"
	"video-analysis-platform/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memJobRepo is a small in-memory implementation used by unit tests. Its
// MarkRunning mirrors the storage layer's compare-and-swap semantics.
type memJobRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Job
	updateErr error
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
	if m.updateErr != nil {
		return m.updateErr
	}
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
	j.UpdatedAt = time.Now()
	return true, nil
}

// mockProvider counts submissions and can delay or fail on demand.
type mockProvider struct {
	mu          sync.Mutex
	submitID    string
	submitErr   error
	submitDelay time.Duration
	submits     int

	statusRes   adapter.StatusResult
	statusErr   error
	statusCalls int
}

func (p *mockProvider) Submit(ctx context.Context, req adapter.SubmitRequest) (adapter.SubmitResult, error) {
	p.mu.Lock()
	p.submits++
	delay, errOut, id := p.submitDelay, p.submitErr, p.submitID
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return adapter.SubmitResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if errOut != nil {
		return adapter.SubmitResult{}, errOut
	}
	if id == "" {
		id = "handle-1"
	}
	return adapter.SubmitResult{ID: id, Status: adapter.ProviderStatusInQueue}, nil
}

func (p *mockProvider) Status(ctx context.Context, handle string) (adapter.StatusResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusCalls++
	if p.statusErr != nil {
		return adapter.StatusResult{}, p.statusErr
	}
	return p.statusRes, nil
}

func (p *mockProvider) submitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.submits
}

// mockStore is an in-memory object store. existsSeq, when set, scripts the
// answers of successive Exists calls.
type mockStore struct {
	mu        sync.Mutex
	objects   map[string]bool
	listErr   error
	signErr   error
	signedURL string
	existsSeq []bool
}

func newMockStore() *mockStore {
	return &mockStore{objects: make(map[string]bool), signedURL: "https://storage/signed"}
}

func (s *mockStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []string
	for k := range s.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k[len(prefix):])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.existsSeq) > 0 {
		v := s.existsSeq[0]
		s.existsSeq = s.existsSeq[1:]
		return v, nil
	}
	if s.listErr != nil {
		return false, s.listErr
	}
	return s.objects[key], nil
}

func (s *mockStore) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.signedURL + "/" + key, nil
}

func queuedJob(id string, createdAt time.Time) *model.Job {
	return &model.Job{
		JobID:     id,
		UserID:    "u-1",
		VideoID:   "v-" + id,
		Status:    model.JobStatusQueued,
		Params:    map[string]string{model.ParamVideoKey: "u-1/v-" + id + "/source.mp4"},
		CreatedAt: createdAt,
	}
}
