// File: internal/infra/bus/memory.go
package bus

import (
	"context"
	"sync"

	"video-analysis-platform/internal/domain/model"
	"video-analysis-platform/internal/domain/ports/adapter"

	"github.com/oklog/ulid/v2"
)

var _ adapter.ProgressBus = (*MemoryBus)(nil)

type listener struct {
	token string
	fn    adapter.ProgressListener
}

// MemoryBus is the process-local progress bus: per-job append-only history
// plus an ordered listener set. It is owned by the composition root and
// discarded at shutdown; nothing survives a restart. State is NOT shared
// across server instances — multi-instance deployments must substitute the
// Redis broker or rely on the poll path.
type MemoryBus struct {
	mu        sync.Mutex
	history   map[string][]model.ProgressUpdate
	listeners map[string][]listener
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		history:   make(map[string][]model.ProgressUpdate),
		listeners: make(map[string][]listener),
	}
}

// Publish appends to the job's history and synchronously invokes every
// currently registered listener in registration order.
func (b *MemoryBus) Publish(_ context.Context, u model.ProgressUpdate) error {
	b.mu.Lock()
	b.history[u.JobID] = append(b.history[u.JobID], u)
	snapshot := make([]listener, len(b.listeners[u.JobID]))
	copy(snapshot, b.listeners[u.JobID])
	b.mu.Unlock()

	for _, l := range snapshot {
		l.fn(u)
	}
	return nil
}

func (b *MemoryBus) Subscribe(jobID string, fn adapter.ProgressListener) func() {
	token := ulid.Make().String()
	b.mu.Lock()
	b.listeners[jobID] = append(b.listeners[jobID], listener{token: token, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			ls := b.listeners[jobID]
			for i, l := range ls {
				if l.token == token {
					b.listeners[jobID] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(b.listeners[jobID]) == 0 {
				delete(b.listeners, jobID)
			}
		})
	}
}

func (b *MemoryBus) Latest(_ context.Context, jobID string) (*model.ProgressUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.history[jobID]
	if len(h) == 0 {
		return nil, nil
	}
	u := h[len(h)-1]
	return &u, nil
}
