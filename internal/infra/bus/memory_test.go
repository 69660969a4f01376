package bus

import (
	"context"
	"sync"
	"testing"

	"video-analysis-platform/internal/domain/model"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	var mu sync.Mutex
	var order []string
	b.Subscribe("j-1", func(u model.ProgressUpdate) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	b.Subscribe("j-1", func(u model.ProgressUpdate) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	if err := b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Status: model.JobStatusRunning, Progress: 10}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("delivery order = %v", order)
	}
}

func TestPublishFIFOPerListener(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	var got []int
	b.Subscribe("j-1", func(u model.ProgressUpdate) { got = append(got, u.Progress) })

	for _, p := range []int{10, 40, 90} {
		_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Status: model.JobStatusRunning, Progress: p})
	}
	if len(got) != 3 || got[0] != 10 || got[1] != 40 || got[2] != 90 {
		t.Fatalf("updates = %v, want publish order", got)
	}
}

func TestLatestReturnsMostRecent(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	u, err := b.Latest(ctx, "j-1")
	if err != nil || u != nil {
		t.Fatalf("Latest(empty) = %v, %v", u, err)
	}

	_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Status: model.JobStatusRunning, Progress: 10})
	_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Status: model.JobStatusRunning, Progress: 40})

	u, err = b.Latest(ctx, "j-1")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if u == nil || u.Progress != 40 {
		t.Fatalf("latest = %+v, want progress 40", u)
	}
}

func TestCancelDeregisters(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	calls := 0
	cancel := b.Subscribe("j-1", func(u model.ProgressUpdate) { calls++ })

	_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Progress: 10})
	cancel()
	cancel() // second call is a no-op
	_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Progress: 20})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPublishIsolatedPerJob(t *testing.T) {
	t.Parallel()

	b := NewMemoryBus()
	ctx := context.Background()

	calls := 0
	b.Subscribe("j-2", func(u model.ProgressUpdate) { calls++ })
	_ = b.Publish(ctx, model.ProgressUpdate{JobID: "j-1", Progress: 10})

	if calls != 0 {
		t.Fatal("listener for j-2 must not observe j-1 publishes")
	}
}
