package queue

import (
	"context"
	"sync"
)

// ProgressBus is the progress transport surface: the Redis pub/sub
// publisher in distributed mode, the in-memory bus in lite mode.
type ProgressBus interface {
	Publish(ctx context.Context, event ProgressEvent) error
	Subscribe(ctx context.Context, analysisID string) (<-chan ProgressEvent, error)
}

// MemoryProgressBus fans progress events out to in-process subscribers.
// Used by the lite server, where worker and API share one process.
type MemoryProgressBus struct {
	mu   sync.Mutex
	subs map[string][]chan ProgressEvent
}

// NewMemoryProgressBus creates an empty bus.
func NewMemoryProgressBus() *MemoryProgressBus {
	return &MemoryProgressBus{
		subs: make(map[string][]chan ProgressEvent),
	}
}

// Publish delivers an event to current subscribers. Slow subscribers drop
// events rather than block the worker.
func (b *MemoryProgressBus) Publish(ctx context.Context, event ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs[event.AnalysisID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers for one analysis' events until ctx is cancelled.
func (b *MemoryProgressBus) Subscribe(ctx context.Context, analysisID string) (<-chan ProgressEvent, error) {
	ch := make(chan ProgressEvent, 16)

	b.mu.Lock()
	b.subs[analysisID] = append(b.subs[analysisID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		channels := b.subs[analysisID]
		for i, c := range channels {
			if c == ch {
				b.subs[analysisID] = append(channels[:i], channels[i+1:]...)
				break
			}
		}
		if len(b.subs[analysisID]) == 0 {
			delete(b.subs, analysisID)
		}
		close(ch)
	}()

	return ch, nil
}

// InlineRunner executes jobs in-process instead of queuing them, backing
// the lite server mode.
type InlineRunner struct {
	worker *Worker
	wg     sync.WaitGroup
}

// NewInlineRunner wraps a worker for in-process execution.
func NewInlineRunner(worker *Worker) *InlineRunner {
	return &InlineRunner{worker: worker}
}

// Enqueue starts the job immediately on a background goroutine.
func (r *InlineRunner) Enqueue(ctx context.Context, job *Job) error {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.worker.Process(context.Background(), job)
	}()
	return nil
}

// Wait blocks until all started jobs finish. Used on shutdown.
func (r *InlineRunner) Wait() {
	r.wg.Wait()
}
