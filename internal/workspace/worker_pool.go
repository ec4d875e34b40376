package workspace

import (
	"context"
	"sync"
)

// task is the unit of work dispatched to a worker.
type task[T, R any] struct {
	in  T
	out chan<- outcome[T, R]
}

// outcome pairs a task's input with what the worker produced for it.
type outcome[T, R any] struct {
	in  T
	val R
	err error
}

// workerPool is a fixed-size goroutine pool with a bounded input queue.
type workerPool[T, R any] struct {
	queue   chan task[T, R]
	process func(ctx context.Context, t T) (R, error)
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// newWorkerPool creates and starts a pool with n goroutines and queue capacity cap.
func newWorkerPool[T, R any](ctx context.Context, n, cap int, fn func(context.Context, T) (R, error)) *workerPool[T, R] {
	if n <= 0 {
		n = 1
	}
	p := &workerPool[T, R]{
		queue:   make(chan task[T, R], cap),
		process: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T, R]) run(ctx context.Context) {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			val, err := p.process(ctx, t.in)
			if t.out != nil {
				t.out <- outcome[T, R]{in: t.in, val: val, err: err}
			}
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues in, blocking while the queue is full. It fails when ctx
// ends first or the pool has been drained. out must have room for the
// result so workers never block on it.
func (p *workerPool[T, R]) Submit(ctx context.Context, in T, out chan<- outcome[T, R]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrShutdown
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.queue <- task[T, R]{in: in, out: out}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain closes the queue and waits for all workers to finish.
func (p *workerPool[T, R]) Drain() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T, R]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T, R]) QueueCap() int {
	return cap(p.queue)
}
