// Package workpool bounds how many blocking storage calls run at once.
//
// Every request served by chatvault does its database work through a Pool,
// so a burst of requests queues for a slot instead of opening more
// connections than the store allows.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrClosed is returned by Submit after Close has been called.
	ErrClosed = errors.New("workpool: closed")
	// ErrPanicked wraps the value recovered from a panicking task.
	ErrPanicked = errors.New("workpool: task panicked")
)

// Pool runs at most Size tasks concurrently.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a pool with size slots. A size of zero or less uses the
// number of CPUs.
func New(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: logger,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Close stops accepting work and waits for running tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) enter() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

// Submit waits for a free slot, runs fn on its own goroutine and returns its
// result. Waiting for a slot honours ctx; once fn has started, Submit waits
// for it to return, and fn is expected to watch ctx itself. A panic in fn is
// recovered and reported as ErrPanicked.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("acquire worker: %w", err)
	}
	if !p.enter() {
		p.sem.Release(1)
		return zero, ErrClosed
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker task panicked", "panic", r, "stack", string(debug.Stack()))
				done <- result{err: fmt.Errorf("%w: %v", ErrPanicked, r)}
			}
		}()
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	r := <-done
	return r.val, r.err
}

// Do is Submit for tasks without a result value.
func Do(ctx context.Context, p *Pool, fn func(context.Context) error) error {
	_, err := Submit(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
