// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package actor

import (
	"context"
	"sync"
)

// Scheduler drains mailboxes. Schedule must not drain inline: it only
// arranges for h.Receive to be called later, so a pusher never re-enters its
// own stack through a scheduled message.
type Scheduler interface {
	Schedule(h Handle)
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(h Handle)

// Schedule calls f(h).
func (f SchedulerFunc) Schedule(h Handle) { f(h) }

type schedulerKey struct{}

// WithScheduler returns a copy of ctx carrying s as the current scheduler.
func WithScheduler(ctx context.Context, s Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// FromContext returns the scheduler bound to ctx, if any.
func FromContext(ctx context.Context) (Scheduler, bool) {
	s, ok := ctx.Value(schedulerKey{}).(Scheduler)
	return s, ok && s != nil
}

// Current returns the scheduler bound to ctx. It panics if there is none:
// running actor code without an execution context is a programming error.
func Current(ctx context.Context) Scheduler {
	s, ok := FromContext(ctx)
	if !ok {
		panic("actor: no scheduler bound to context")
	}
	return s
}

// BackgroundWorkers is the size of the shared background pool.
const BackgroundWorkers = 4

var background struct {
	mu   sync.Mutex
	pool *ThreadPool
	refs int
}

// BackgroundRef is a counted reference to the shared background pool.
type BackgroundRef struct {
	once sync.Once
	pool *ThreadPool
}

// AcquireBackground returns a reference to the process-wide background pool,
// starting it if no other reference is alive.
func AcquireBackground() *BackgroundRef {
	background.mu.Lock()
	defer background.mu.Unlock()

	if background.pool == nil {
		background.pool = NewThreadPool(BackgroundWorkers)
	}
	background.refs++
	return &BackgroundRef{pool: background.pool}
}

// Schedule forwards to the shared pool.
func (r *BackgroundRef) Schedule(h Handle) {
	r.pool.Schedule(h)
}

// Release drops the reference. The last release stops the pool and waits for
// its workers, so it must not be called from a task running on the pool.
// Release is idempotent.
func (r *BackgroundRef) Release() {
	r.once.Do(func() {
		background.mu.Lock()
		background.refs--
		var stop *ThreadPool
		if background.refs == 0 {
			stop = background.pool
			background.pool = nil
		}
		background.mu.Unlock()

		if stop != nil {
			stop.Close()
		}
	})
}
