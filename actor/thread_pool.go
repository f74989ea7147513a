// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package actor

import (
	"runtime"
	"sync"

	"github.com/gogpu/sprite/internal/logging"
)

// Lifecycle holds optional per-worker hooks.
//
// OnThreadCreated runs on a worker before it takes any work; its result is
// passed to OnThreadDestroyed when that worker exits. When either hook is set
// each worker is locked to its OS thread, so hooks that install thread-local
// state see the same thread for the worker's lifetime.
type Lifecycle struct {
	OnThreadCreated   func() any
	OnThreadDestroyed func(state any)
}

// PoolOption configures a ThreadPool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	lifecycle Lifecycle
	name      string
}

// WithLifecycle installs per-worker hooks.
func WithLifecycle(l Lifecycle) PoolOption {
	return func(o *poolOptions) {
		o.lifecycle = l
	}
}

// WithName sets the name used in log messages.
func WithName(name string) PoolOption {
	return func(o *poolOptions) {
		o.name = name
	}
}

// ThreadPool is a Scheduler backed by a fixed number of worker goroutines.
//
// Handles are taken from a single FIFO queue. A mailbox drains one message per
// Receive and reschedules itself, so messages of one mailbox never run
// concurrently while different mailboxes progress in parallel.
type ThreadPool struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Handle
	terminate bool

	opts    poolOptions
	workers int
	wg      sync.WaitGroup
}

// NewThreadPool starts a pool with the given number of workers.
// If workers <= 0, uses GOMAXPROCS.
func NewThreadPool(workers int, opts ...PoolOption) *ThreadPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &ThreadPool{workers: workers, opts: poolOptions{name: "pool"}}
	for _, opt := range opts {
		opt(&p.opts)
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	logging.Logger().Debug("actor: thread pool started", "name", p.opts.name, "workers", workers)
	return p
}

// Schedule enqueues h. Handles scheduled after Close are dropped.
func (p *ThreadPool) Schedule(h Handle) {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		return
	}
	p.queue = append(p.queue, h)
	p.mu.Unlock()
	p.cond.Signal()
}

// Workers returns the number of worker goroutines.
func (p *ThreadPool) Workers() int {
	return p.workers
}

// Pending returns the number of handles waiting for a worker.
func (p *ThreadPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops the pool and waits for all workers to exit. Messages already
// running finish; queued handles are abandoned. Close is idempotent and must
// not be called from a worker of this pool.
func (p *ThreadPool) Close() {
	p.mu.Lock()
	if p.terminate {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.terminate = true
	abandoned := len(p.queue)
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	logging.Logger().Debug("actor: thread pool stopped", "name", p.opts.name, "abandoned", abandoned)
}

func (p *ThreadPool) worker() {
	defer p.wg.Done()

	lc := p.opts.lifecycle
	if lc.OnThreadCreated != nil || lc.OnThreadDestroyed != nil {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	var state any
	if lc.OnThreadCreated != nil {
		state = lc.OnThreadCreated()
	}
	if lc.OnThreadDestroyed != nil {
		defer lc.OnThreadDestroyed(state)
	}

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.terminate {
			p.cond.Wait()
		}
		if p.terminate {
			p.mu.Unlock()
			return
		}
		h := p.queue[0]
		p.queue[0] = Handle{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		h.Receive()
	}
}
