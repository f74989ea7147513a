// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package actor

import (
	"context"
	"sync"
)

// RunLoop is a Scheduler drained by the goroutine that calls Run or RunOnce.
// It gives an owner thread affinity for every actor scheduled on it.
type RunLoop struct {
	mu      sync.Mutex
	queue   []Handle
	wake    chan struct{}
	stop    chan struct{}
	stopped bool

	mailbox *Mailbox
}

// NewRunLoop creates an idle run loop.
func NewRunLoop() *RunLoop {
	l := &RunLoop{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	l.mailbox = NewMailbox(l)
	return l
}

// Schedule enqueues h and wakes the loop.
func (l *RunLoop) Schedule(h Handle) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, h)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Invoke runs fn on the loop's goroutine.
func (l *RunLoop) Invoke(fn func()) {
	l.mailbox.Push(fn)
}

// RunOnce drains every handle queued at the time of the call and returns how
// many were processed. Handles scheduled meanwhile wait for the next call.
func (l *RunLoop) RunOnce() int {
	l.mu.Lock()
	batch := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, h := range batch {
		h.Receive()
	}
	return len(batch)
}

// Run processes handles until ctx is done or Stop is called.
func (l *RunLoop) Run(ctx context.Context) error {
	for {
		l.RunOnce()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case <-l.wake:
		}
	}
}

// Stop makes Run return and drops pending handles. Stop is idempotent.
func (l *RunLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	l.queue = nil
	close(l.stop)
}
