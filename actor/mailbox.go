// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package actor

import (
	"sync"
	"weak"

	"github.com/gogpu/sprite/internal/logging"
)

// Mailbox is an ordered queue of closures owned by one actor.
//
// Push is safe to call from any goroutine. Messages run only when a Scheduler
// drains the mailbox, one per drain; the mailbox reschedules itself while
// messages remain, so a busy actor cannot starve others sharing the scheduler.
//
// A mailbox created without a scheduler holds its messages until Open.
type Mailbox struct {
	mu        sync.Mutex // guards queue, scheduler and closed
	receiving sync.Mutex // serializes drains
	scheduler Scheduler
	queue     []func()
	closed    bool

	self weak.Pointer[Mailbox]
}

// NewMailbox creates a mailbox drained by s. A nil s creates a holding
// mailbox; see Open.
func NewMailbox(s Scheduler) *Mailbox {
	m := &Mailbox{scheduler: s}
	m.self = weak.Make(m)
	return m
}

// Open attaches a scheduler to a holding mailbox and schedules any messages
// queued so far. Opening an already open mailbox panics.
func (m *Mailbox) Open(s Scheduler) {
	m.mu.Lock()
	if m.scheduler != nil {
		m.mu.Unlock()
		panic("actor: mailbox is already open")
	}
	m.scheduler = s
	pending := !m.closed && len(m.queue) > 0
	m.mu.Unlock()

	if pending {
		s.Schedule(m.Handle())
	}
}

// IsOpen reports whether the mailbox has a scheduler.
func (m *Mailbox) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduler != nil
}

// Push appends fn to the queue. Pushing to a closed mailbox is a no-op.
func (m *Mailbox) Push(fn func()) {
	if fn == nil {
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	wasEmpty := len(m.queue) == 0
	m.queue = append(m.queue, fn)
	s := m.scheduler
	m.mu.Unlock()

	if wasEmpty && s != nil {
		s.Schedule(m.Handle())
	}
}

// Receive runs the oldest queued message. Schedulers call it through
// Handle.Receive; it must never be called while holding a scheduler lock.
func (m *Mailbox) Receive() {
	m.receiving.Lock()
	defer m.receiving.Unlock()

	m.mu.Lock()
	if m.closed || len(m.queue) == 0 {
		m.mu.Unlock()
		return
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	more := len(m.queue) > 0
	s := m.scheduler
	m.mu.Unlock()

	fn()

	if more && s != nil {
		s.Schedule(m.Handle())
	}
}

// Close discards queued messages and makes later pushes and drains no-ops.
// A message already running is allowed to finish.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}

// IsClosed reports whether Close has been called.
func (m *Mailbox) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Handle returns a weak reference to the mailbox.
func (m *Mailbox) Handle() Handle {
	return Handle{ptr: m.self}
}

// Handle is a non-owning reference to a Mailbox, handed to schedulers.
// The zero Handle refers to nothing.
type Handle struct {
	ptr weak.Pointer[Mailbox]
}

// Mailbox resolves the handle. It returns nil if the mailbox has been
// garbage collected.
func (h Handle) Mailbox() *Mailbox {
	return h.ptr.Value()
}

// Receive drains one message from the referenced mailbox, or does nothing if
// the mailbox is gone.
func (h Handle) Receive() {
	m := h.ptr.Value()
	if m == nil {
		logging.Logger().Debug("actor: skipping expired mailbox")
		return
	}
	m.Receive()
}
