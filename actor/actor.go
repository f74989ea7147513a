// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package actor

import (
	"runtime"
	"sync"
	"weak"
)

// Actor owns an object of type T and a mailbox whose messages are the only
// code allowed to touch it.
//
// The Actor value is the owning handle: dropping it (or calling Close) ends
// the actor. Other components talk to it through Ref values from Self.
type Actor[T any] struct {
	mailbox *Mailbox
	obj     *T
}

// New creates an actor for obj, drained by s.
func New[T any](s Scheduler, obj *T) *Actor[T] {
	return &Actor[T]{mailbox: NewMailbox(s), obj: obj}
}

// Invoke posts fn to run against the object.
func (a *Actor[T]) Invoke(fn func(*T)) {
	obj := a.obj
	a.mailbox.Push(func() { fn(obj) })
}

// Self returns a weak reference to the actor.
func (a *Actor[T]) Self() Ref[T] {
	return Ref[T]{mailbox: a.mailbox.self, obj: weak.Make(a.obj)}
}

// Mailbox returns the actor's mailbox.
func (a *Actor[T]) Mailbox() *Mailbox {
	return a.mailbox
}

// Close stops the actor. Queued messages are dropped; a running message
// finishes.
func (a *Actor[T]) Close() {
	a.mailbox.Close()
}

// Ref is a non-owning reference to an Actor. Messages sent to an actor that no
// longer exists are silently dropped. The zero Ref is always expired.
type Ref[T any] struct {
	mailbox weak.Pointer[Mailbox]
	obj     weak.Pointer[T]
}

// Invoke posts fn to the actor. It reports false if the actor is gone or
// closed, in which case fn will never run.
func (r Ref[T]) Invoke(fn func(*T)) bool {
	m := r.mailbox.Value()
	if m == nil || m.IsClosed() {
		return false
	}
	wobj := r.obj
	m.Push(func() {
		if obj := wobj.Value(); obj != nil {
			fn(obj)
		}
	})
	return true
}

// Expired reports whether the referenced actor no longer exists.
func (r Ref[T]) Expired() bool {
	m := r.mailbox.Value()
	return m == nil || m.IsClosed()
}

// Ask posts fn to the actor and returns a channel that yields its result.
// The channel is closed without a value if the actor goes away before fn runs.
func Ask[T, R any](r Ref[T], fn func(*T) R) <-chan R {
	ch := make(chan R, 1)
	m := r.mailbox.Value()
	if m == nil || m.IsClosed() {
		close(ch)
		return ch
	}

	var once sync.Once
	finish := func() { once.Do(func() { close(ch) }) }
	wobj := r.obj
	msg := &askMessage{run: func() {
		defer finish()
		if obj := wobj.Value(); obj != nil {
			ch <- fn(obj)
		}
	}}
	// Close drops queued messages; the channel must still be closed then.
	runtime.AddCleanup(msg, func(f func()) { f() }, finish)
	m.Push(msg.Run)
	return ch
}

type askMessage struct {
	run func()
}

func (a *askMessage) Run() { a.run() }

// Bind returns a function that posts fn to s each time it is called.
//
// The mailbox behind the returned function is kept alive until every posted
// message has run, so the function may be called and dropped immediately.
func Bind(s Scheduler, fn func()) func() {
	m := NewMailbox(s)
	return func() {
		pin(m)
		m.Push(func() {
			defer unpin(m)
			fn()
		})
	}
}

var pins struct {
	mu  sync.Mutex
	set map[*Mailbox]int
}

func pin(m *Mailbox) {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	if pins.set == nil {
		pins.set = make(map[*Mailbox]int)
	}
	pins.set[m]++
}

func unpin(m *Mailbox) {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	if pins.set[m] <= 1 {
		delete(pins.set, m)
		return
	}
	pins.set[m]--
}

// pinned returns the number of mailboxes held alive by Bind.
func pinned() int {
	pins.mu.Lock()
	defer pins.mu.Unlock()
	return len(pins.set)
}
