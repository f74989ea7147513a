// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package actor provides mailbox-based message passing between goroutines.
//
// # Overview
//
// An actor is an object whose state is only touched by messages drained from
// its [Mailbox]. Producers push closures from any goroutine; a [Scheduler]
// guarantees the mailbox is eventually drained on some worker, one message at
// a time and in submission order.
//
// Schedulers never see a mailbox directly. They receive a [Handle], a weak
// reference that resolves to nil once the mailbox is garbage collected. A
// closed mailbox ignores further pushes and drains. Work queued for an actor
// that no longer exists is therefore a safe no-op.
//
// # Schedulers
//
//   - [ThreadPool]: a fixed set of worker goroutines pulling handles from a FIFO.
//   - [RunLoop]: drained by whichever goroutine calls Run or RunOnce, for owners
//     that need all their actors to run on one goroutine.
//   - [AcquireBackground]: a process-wide shared ThreadPool, created on first use
//     and closed when the last holder releases it.
//
// The scheduler of the current execution context is passed explicitly through
// a [context.Context] with [WithScheduler] and retrieved with [Current].
//
// # Example
//
//	pool := actor.NewThreadPool(4)
//	defer pool.Close()
//
//	counter := actor.New(pool, &Counter{})
//	defer counter.Close()
//
//	counter.Invoke(func(c *Counter) { c.n++ })
//	n := <-actor.Ask(counter.Self(), func(c *Counter) int { return c.n })
package actor
