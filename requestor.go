package sprite

import (
	"sync/atomic"

	"github.com/gogpu/sprite/actor"
)

// Requestor is a Manager's handle for one consumer of images.
//
// Each requestor has at most one live dependency set: a new GetImages call
// supersedes the previous one. Close releases everything the requestor holds,
// after which its on-demand images become eligible for eviction.
type Requestor struct {
	m        *Manager
	id       uint32
	consumer Consumer

	// pending holds ids of the live set still awaiting the observer.
	pending map[string]struct{}

	// associated holds ids whose requested bitmap includes this requestor.
	associated map[string]struct{}

	// epoch changes whenever the live set is dropped.
	epoch uint64

	latest atomic.Uint64
	closed atomic.Bool

	// mailbox is non-nil when deliveries run on a separate scheduler.
	mailbox *actor.Mailbox
}

// RequestorOption configures a Requestor.
type RequestorOption func(*Requestor)

// WithDelivery makes the requestor deliver on s instead of calling its
// consumer directly. The correlation id and the closed state are checked
// again when the delivery runs; superseded deliveries are dropped.
func WithDelivery(s actor.Scheduler) RequestorOption {
	return func(r *Requestor) {
		r.mailbox = actor.NewMailbox(s)
	}
}

// NewRequestor registers a consumer.
func (m *Manager) NewRequestor(c Consumer, opts ...RequestorOption) *Requestor {
	m.nextRequestor++
	r := &Requestor{
		m:          m,
		id:         m.nextRequestor,
		consumer:   c,
		pending:    make(map[string]struct{}),
		associated: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	m.requestors[r.id] = r
	m.opts.metrics.setRequestors(len(m.requestors))
	return r
}

// ID returns the requestor's identifier, unique within its Manager.
func (r *Requestor) ID() uint32 {
	return r.id
}

// HasPendingRequests reports whether the live set awaits the observer.
func (r *Requestor) HasPendingRequests() bool {
	return len(r.pending) > 0
}

// CorrelationID returns the id of the latest submitted set.
func (r *Requestor) CorrelationID() uint64 {
	return r.latest.Load()
}

// Close abandons the requestor's live set. No delivery happens after Close
// returns. Close must be called from the Manager's goroutine; it is
// idempotent.
func (r *Requestor) Close() {
	if r.closed.Swap(true) {
		return
	}
	r.m.dropRequests(r)
	delete(r.m.requestors, r.id)
	r.m.opts.metrics.setRequestors(len(r.m.requestors))
	if r.mailbox != nil {
		r.mailbox.Close()
	}
}

func (r *Requestor) deliver(icons, patterns ImageMap, versions VersionMap, correlationID uint64) {
	metrics := r.m.opts.metrics
	if r.mailbox == nil {
		metrics.delivery(outcomeDelivered)
		r.consumer.OnImagesAvailable(icons, patterns, versions, correlationID)
		return
	}

	r.mailbox.Push(func() {
		if r.closed.Load() || r.latest.Load() != correlationID {
			Logger().Debug("sprite: dropping stale delivery", "requestor", r.id, "correlationID", correlationID)
			metrics.delivery(outcomeStale)
			return
		}
		metrics.delivery(outcomeDelivered)
		r.consumer.OnImagesAvailable(icons, patterns, versions, correlationID)
	})
}
