// Package publisher delivers audit events to a store, either synchronously or
// through a buffered background goroutine. Domain services only see the Emit
// method; delivery mode is a wiring decision.
package publisher

import (
	"context"
	"sync"

	id "veriseal/pkg/domain"
	audit "veriseal/pkg/platform/audit"
)

type Publisher struct {
	store audit.Store

	// Async delivery. When inbox is nil the publisher is synchronous.
	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given buffer size. When the buffer is full, Emit drops the event rather than
// blocking the hot path; audit delivery must never stall issuance.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit delivers an event. In sync mode it appends directly; in async mode it
// enqueues, dropping the event if the buffer is full.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		// Buffer full: drop. The store append path records its own errors;
		// here there is nothing useful to return to the caller.
	}
	return nil
}

// List exposes the underlying store's per-publisher listing for callers that
// hold a Publisher rather than the store.
func (p *Publisher) List(ctx context.Context, publisher id.PublisherID) ([]audit.Event, error) {
	return p.store.ListByPublisher(ctx, publisher)
}

// Close stops the background goroutine after draining buffered events.
// Safe to call multiple times.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Best effort: a failed append is not retried. The store is expected
		// to log its own failures.
		_ = p.store.Append(context.Background(), event)
	}
}
