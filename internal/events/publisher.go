package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"foodbridge/internal/platform/metrics"
	"foodbridge/pkg/requestcontext"
)

// Publisher buffers events on a channel drained by a Worker. Publish never
// blocks: when the buffer is full the event is dropped and counted.
type Publisher struct {
	mu      sync.RWMutex
	closed  bool
	inbox   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithPublisherMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher with the given buffer capacity.
func NewPublisher(buffer int, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	p := &Publisher{inbox: make(chan Event, buffer)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish stamps the event with an id, time and request id when missing and
// enqueues it.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(ctx, event, "publisher closed")
		return
	}
	select {
	case p.inbox <- event:
	default:
		p.drop(ctx, event, "buffer full")
	}
}

// Events exposes the buffered channel to the worker.
func (p *Publisher) Events() <-chan Event {
	return p.inbox
}

// Close stops accepting events and closes the channel so the worker can
// drain what is left. Safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

func (p *Publisher) drop(ctx context.Context, event Event, reason string) {
	p.metrics.IncrementEventsDropped()
	if p.logger != nil {
		p.logger.WarnContext(ctx, "event dropped",
			"reason", reason,
			"event_type", event.Type,
			"subject_id", event.SubjectID,
			"request_id", event.RequestID,
		)
	}
}
