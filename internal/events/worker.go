package events

import (
	"context"
	"log/slog"
	"time"

	"foodbridge/internal/platform/metrics"
)

// defaultDrainTimeout bounds the final flush after shutdown starts.
const defaultDrainTimeout = 5 * time.Second

// Inbox is the event source a Worker drains. Close must be idempotent and
// must make later publishes count as dropped.
type Inbox interface {
	Events() <-chan Event
	Close()
}

// Worker consumes events from a channel and writes them to a sink. While the
// sink's circuit is open, events go to the fallback sink instead.
type Worker struct {
	sink         Sink
	fallback     Sink
	inbox        Inbox
	breaker      *CircuitBreaker
	drainTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithFallback routes events to sink while the primary is failing.
func WithFallback(sink Sink) WorkerOption {
	return func(w *Worker) {
		w.fallback = sink
	}
}

func WithBreaker(b *CircuitBreaker) WorkerOption {
	return func(w *Worker) {
		w.breaker = b
	}
}

// WithDrainTimeout bounds how long Run keeps delivering after ctx is cancelled.
func WithDrainTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.drainTimeout = d
		}
	}
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(sink Sink, inbox Inbox, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		sink:         sink,
		inbox:        inbox,
		breaker:      NewCircuitBreaker(5, 30*time.Second),
		drainTimeout: defaultDrainTimeout,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run delivers events until the inbox is closed. Once ctx is cancelled it
// keeps delivering until the inbox closes or the drain timeout passes; it
// then closes the inbox itself and counts whatever is left as dropped.
// Events published after Run returns are counted by the closed inbox.
// Delivery failures are logged, never returned.
func (w *Worker) Run(ctx context.Context) error {
	events := w.inbox.Events()
	for {
		if ctx.Err() != nil {
			w.drain(events)
			return nil
		}
		select {
		case <-ctx.Done():
			w.drain(events)
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain(events <-chan Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	for {
		if ctx.Err() != nil {
			w.discard(events)
			return
		}
		select {
		case <-ctx.Done():
			w.discard(events)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) discard(events <-chan Event) {
	w.inbox.Close()
	n := 0
	for range events {
		w.metrics.IncrementEventsDropped()
		n++
	}
	if n > 0 {
		w.logger.Warn("events dropped after drain timeout", "count", n)
	}
}

func (w *Worker) deliver(ctx context.Context, event Event) {
	if w.breaker.Allow() {
		err := w.sink.Write(ctx, event)
		if err == nil {
			w.breaker.RecordSuccess()
			w.metrics.IncrementEventsPublished(w.sink.Name())
			return
		}
		opened := w.breaker.RecordFailure()
		w.logger.ErrorContext(ctx, "event delivery failed",
			"sink", w.sink.Name(),
			"event_type", event.Type,
			"event_id", event.ID,
			"circuit_opened", opened,
			"error", err,
		)
	}
	if w.fallback == nil {
		w.metrics.IncrementEventsDropped()
		return
	}
	if err := w.fallback.Write(ctx, event); err != nil {
		w.metrics.IncrementEventsDropped()
		return
	}
	w.metrics.IncrementEventsPublished(w.fallback.Name())
}
