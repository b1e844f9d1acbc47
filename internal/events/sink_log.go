package events

import (
	"context"
	"log/slog"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Write(ctx context.Context, event Event) error {
	args := []any{
		"log_type", "event",
		"event_id", event.ID,
		"event_type", event.Type,
		"subject_id", event.SubjectID,
		"occurred_at", event.OccurredAt,
	}
	if event.ActorID != "" {
		args = append(args, "actor_id", event.ActorID)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	for k, v := range event.Attributes {
		args = append(args, k, v)
	}
	s.logger.InfoContext(ctx, string(event.Type), args...)
	return nil
}
