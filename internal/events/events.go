// Package events carries domain notifications (registrations, new donations,
// claims) from services to an external sink without blocking requests.
package events

import (
	"context"
	"time"
)

// Type names a domain event.
type Type string

const (
	TypeUserRegistered  Type = "user.registered"
	TypeDonationCreated Type = "donation.created"
	TypeDonationClaimed Type = "donation.claimed"
)

// Event is a transport-agnostic notification. SubjectID is the entity the
// event is about and doubles as the partition key.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	ActorID    string            `json:"actorId,omitempty"`
	SubjectID  string            `json:"subjectId"`
	RequestID  string            `json:"requestId,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Sink delivers events somewhere durable or observable.
type Sink interface {
	Name() string
	Write(ctx context.Context, event Event) error
}
