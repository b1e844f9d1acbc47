package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"foodbridge/internal/donation/models"
	"foodbridge/internal/events"
	"foodbridge/internal/platform/metrics"
	"foodbridge/pkg/attrs"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,EventPublisher

var tracer = otel.Tracer("foodbridge/donation")

type Store interface {
	Create(ctx context.Context, d *models.Donation) error
	List(ctx context.Context, status models.Status) ([]*models.Donation, error)
	FindByID(ctx context.Context, id domain.DonationID) (*models.Donation, error)
	UpdateStatus(ctx context.Context, id domain.DonationID, status models.Status, claimant models.Claimant, at time.Time) (*models.Donation, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Service is the donation ledger: donors post, NGOs browse and claim.
type Service struct {
	store     Store
	logger    *slog.Logger
	publisher EventPublisher
	metrics   *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records a new open donation owned by the donor actor. The donor
// name falls back to the actor's display name when omitted.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req *models.CreateDonationRequest) (*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.Create")
	defer span.End()

	if err := requireRole(actor, domain.RoleDonor); err != nil {
		return nil, endSpan(span, err)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, endSpan(span, err)
	}

	donorName := req.DonorName
	if donorName == "" {
		donorName = actor.Name
	}
	d := &models.Donation{
		ID:             domain.NewDonationID(),
		DonorID:        actor.ID,
		DonorName:      donorName,
		Phone:          req.Phone,
		Address:        req.Address,
		FoodDetails:    req.FoodDetails,
		Quantity:       req.Quantity,
		BestBeforeTime: req.BestBeforeTime,
		Status:         models.StatusOpen,
		CreatedAt:      requestcontext.Now(ctx),
	}
	span.SetAttributes(attribute.String("donation_id", d.ID.String()))

	if err := s.store.Create(ctx, d); err != nil {
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create donation"))
	}

	s.metrics.IncrementDonationsCreated()
	s.emit(ctx, events.TypeDonationCreated, d.ID.String(),
		"user_id", actor.ID.String(),
		"donation_id", d.ID.String(),
	)
	return d, nil
}

// List returns donations newest first. rawStatus is the optional ?status=
// filter; anything other than open or picked is rejected.
func (s *Service) List(ctx context.Context, actor domain.Actor, rawStatus string) ([]*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.List")
	defer span.End()

	if err := requireRole(actor, domain.RoleNGO); err != nil {
		return nil, endSpan(span, err)
	}
	status, err := models.ParseStatusFilter(rawStatus)
	if err != nil {
		return nil, endSpan(span, err)
	}
	span.SetAttributes(attribute.String("status", status.String()))

	donations, err := s.store.List(ctx, status)
	if err != nil {
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations"))
	}
	return donations, nil
}

// Get returns a single donation to any authenticated actor.
func (s *Service) Get(ctx context.Context, rawID string) (*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.Get")
	defer span.End()

	id, err := domain.ParseDonationID(rawID)
	if err != nil {
		return nil, endSpan(span, notFound())
	}
	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, endSpan(span, notFound())
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load donation"))
	}
	return d, nil
}

// Claim marks an open donation as picked by the NGO actor. Only the first
// claim succeeds; later ones fail with already_claimed and leave the
// recorded claimant untouched.
func (s *Service) Claim(ctx context.Context, actor domain.Actor, rawID string) (*models.Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.Claim")
	defer span.End()

	if err := requireRole(actor, domain.RoleNGO); err != nil {
		return nil, endSpan(span, err)
	}
	id, err := domain.ParseDonationID(rawID)
	if err != nil {
		return nil, endSpan(span, notFound())
	}
	span.SetAttributes(attribute.String("donation_id", id.String()))

	claimant := models.Claimant{ID: actor.ID, Name: actor.Name}
	d, err := s.store.UpdateStatus(ctx, id, models.StatusPicked, claimant, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, endSpan(span, notFound())
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.metrics.IncrementClaimConflicts()
			if s.logger != nil {
				s.logger.WarnContext(ctx, "claim rejected - already picked",
					"donation_id", id.String(),
					"user_id", actor.ID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			return nil, endSpan(span, dErrors.New(dErrors.CodeAlreadyClaimed, "Already picked"))
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim donation"))
	}

	s.metrics.IncrementDonationsClaimed()
	s.emit(ctx, events.TypeDonationClaimed, d.ID.String(),
		"user_id", actor.ID.String(),
		"donation_id", d.ID.String(),
		"donor_id", d.DonorID.String(),
	)
	return d, nil
}

func requireRole(actor domain.Actor, role domain.Role) error {
	if actor.ID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid token")
	}
	if actor.Role != role {
		return dErrors.New(dErrors.CodeForbidden, "Forbidden: wrong role")
	}
	return nil
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "Donation not found")
}

func (s *Service) emit(ctx context.Context, eventType events.Type, subjectID string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if s.logger != nil {
		args := append(attributes, "event", string(eventType), "log_type", "audit")
		s.logger.InfoContext(ctx, string(eventType), args...)
	}
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		ActorID:    attrs.ExtractString(attributes, "user_id"),
		SubjectID:  subjectID,
		Attributes: attrs.ToStringMap(attributes),
	})
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
