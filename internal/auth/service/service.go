package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"foodbridge/internal/auth/models"
	"foodbridge/internal/auth/password"
	"foodbridge/internal/events"
	"foodbridge/internal/platform/metrics"
	"foodbridge/pkg/attrs"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TokenIssuer,TokenRevoker,EventPublisher

var tracer = otel.Tracer("foodbridge/auth")

type UserStore interface {
	CreateIfEmailAvailable(ctx context.Context, user *models.User) error
	FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*models.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role, name string) (string, time.Time, error)
}

type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Lockout tracks failed logins per account.
type Lockout interface {
	Check(ctx context.Context, identifier string) error
	RecordFailure(ctx context.Context, identifier string)
	Clear(ctx context.Context, identifier string)
}

// Service registers and authenticates identities and issues session tokens.
type Service struct {
	users     UserStore
	hasher    PasswordHasher
	tokens    TokenIssuer
	revoker   TokenRevoker
	logger    *slog.Logger
	publisher EventPublisher
	lockout   Lockout
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

// WithRevoker enables logout. Without it Logout is a no-op.
func WithRevoker(revoker TokenRevoker) Option {
	return func(s *Service) {
		s.revoker = revoker
	}
}

// WithLockout rejects logins for an account after repeated failures.
func WithLockout(lockout Lockout) Option {
	return func(s *Service) {
		s.lockout = lockout
	}
}

// New constructs a Service.
func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, hasher: hasher, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an identity and signs a token for it.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer span.End()

	req.Normalize()
	role, err := req.Validate()
	if err != nil {
		return nil, endSpan(span, err)
	}
	span.SetAttributes(attribute.String("role", role.String()))

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, endSpan(span, err)
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password"))
	}

	user := &models.User{
		ID:           domain.NewUserID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.CreateIfEmailAvailable(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, endSpan(span, dErrors.New(dErrors.CodeDuplicateContact, "Email already registered"))
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user"))
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, endSpan(span, err)
	}

	s.metrics.IncrementUsersRegistered(role.String())
	s.emit(ctx, events.TypeUserRegistered, user.ID.String(),
		"user_id", user.ID.String(),
		"role", role,
	)
	return session, nil
}

// Authenticate returns the identity whose email, role and password all match.
func (s *Service) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, endSpan(span, err)
	}
	if s.lockout != nil {
		if err := s.lockout.Check(ctx, req.Email); err != nil {
			return nil, endSpan(span, err)
		}
	}

	user, err := s.users.FindByEmailAndRole(ctx, req.Email, domain.Role(req.Role))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, req.Email)
			return nil, endSpan(span, dErrors.New(dErrors.CodeUnknownIdentity, "Invalid email or role"))
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.recordFailure(ctx, req.Email)
			if s.logger != nil {
				s.logger.WarnContext(ctx, "login rejected - bad credential",
					"user_id", user.ID.String(),
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			return nil, endSpan(span, dErrors.New(dErrors.CodeBadCredential, "Invalid password"))
		}
		return nil, endSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password"))
	}
	if s.lockout != nil {
		s.lockout.Clear(ctx, req.Email)
	}
	return user, nil
}

func (s *Service) recordFailure(ctx context.Context, email string) {
	if s.lockout != nil {
		s.lockout.RecordFailure(ctx, email)
	}
}

// Login authenticates and signs a fresh token.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error) {
	user, err := s.Authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Logout revokes the token identified by jti for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.revoker == nil || jti == "" {
		return nil
	}
	ttl := expiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

func (s *Service) issue(user *models.User) (*models.Session, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(uuid.UUID(user.ID), user.Role.String(), user.Name)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return &models.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
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
