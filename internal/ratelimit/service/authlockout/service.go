// Package authlockout locks an account out of login after repeated failed
// attempts inside a sliding window.
package authlockout

import (
	"context"
	"log/slog"
	"time"

	"foodbridge/internal/ratelimit/models"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/requestcontext"
)

// Store is the sliding-window backend shared with the per-IP limiter.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Peek(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// RejectionCounter observes locked-out attempts.
type RejectionCounter interface {
	IncrementRateLimited(scope string)
}

const scope = "login"

type Service struct {
	store    Store
	attempts int
	window   time.Duration
	logger   *slog.Logger
	counter  RejectionCounter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithRejectionCounter(c RejectionCounter) Option {
	return func(s *Service) {
		s.counter = c
	}
}

// New returns a lockout allowing attempts failures per window for each
// account. It returns nil, a disabled lockout, when attempts or window is not
// positive. All methods are safe on a nil Service.
func New(store Store, attempts int, window time.Duration, opts ...Option) *Service {
	if store == nil || attempts <= 0 || window <= 0 {
		return nil
	}
	s := &Service{
		store:    store,
		attempts: attempts,
		window:   window,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check rejects identifier with CodeRateLimited while it is locked out.
// Store failures let the attempt through.
func (s *Service) Check(ctx context.Context, identifier string) error {
	if s == nil {
		return nil
	}
	res, err := s.store.Peek(ctx, key(identifier), s.attempts, s.window)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check auth lockout",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if res.Allowed {
		return nil
	}
	s.logger.WarnContext(ctx, "login rejected - account locked",
		"locked_until", res.ResetAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.counter != nil {
		s.counter.IncrementRateLimited(scope)
	}
	return dErrors.New(dErrors.CodeRateLimited, "Too many failed login attempts, please try again later")
}

// RecordFailure counts one failed attempt against identifier.
func (s *Service) RecordFailure(ctx context.Context, identifier string) {
	if s == nil {
		return
	}
	res, err := s.store.Allow(ctx, key(identifier), s.attempts, s.window)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record auth failure",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	if res.Remaining == 0 {
		s.logger.WarnContext(ctx, "auth lockout triggered",
			"locked_until", res.ResetAt,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// Clear forgets the failures of identifier after a successful login.
func (s *Service) Clear(ctx context.Context, identifier string) {
	if s == nil {
		return
	}
	if err := s.store.Reset(ctx, key(identifier)); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear auth failures",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func key(identifier string) string {
	return models.Key(scope, "account", identifier)
}
