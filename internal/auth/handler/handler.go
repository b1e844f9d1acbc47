package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/auth/models"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
	"foodbridge/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for authentication operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Session, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

// Handler handles the /auth endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

// New creates a new auth Handler.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the auth routes. requireAuth guards logout and me.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.With(requireAuth).Post("/auth/logout", h.HandleLogout)
	r.With(requireAuth).Get("/auth/me", h.HandleMe)
}

// HandleRegister creates an identity and returns a session token.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid register request")
		return
	}

	session, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.fail(ctx, w, err, "registration failed")
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"user_id", session.User.ID.String(),
		"role", session.User.Role,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.ToAuthResponse(session))
}

// HandleLogin authenticates email, password and role.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid login request")
		return
	}

	session, err := h.auth.Login(ctx, &req)
	if err != nil {
		h.fail(ctx, w, err, "login failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToAuthResponse(session))
}

// HandleLogout revokes the presented token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx, requestcontext.TokenID(ctx), requestcontext.TokenExpiry(ctx)); err != nil {
		h.fail(ctx, w, err, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe echoes the identity asserted by the token.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	if actor.ID.IsNil() {
		h.fail(r.Context(), w, dErrors.New(dErrors.CodeInternal, "authentication context error"), "actor missing from context")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MeResponse{
		ID:   actor.ID.String(),
		Name: actor.Name,
		Role: actor.Role.String(),
	})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	status := dErrors.HTTPStatus(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
	httputil.WriteError(w, err)
}
