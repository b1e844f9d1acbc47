package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"foodbridge/internal/donation/models"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/httputil"
	"foodbridge/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the donation ledger operations the handler needs.
type Service interface {
	Create(ctx context.Context, actor domain.Actor, req *models.CreateDonationRequest) (*models.Donation, error)
	List(ctx context.Context, actor domain.Actor, rawStatus string) ([]*models.Donation, error)
	Get(ctx context.Context, rawID string) (*models.Donation, error)
	Claim(ctx context.Context, actor domain.Actor, rawID string) (*models.Donation, error)
}

// Handler handles the /donations endpoints.
type Handler struct {
	donations Service
	logger    *slog.Logger
}

func New(donations Service, logger *slog.Logger) *Handler {
	return &Handler{donations: donations, logger: logger}
}

// Register mounts the donation routes behind requireAuth. requireRole builds
// the per-route role gate.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler, requireRole func(domain.Role) func(http.Handler) http.Handler) {
	r.Route("/donations", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(requireRole(domain.RoleDonor)).Post("/", h.HandleCreate)
		r.With(requireRole(domain.RoleNGO)).Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.With(requireRole(domain.RoleNGO)).Patch("/{id}/pick", h.HandlePick)
	})
}

// HandleCreate posts a donation for the authenticated donor.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateDonationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, err, "invalid donation request")
		return
	}

	d, err := h.donations.Create(ctx, requestcontext.Actor(ctx), &req)
	if err != nil {
		h.fail(ctx, w, err, "create donation failed")
		return
	}

	h.logger.InfoContext(ctx, "donation created",
		"donation_id", d.ID.String(),
		"user_id", d.DonorID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(d))
}

// HandleList lists donations newest first, optionally filtered by ?status=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donations, err := h.donations.List(ctx, requestcontext.Actor(ctx), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(ctx, w, err, "list donations failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponses(donations))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := h.donations.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "get donation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(d))
}

// HandlePick claims a donation for the authenticated NGO. Any body is ignored.
func (h *Handler) HandlePick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := h.donations.Claim(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, err, "claim donation failed")
		return
	}

	h.logger.InfoContext(ctx, "donation claimed",
		"donation_id", d.ID.String(),
		"user_id", d.Claimant.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(d))
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
