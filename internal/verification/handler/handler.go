package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	profilemodels "phasegate/internal/profile/models"
	"phasegate/internal/verification/models"
	"phasegate/internal/verification/service"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/httputil"
	"phasegate/pkg/requestcontext"
)

// Service is the verification behavior the handler needs.
type Service interface {
	SubmitEvidence(ctx context.Context, profileID id.ProfileID, vtype models.VerificationType, value string) (*models.Verification, error)
	View(ctx context.Context, profileID id.ProfileID, role id.Role) (*service.View, error)
}

// Profiles resolves and gates the caller's profile.
type Profiles interface {
	Get(ctx context.Context, profileID id.ProfileID) (*profilemodels.Profile, error)
	Require(ctx context.Context, profileID id.ProfileID, role id.Role) (*profilemodels.Profile, error)
}

type Handler struct {
	service  Service
	profiles Profiles
	logger   *slog.Logger
}

func New(service Service, profiles Profiles, logger *slog.Logger) *Handler {
	return &Handler{service: service, profiles: profiles, logger: logger}
}

// Register mounts the verification endpoints. The router must already run
// the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/submit", h.HandleSubmit)
	r.Get("/me/verifications", h.HandleMyVerifications)
}

// HandleSubmit handles POST /verification/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	profileID := requestcontext.ProfileID(ctx)

	if _, err := h.profiles.Require(ctx, profileID, id.RoleEmployer); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.SubmitEvidence(ctx, profileID, req.parsedType, req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "evidence submission failed",
			"request_id", requestID,
			"profile_id", profileID,
			"vtype", req.parsedType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence submitted",
		"request_id", requestID,
		"profile_id", profileID,
		"vtype", rec.Type,
		"status", rec.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleMyVerifications handles GET /me/verifications.
func (h *Handler) HandleMyVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := requestcontext.ProfileID(ctx)

	profile, err := h.profiles.Get(ctx, profileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.View(ctx, profileID, profile.Role)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load verifications",
			"request_id", requestcontext.RequestID(ctx),
			"profile_id", profileID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}
