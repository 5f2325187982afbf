package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phasegate/internal/otp/service"
	profilemodels "phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/httputil"
	"phasegate/pkg/requestcontext"
)

// Service defines the phone verification operations the handler calls.
type Service interface {
	Start(ctx context.Context, profileID id.ProfileID, phone string) (*service.StartResult, error)
	Check(ctx context.Context, profileID id.ProfileID, code string) error
}

// Profiles gates the caller to the candidate role before any input is read.
type Profiles interface {
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

func (h *Handler) Register(r chi.Router) {
	r.Post("/candidate/verify/phone/start", h.HandleStart)
	r.Post("/candidate/verify/phone/check", h.HandleCheck)
}

// HandleStart handles POST /candidate/verify/phone/start.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	profileID := requestcontext.ProfileID(ctx)

	if _, err := h.profiles.Require(ctx, profileID, id.RoleCandidate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Start(ctx, profileID, req.Phone)
	if err != nil {
		h.logger.WarnContext(ctx, "phone verification start failed",
			"request_id", requestID,
			"profile_id", profileID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StartResponse{
		OK:              true,
		Last4:           res.Last4,
		AlreadyVerified: res.AlreadyVerified,
	})
}

// HandleCheck handles POST /candidate/verify/phone/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	profileID := requestcontext.ProfileID(ctx)

	if _, err := h.profiles.Require(ctx, profileID, id.RoleCandidate); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Check(ctx, profileID, req.Code); err != nil {
		h.logger.WarnContext(ctx, "phone verification check failed",
			"request_id", requestID,
			"profile_id", profileID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "phone verified",
		"request_id", requestID,
		"profile_id", profileID,
	)
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

type StartRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
}

type CheckRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type StartResponse struct {
	OK              bool   `json:"ok"`
	Last4           string `json:"last4,omitempty"`
	AlreadyVerified bool   `json:"alreadyVerified,omitempty"`
}
