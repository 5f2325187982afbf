package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phasegate/internal/outreach/models"
	profilemodels "phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/httputil"
	"phasegate/pkg/requestcontext"
)

type Service interface {
	Send(ctx context.Context, employerID, candidateID id.ProfileID, message string) (*models.Record, error)
	ListCandidates(ctx context.Context, employerID id.ProfileID) ([]models.CandidateView, error)
	History(ctx context.Context, employerID id.ProfileID) ([]*models.Record, error)
}

// Profiles gates the caller to the employer role before any input is read.
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

// Register mounts the employer outreach endpoints behind auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/employer/outreach", h.HandleSend)
	r.Get("/employer/outreach", h.HandleHistory)
	r.Get("/employer/candidates", h.HandleCandidates)
}

// HandleSend handles POST /employer/outreach.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	employerID := requestcontext.ProfileID(ctx)

	if _, err := h.profiles.Require(ctx, employerID, id.RoleEmployer); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.service.Send(ctx, employerID, req.candidateID, req.Message); err != nil {
		h.logger.WarnContext(ctx, "outreach rejected",
			"request_id", requestID,
			"employer_profile_id", employerID,
			"candidate_profile_id", req.candidateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleCandidates handles GET /employer/candidates.
func (h *Handler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employerID := requestcontext.ProfileID(ctx)

	candidates, err := h.service.ListCandidates(ctx, employerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CandidatesResponse{Candidates: candidates})
}

// HandleHistory handles GET /employer/outreach.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employerID := requestcontext.ProfileID(ctx)

	records, err := h.service.History(ctx, employerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load outreach history",
			"request_id", requestcontext.RequestID(ctx),
			"employer_profile_id", employerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}
