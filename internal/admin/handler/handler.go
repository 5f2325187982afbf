package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	profilemodels "phasegate/internal/profile/models"
	vmodels "phasegate/internal/verification/models"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/httputil"
	"phasegate/pkg/requestcontext"
)

// queuePath is where form submissions are redirected after a decision.
const queuePath = "/admin/verifications"

type Service interface {
	Decide(ctx context.Context, adminID id.ProfileID, recordID id.VerificationID, decision string) (*vmodels.Verification, error)
	Queue(ctx context.Context, adminID id.ProfileID) ([]*vmodels.Verification, error)
}

// Profiles gates the caller to admins before the decision body is read.
type Profiles interface {
	RequireAdmin(ctx context.Context, profileID id.ProfileID) (*profilemodels.Profile, error)
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
	r.Post("/admin/verification/decision", h.HandleDecision)
	r.Get(queuePath, h.HandleQueue)
}

// HandleDecision handles POST /admin/verification/decision. It accepts a
// JSON body or an HTML form; forms are answered with a redirect back to the
// queue.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	adminID := requestcontext.ProfileID(ctx)

	if _, err := h.profiles.RequireAdmin(ctx, adminID); err != nil {
		h.logger.WarnContext(ctx, "admin decision refused",
			"request_id", requestID,
			"profile_id", adminID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	form := httputil.IsForm(r)
	var req *DecisionRequest
	var ok bool
	if form {
		req, ok = httputil.PrepareForm(w, r, func(req *DecisionRequest, get func(string) string) {
			req.ID = get("id")
			req.Decision = get("decision")
		})
	} else {
		req, ok = httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	}
	if !ok {
		return
	}

	if _, err := h.service.Decide(ctx, adminID, req.recordID, req.Decision); err != nil {
		h.logger.WarnContext(ctx, "admin decision failed",
			"request_id", requestID,
			"admin_profile_id", adminID,
			"verification_id", req.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if form {
		http.Redirect(w, r, queuePath, http.StatusSeeOther)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleQueue handles GET /admin/verifications.
func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	adminID := requestcontext.ProfileID(ctx)

	records, err := h.service.Queue(ctx, adminID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromQueue(records))
}
