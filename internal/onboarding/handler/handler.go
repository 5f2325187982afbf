package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"phasegate/internal/onboarding/service"
	id "phasegate/pkg/domain"
	"phasegate/pkg/platform/httputil"
	"phasegate/pkg/requestcontext"
)

type Service interface {
	Bootstrap(ctx context.Context, profileID id.ProfileID, email string, req service.Request) (*service.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/bootstrap", h.HandleBootstrap)
}

// HandleBootstrap handles POST /bootstrap. The email comes from the token,
// never from the body.
func (h *Handler) HandleBootstrap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	profileID := requestcontext.ProfileID(ctx)

	req, ok := httputil.DecodeAndPrepare[BootstrapRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Bootstrap(ctx, profileID, requestcontext.Email(ctx), service.Request{
		Role:        req.parsedRole,
		CompanyName: req.CompanyName,
		FullName:    req.FullName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "bootstrap failed",
			"request_id", requestID,
			"profile_id", profileID,
			"role", req.parsedRole,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BootstrapResponse{
		OK:       true,
		Role:     res.Role.String(),
		EntityID: res.EntityID,
	})
}

// BootstrapRequest is the body of POST /bootstrap.
type BootstrapRequest struct {
	Role        string `json:"role" validate:"required,max=16"`
	CompanyName string `json:"company_name" validate:"max=200"`
	FullName    string `json:"full_name" validate:"max=200"`

	parsedRole id.Role
}

func (r *BootstrapRequest) Validate() error {
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

type BootstrapResponse struct {
	OK       bool   `json:"ok"`
	Role     string `json:"role"`
	EntityID string `json:"entityId"`
}
