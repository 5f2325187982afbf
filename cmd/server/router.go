package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "phasegate/internal/jwt_token"
	"phasegate/internal/platform/metrics"
	"phasegate/pkg/platform/httputil"
	authmw "phasegate/pkg/platform/middleware/auth"
	"phasegate/pkg/platform/middleware/metadata"
	"phasegate/pkg/platform/middleware/request"
	"phasegate/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(a.logger))
	r.Use(request.Logger(a.logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", metrics.Handler(a.registry))

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(a.jwt), a.logger))
		a.onboarding.Register(r)
		a.verification.Register(r)
		a.otp.Register(r)
		a.outreach.Register(r)
		a.admin.Register(r)
	})
	return r
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := a.health(ctx); err != nil {
		a.logger.ErrorContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
