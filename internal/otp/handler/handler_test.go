package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/otp/service"
	profilemodels "phasegate/internal/profile/models"
	id "phasegate/pkg/domain"
	dErrors "phasegate/pkg/domain-errors"
	"phasegate/pkg/testutil"
)

// stubService returns canned results.
type stubService struct {
	startRes *service.StartResult
	err      error
	gotPhone string
	gotCode  string
}

func (s *stubService) Start(_ context.Context, _ id.ProfileID, phone string) (*service.StartResult, error) {
	s.gotPhone = phone
	return s.startRes, s.err
}

func (s *stubService) Check(_ context.Context, _ id.ProfileID, code string) error {
	s.gotCode = code
	return s.err
}

// stubProfiles admits callers holding role.
type stubProfiles struct {
	role id.Role
}

func (p stubProfiles) Require(_ context.Context, profileID id.ProfileID, role id.Role) (*profilemodels.Profile, error) {
	if role != p.role {
		return nil, dErrors.New(dErrors.CodeForbidden, "only "+role.String()+" profiles may do this")
	}
	return &profilemodels.Profile{ID: profileID, Role: p.role}, nil
}

func newRouter(svc Service) chi.Router {
	return newRouterAs(svc, id.RoleCandidate)
}

func newRouterAs(svc Service, role id.Role) chi.Router {
	r := chi.NewRouter()
	New(svc, stubProfiles{role: role}, slog.Default()).Register(r)
	return r
}

func authed(req *http.Request) *http.Request {
	return testutil.WithProfile(req, id.ProfileID(uuid.New()), "c@example.com")
}

func TestHandleStart(t *testing.T) {
	t.Run("returns last4", func(t *testing.T) {
		svc := &stubService{startRes: &service.StartResult{Last4: "1234"}}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{"phone": "+18185551234"}))
		rr := testutil.DoRequest(newRouter(svc), req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, true, (*resp)["ok"])
		assert.Equal(t, "1234", (*resp)["last4"])
		assert.NotContains(t, *resp, "alreadyVerified")
		assert.Equal(t, "+18185551234", svc.gotPhone)
	})

	t.Run("already verified", func(t *testing.T) {
		svc := &stubService{startRes: &service.StartResult{AlreadyVerified: true}}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{"phone": "+18185551234"}))
		rr := testutil.DoRequest(newRouter(svc), req)

		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, true, (*resp)["alreadyVerified"])
	})

	t.Run("rate limited sets Retry-After", func(t *testing.T) {
		svc := &stubService{err: dErrors.RateLimited("slow down", 30*time.Second)}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{"phone": "+18185551234"}))
		rr := testutil.DoRequest(newRouter(svc), req)

		testutil.AssertStatus(t, rr, http.StatusTooManyRequests)
		assert.Equal(t, "30", rr.Header().Get("Retry-After"))
	})

	t.Run("missing phone is a validation error", func(t *testing.T) {
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{}))
		rr := testutil.DoRequest(newRouter(&stubService{}), req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("employers are forbidden before the body is validated", func(t *testing.T) {
		svc := &stubService{}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{}))
		rr := testutil.DoRequest(newRouterAs(svc, id.RoleEmployer), req)

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
		assert.Empty(t, svc.gotPhone)
	})

	t.Run("provider failure hides the provider detail", func(t *testing.T) {
		svc := &stubService{err: dErrors.Wrap(assert.AnError, dErrors.CodeProviderFailure, "could not send a verification code, please try again")}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/start", map[string]string{"phone": "+18185551234"}))
		rr := testutil.DoRequest(newRouter(svc), req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		body := string(testutil.ReadBody(t, rr))
		assert.NotContains(t, body, assert.AnError.Error())
	})
}

func TestHandleCheck(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := &stubService{}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/check", map[string]string{"code": "123456"}))
		rr := testutil.DoRequest(newRouter(svc), req)
		testutil.AssertStatus(t, rr, http.StatusOK)
		require.Equal(t, "123456", svc.gotCode)
	})

	t.Run("employers are forbidden before the code is validated", func(t *testing.T) {
		svc := &stubService{}
		req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/check", map[string]string{}))
		rr := testutil.DoRequest(newRouterAs(svc, id.RoleEmployer), req)

		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
		assert.Empty(t, svc.gotCode)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"incorrect code", dErrors.New(dErrors.CodeIncorrectCode, "wrong"), http.StatusBadRequest, "incorrect_code"},
		{"no pending request", dErrors.New(dErrors.CodeNotFound, "none"), http.StatusNotFound, "not_found"},
		{"not a candidate", dErrors.New(dErrors.CodeForbidden, "no"), http.StatusForbidden, "forbidden"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			req := authed(testutil.NewJSONRequest(t, http.MethodPost, "/candidate/verify/phone/check", map[string]string{"code": "123456"}))
			rr := testutil.DoRequest(newRouter(&stubService{err: tc.err}), req)
			testutil.AssertStatusAndError(t, rr, tc.status, tc.code)
		})
	}
}
