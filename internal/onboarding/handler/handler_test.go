package handler

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phasegate/internal/onboarding/service"
	profileservice "phasegate/internal/profile/service"
	profilestore "phasegate/internal/profile/store"
	vservice "phasegate/internal/verification/service"
	vstore "phasegate/internal/verification/store"
	id "phasegate/pkg/domain"
	"phasegate/pkg/testutil"
)

func newRouter() chi.Router {
	svc := service.New(
		profileservice.New(profilestore.NewInMemory()),
		vservice.New(vstore.NewInMemory()),
	)
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestHandleBootstrap(t *testing.T) {
	router := newRouter()
	profileID := id.ProfileID(uuid.New())

	bootstrap := func(body any) *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/bootstrap", body)
		return testutil.WithProfile(req, profileID, "a@acme.com")
	}

	rr := testutil.DoRequest(router, bootstrap(map[string]string{"role": "employer", "company_name": "Acme"}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[BootstrapResponse](t, rr)
	assert.True(t, resp.OK)
	assert.Equal(t, "EMPLOYER", resp.Role)
	_, err := uuid.Parse(resp.EntityID)
	require.NoError(t, err)

	again := testutil.DoRequest(router, bootstrap(map[string]string{"role": "EMPLOYER", "company_name": "Acme"}))
	testutil.AssertStatus(t, again, http.StatusOK)
	assert.Equal(t, resp.EntityID, testutil.UnmarshalResponse[BootstrapResponse](t, again).EntityID)

	conflict := testutil.DoRequest(router, bootstrap(map[string]string{"role": "CANDIDATE"}))
	testutil.AssertStatusAndError(t, conflict, http.StatusConflict, "conflict")
}

func TestHandleBootstrapErrors(t *testing.T) {
	router := newRouter()

	t.Run("unknown role", func(t *testing.T) {
		req := testutil.WithProfile(testutil.NewJSONRequest(t, http.MethodPost, "/bootstrap", map[string]string{"role": "ADMIN"}), id.ProfileID(uuid.New()), "a@acme.com")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "invalid_input")
	})

	t.Run("missing company name", func(t *testing.T) {
		req := testutil.WithProfile(testutil.NewJSONRequest(t, http.MethodPost, "/bootstrap", map[string]string{"role": "EMPLOYER"}), id.ProfileID(uuid.New()), "a@acme.com")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "invalid_input")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/bootstrap", map[string]string{"role": "CANDIDATE"})
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/bootstrap", nil)
		req = testutil.WithProfile(req, id.ProfileID(uuid.New()), "a@acme.com")
		testutil.AssertStatusAndError(t, testutil.DoRequest(router, req), http.StatusBadRequest, "bad_request")
	})
}

var _ Service = (*service.Service)(nil)
