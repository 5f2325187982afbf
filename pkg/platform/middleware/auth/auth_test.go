package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "phasegate/pkg/domain"
	"phasegate/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	subject := uuid.New()

	var gotProfile id.ProfileID
	var gotEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProfile = requestcontext.ProfileID(r.Context())
		gotEmail = requestcontext.Email(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(v JWTValidator, header string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		RequireAuth(v, logger)(next).ServeHTTP(w, r)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		w := serve(stubValidator{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := serve(stubValidator{err: errors.New("bad signature")}, "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		w := serve(stubValidator{claims: &JWTClaims{Subject: "user-1"}}, "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		w := serve(stubValidator{claims: &JWTClaims{Subject: subject.String(), Email: "ops@acme.test"}}, "Bearer abc")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, id.ProfileID(subject), gotProfile)
		assert.Equal(t, "ops@acme.test", gotEmail)
	})
}
