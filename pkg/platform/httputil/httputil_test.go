package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "phasegate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["error_description"] != "invalid input" {
			t.Fatalf("expected error_description to be returned for bad request")
		}
	})

	t.Run("uncoded error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "unexpected EOF")
	})

	t.Run("rate limited sets Retry-After rounded up", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.RateLimited("slow down", 1500*time.Millisecond))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
	})
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeInvalidInput:    http.StatusBadRequest,
		dErrors.CodeIncorrectCode:   http.StatusBadRequest,
		dErrors.CodeProviderFailure: http.StatusBadRequest,
		dErrors.CodeUnauthorized:    http.StatusUnauthorized,
		dErrors.CodeForbidden:       http.StatusForbidden,
		dErrors.CodeNotFound:        http.StatusNotFound,
		dErrors.CodeConflict:        http.StatusConflict,
		dErrors.CodeRateLimited:     http.StatusTooManyRequests,
		dErrors.CodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}

type sampleRequest struct {
	Name string `json:"name" validate:"required,max=8"`
	seen bool
}

func (r *sampleRequest) Validate() error {
	if strings.HasPrefix(r.Name, "x") {
		return dErrors.New(dErrors.CodeInvalidInput, "name must not start with x")
	}
	r.seen = true
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, _ := DecodeAndPrepare[sampleRequest](w, r, logger, r.Context(), "req-1")
		return req, w
	}

	t.Run("valid body runs Validate", func(t *testing.T) {
		req, _ := decode(`{"name":"acme"}`)
		require.NotNil(t, req)
		assert.True(t, req.seen)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		req, w := decode(`{"name":`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "bad_request")
	})

	t.Run("struct tag failure uses JSON field name", func(t *testing.T) {
		req, w := decode(`{}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name is required")
	})

	t.Run("Validate failure", func(t *testing.T) {
		req, w := decode(`{"name":"xacme"}`)
		assert.Nil(t, req)
		assert.Contains(t, w.Body.String(), "invalid_input")
	})
}

func TestPrepareForm(t *testing.T) {
	form := url.Values{"name": {"acme"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	require.True(t, IsForm(r))
	req, ok := PrepareForm(w, r, func(req *sampleRequest, get func(string) string) {
		req.Name = get("name")
	})
	require.True(t, ok)
	assert.Equal(t, "acme", req.Name)
}
