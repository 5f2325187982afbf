// Package httputil holds the JSON response envelope and request decoding
// shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "phasegate/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; every endpoint takes a handful of short fields.
const maxBodyBytes = 64 << 10

var validate = newValidator()

// newValidator reports field names by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Validatable is implemented by request DTOs that need checks beyond struct tags
// (parsing, normalization).
type Validatable interface {
	Validate() error
}

// ErrorResponse is the error envelope returned for every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the error envelope. Uncoded errors are
// reported as internal errors, and internal errors never carry a description.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = &dErrors.Error{Code: dErrors.CodeInternal}
	}
	status := StatusFor(de.Code)
	if de.Code == dErrors.CodeRateLimited && de.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(de.RetryAfter.Seconds()))))
	}
	resp := ErrorResponse{Error: string(de.Code)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput,
		dErrors.CodeIncorrectCode, dErrors.CodeProviderFailure:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeAndPrepare decodes a JSON body into T, runs struct-tag validation and
// then T's Validate method when it has one. On failure it writes the error
// response itself and returns ok=false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}
	if err := prepare(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// PrepareForm fills T from an already parsed form via fill, then validates it
// exactly like DecodeAndPrepare does for JSON bodies.
func PrepareForm[T any](w http.ResponseWriter, r *http.Request, fill func(*T, func(string) string)) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
		return nil, false
	}
	req := new(T)
	fill(req, r.PostForm.Get)
	if err := prepare(req); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// IsForm reports whether the request body is form encoded.
func IsForm(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

func prepare(req any) error {
	if err := validate.Struct(req); err != nil {
		return validationError(err)
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return dErrors.New(dErrors.CodeValidation, field+" is required")
		case "max":
			return dErrors.New(dErrors.CodeValidation, field+" must be at most "+fe.Param()+" characters")
		default:
			return dErrors.New(dErrors.CodeValidation, field+" is invalid")
		}
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
}
