package testutil

import (
	"net/http"

	id "phasegate/pkg/domain"
	"phasegate/pkg/requestcontext"
)

// WithProfile adds the authenticated subject to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithProfile(req *http.Request, profileID id.ProfileID, email string) *http.Request {
	ctx := requestcontext.WithProfileID(req.Context(), profileID)
	ctx = requestcontext.WithEmail(ctx, email)
	return req.WithContext(ctx)
}
