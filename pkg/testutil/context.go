package testutil

import (
	"net/http"
	"time"

	"foodbridge/pkg/domain"
	"foodbridge/pkg/requestcontext"
)

// WithActor places an authenticated actor on the request context, the way
// RequireAuth does for a verified bearer token.
func WithActor(req *http.Request, actor domain.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithToken records the token id and expiry on the request context.
func WithToken(req *http.Request, jti string, expiresAt time.Time) *http.Request {
	return req.WithContext(requestcontext.WithToken(req.Context(), jti, expiresAt))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
