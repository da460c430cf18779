package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// This package carries the caller's bearer token and user id on the request
// context so outbound clients can forward them to the upstream API.

// contextKey is a private type to avoid key collisions in the context.
type contextKey string

const (
	UserIDKey      = contextKey("user_id")
	AccessTokenKey = contextKey("access_token")
)

// userIDHeader is set by the fronting gateway once it has authenticated the caller.
const userIDHeader = "X-User-ID"

// Middleware copies the bearer token and user id headers into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			r = SetAccessToken(r, token)
		}
		if raw := r.Header.Get(userIDHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = SetUserID(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SetUserID returns a new request with the user's ID added to its context.
func SetUserID(r *http.Request, id uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, id)
	return r.WithContext(ctx)
}

// GetUserID retrieves the user's ID from the context.
func GetUserID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("no user ID in context")
	}
	return id, nil
}

// SetAccessToken returns a new request carrying the caller's bearer token.
func SetAccessToken(r *http.Request, token string) *http.Request {
	return r.WithContext(WithAccessToken(r.Context(), token))
}

// WithAccessToken is SetAccessToken for code that has no request, like the CLI.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, AccessTokenKey, token)
}

// AccessToken returns the caller's token, or fallback when there is none.
func AccessToken(ctx context.Context, fallback string) string {
	if token, ok := ctx.Value(AccessTokenKey).(string); ok && token != "" {
		return token
	}
	return fallback
}

// Authorize sets the Authorization header on an outbound request.
func Authorize(req *http.Request, fallback string) {
	if token := AccessToken(req.Context(), fallback); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
