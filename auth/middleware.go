package auth

import (
	"context"
	"dm-lab/domain"
	"dm-lab/errors"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const callerKey contextKey = "caller_id"

// ErrorWriter renders an authentication failure; the transport decides the response shape.
// The error always wraps errors.ErrUnauthenticated.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticate validates the "Authorization: Bearer <token>" header and injects the caller identity into
// the request context for the handlers behind it.
func Authenticate(tokens *TokenIssuer, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				onError(w, r, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, errMissingToken))
				return
			}
			callerID, err := tokens.Validate(tokenString)
			if err != nil {
				onError(w, r, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), callerID)))
		})
	}
}

func WithCaller(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, callerKey, id)
}

// CallerFrom returns the authenticated caller, false when the request did not go through Authenticate.
func CallerFrom(ctx context.Context) (domain.UserID, bool) {
	id, ok := ctx.Value(callerKey).(domain.UserID)
	return id, ok && id.Valid()
}
