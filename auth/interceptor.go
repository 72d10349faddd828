package auth

import (
	"context"
	"fmt"
	"net/http"
	"presence-chat/errors"
	"strings"
)

// UserHeader carries the caller's declared identity.
const UserHeader = "User"

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the caller identity resolved by IdentityMiddleware.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey).(string)
	return identity
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// ResolveIdentity picks the caller identity of r.
// A bearer token, when present, is authoritative: it must be valid and must
// agree with the User header if that header is set too. When sessions is not
// nil the token must also belong to the participant's current join, so a token
// issued before an eviction stops working. Without a token the User header is
// trusted unless requireToken is set.
func ResolveIdentity(r *http.Request, tokens TokenIssuer, sessions SessionChecker, requireToken bool) (string, error) {
	declared := r.Header.Get(UserHeader)
	authorization := r.Header.Get("Authorization")

	if authorization == "" {
		if requireToken {
			return "", fmt.Errorf("%w: authorization token is missing", errors.ErrUnauthorized)
		}
		return declared, nil
	}

	tokenString, found := strings.CutPrefix(authorization, "Bearer ")
	if !found {
		return "", fmt.Errorf("%w: expected a bearer token", errors.ErrUnauthorized)
	}
	identity, err := tokens.ValidateToken(strings.TrimSpace(tokenString))
	if err != nil {
		return "", err
	}
	if declared != "" && declared != identity.Name {
		return "", fmt.Errorf("%w: %s header does not match token", errors.ErrUnauthorized, UserHeader)
	}
	if sessions != nil {
		if err := sessions.CheckSession(identity.Name, identity.Session); err != nil {
			return "", err
		}
	}
	return identity.Name, nil
}

// IdentityMiddleware resolves the caller identity and stores it in the
// request context. Resolution failures are answered by onError.
func IdentityMiddleware(tokens TokenIssuer, sessions SessionChecker, requireToken bool, onError func(http.ResponseWriter, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := ResolveIdentity(r, tokens, sessions, requireToken)
			if err != nil {
				onError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
