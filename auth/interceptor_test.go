package auth_test

import (
	"net/http"
	"net/http/httptest"
	"presence-chat/auth"
	"presence-chat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sessionsFunc func(name string, session string) error

func (f sessionsFunc) CheckSession(name string, session string) error {
	return f(name, session)
}

func TestResolveIdentity(t *testing.T) {
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	token, err := issuer.GenerateToken("alice", "session-1")
	require.NoError(t, err)

	t.Run("should trust the User header when no token is required", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set(auth.UserHeader, "bob")

		identity, err := auth.ResolveIdentity(r, issuer, nil, false)

		req.NoError(err)
		req.Equal("bob", identity)
	})

	t.Run("should reject a missing token when tokens are required", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set(auth.UserHeader, "bob")

		_, err := auth.ResolveIdentity(r, issuer, nil, true)

		req.ErrorIs(err, errors.ErrUnauthorized)
	})

	t.Run("should take identity from a valid token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		identity, err := auth.ResolveIdentity(r, issuer, nil, true)

		req.NoError(err)
		req.Equal("alice", identity)
	})

	t.Run("should reject a User header that disagrees with the token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set(auth.UserHeader, "mallory")

		_, err := auth.ResolveIdentity(r, issuer, nil, false)

		req.ErrorIs(err, errors.ErrUnauthorized)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)
		forged, err := auth.NewTokenIssuer("other", time.Hour).GenerateToken("alice", "session-1")
		req.NoError(err)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Bearer "+forged)

		_, err = auth.ResolveIdentity(r, issuer, nil, false)

		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should reject a token from a session that is no longer live", func(t *testing.T) {
		req := require.New(t)
		var checked []string
		sessions := sessionsFunc(func(name string, session string) error {
			checked = append(checked, name, session)
			return errors.ErrUnauthorized
		})
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		_, err := auth.ResolveIdentity(r, issuer, sessions, true)

		req.ErrorIs(err, errors.ErrUnauthorized)
		req.Equal([]string{"alice", "session-1"}, checked)
	})

	t.Run("should accept a token from the live session", func(t *testing.T) {
		req := require.New(t)
		sessions := sessionsFunc(func(name string, session string) error { return nil })
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		identity, err := auth.ResolveIdentity(r, issuer, sessions, true)

		req.NoError(err)
		req.Equal("alice", identity)
	})

	t.Run("should reject a non bearer scheme", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodGet, "/messages", nil)
		r.Header.Set("Authorization", "Basic YWxpY2U6")

		_, err := auth.ResolveIdentity(r, issuer, nil, false)

		req.ErrorIs(err, errors.ErrUnauthorized)
	})
}

func TestIdentityMiddleware(t *testing.T) {
	req := require.New(t)
	issuer := auth.NewTokenIssuer("secret", time.Hour)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	sessions := sessionsFunc(func(name string, session string) error { return nil })
	onError := func(w http.ResponseWriter, err error) {
		w.WriteHeader(errors.MapToHTTPStatus(err))
	}
	handler := auth.IdentityMiddleware(issuer, sessions, true, onError)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/participants", nil))
	req.Equal(http.StatusUnauthorized, rec.Code)
	req.Empty(seen)

	token, err := issuer.GenerateToken("alice", "session-1")
	req.NoError(err)
	r := httptest.NewRequest(http.MethodGet, "/participants", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	req.Equal(http.StatusNoContent, rec.Code)
	req.Equal("alice", seen)
}
