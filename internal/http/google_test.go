package http_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leul120/portfolio/internal/domain"
	api "github.com/Leul120/portfolio/internal/http"
	"github.com/Leul120/portfolio/internal/oauth"
	"github.com/Leul120/portfolio/internal/security"
)

type fakeGoogle struct {
	users map[string]*oauth.GoogleUser
}

func (fakeGoogle) MakeState(nonce string) string { return "st-" + nonce }

func (fakeGoogle) VerifyState(state string) error {
	if state != "good-state" {
		return oauth.ErrBadState
	}
	return nil
}

func (fakeGoogle) AuthURL(state string) string {
	return "https://accounts.google.test/auth?state=" + state
}

func (f fakeGoogle) Exchange(_ context.Context, code string) (*oauth.GoogleUser, error) {
	if u, ok := f.users[code]; ok {
		return u, nil
	}
	return nil, errors.New("bad code")
}

func TestGoogleSignIn(t *testing.T) {
	g := fakeGoogle{users: map[string]*oauth.GoogleUser{
		"owner":      {Sub: "1", Email: "Owner@example.com", EmailVerified: true},
		"stranger":   {Sub: "2", Email: "stranger@example.com", EmailVerified: true},
		"unverified": {Sub: "3", Email: "owner@example.com"},
	}}
	env := newTestEnv(t, func(a *api.App) { a.Google = g })
	p, _ := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := env.do("GET", "/auth/google", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "state=st-")

	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/auth/google/callback?state=forged&code=owner", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do("GET", "/auth/google/callback?state=good-state", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/auth/google/callback?state=good-state&code=nope", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/auth/google/callback?state=good-state&code=stranger", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/auth/google/callback?state=good-state&code=unverified", nil, "").Code)

	w = env.do("GET", "/auth/google/callback?state=good-state&code=owner", nil, "")
	requireStatus(t, w, http.StatusOK)
	out := decode[authBody](t, w)
	claims, err := env.Tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, p.ID.Hex(), claims.Subject)
}

func TestJWKS_WithRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	km := security.NewKeyManagerFromKey("kid-1", key)
	tokens := security.NewRSATokens(km, time.Hour)

	env := newTestEnv(t, func(a *api.App) {
		a.Tokens = tokens
		a.JWKS = km.JWKS
	})
	env.Tokens = tokens
	_, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := env.do("GET", "/.well-known/jwks.json", nil, "")
	requireStatus(t, w, http.StatusOK)
	set := decode[security.JWKSet](t, w)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "kid-1", set.Keys[0].Kid)

	requireStatus(t, env.do("GET", "/get-user", nil, tok), http.StatusOK)
}
