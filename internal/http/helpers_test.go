package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Leul120/portfolio/internal/config"
	"github.com/Leul120/portfolio/internal/domain"
	api "github.com/Leul120/portfolio/internal/http"
	"github.com/Leul120/portfolio/internal/security"
)

const adminPassword = "Adm1n-Secret"

type testEnv struct {
	T      *testing.T
	Store  *memStore
	Mail   *fakeMail
	Images *fakeImages
	Pub    *fakePub
	Tokens security.TokenService
	App    *api.App
	Router *gin.Engine
}

type option func(*api.App)

func newTestEnv(t *testing.T, opts ...option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		T:      t,
		Store:  newMemStore(),
		Mail:   &fakeMail{},
		Images: newFakeImages(),
		Pub:    &fakePub{},
		Tokens: security.NewHMACTokens("test-secret", time.Hour),
	}
	env.App = &api.App{
		Config:   config.Config{RefreshTTLDays: 14},
		Store:    env.Store,
		Sessions: env.Store,
		Tokens:   env.Tokens,
		Mail:     env.Mail,
		Images:   env.Images,
		Events:   env.Pub,
		Log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(env.App)
	}
	env.Router = api.NewRouter(api.NewHandler(env.App))
	return env
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.T, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// doRaw sends a bodyless request with an explicit Authorization value and extra header pairs.
func (e *testEnv) doRaw(method, path, authorization string, kv ...string) *httptest.ResponseRecorder {
	e.T.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// seedPrincipal stores a principal directly and returns it with a valid token.
func (e *testEnv) seedPrincipal(email string, role domain.Role) (*domain.Principal, string) {
	e.T.Helper()
	hash, err := security.HashPassword(adminPassword)
	require.NoError(e.T, err)
	p := &domain.Principal{Email: email, PasswordHash: hash, Role: role, Name: "Owner"}
	require.NoError(e.T, e.Store.CreatePrincipal(context.Background(), p))
	tok, err := e.Tokens.Issue(p.ID.Hex(), string(role))
	require.NoError(e.T, err)
	return p, tok
}

type userResp struct {
	User *domain.Principal `json:"user"`
	ID   string            `json:"id"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
}
