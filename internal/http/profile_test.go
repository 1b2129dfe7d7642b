package http_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leul120/portfolio/internal/domain"
	api "github.com/Leul120/portfolio/internal/http"
	"github.com/Leul120/portfolio/internal/media"
	"github.com/Leul120/portfolio/internal/security"
)

func TestGetAll_ShowcaseSelection(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/get-all", nil, "")
	requireStatus(t, w, http.StatusOK)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	env.seedPrincipal("user@example.com", domain.RoleUser)
	first, _ := env.seedPrincipal("first@example.com", domain.RoleAdmin)
	env.seedPrincipal("second@example.com", domain.RoleAdmin)

	out := decode[userResp](t, env.do("GET", "/get-all", nil, ""))
	require.NotNil(t, out.User)
	assert.Equal(t, first.ID, out.User.ID)

	env.App.Config.ShowcaseEmail = "second@example.com"
	out = decode[userResp](t, env.do("GET", "/get-all", nil, ""))
	assert.Equal(t, "second@example.com", out.User.Email)
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	p, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := env.do("GET", "/get-user", nil, tok)
	requireStatus(t, w, http.StatusOK)
	assert.NotContains(t, w.Body.String(), "password")
	out := decode[userResp](t, w)
	assert.Equal(t, p.ID, out.User.ID)
	assert.Equal(t, []domain.Award{}, out.User.Awards)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	p, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)
	env.seedPrincipal("taken@example.com", domain.RoleUser)
	before, _ := env.Store.FindPrincipalByID(context.Background(), p.ID)

	w := env.do("PUT", "/update-user", map[string]any{
		"title":   "Staff Engineer",
		"contact": map[string]string{"city": "Addis Ababa", "country": "ET"},
	}, tok)
	requireStatus(t, w, http.StatusOK)
	out := decode[userResp](t, w)
	assert.Equal(t, "Staff Engineer", out.User.Title)
	assert.Equal(t, "Owner", out.User.Name)
	assert.Equal(t, "Addis Ababa", out.User.Contact.City)

	after, _ := env.Store.FindPrincipalByID(context.Background(), p.ID)
	assert.Equal(t, before.PasswordHash, after.PasswordHash, "hash untouched without a new password")

	requireStatus(t, env.do("PUT", "/update-user", map[string]any{"password": "fresh-pass"}, tok), http.StatusOK)
	after, _ = env.Store.FindPrincipalByID(context.Background(), p.ID)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
	assert.True(t, security.CheckPassword(after.PasswordHash, "fresh-pass"))

	assert.Equal(t, http.StatusBadRequest, env.do("PUT", "/update-user", `{}`, tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("PUT", "/update-user", map[string]any{"password": ""}, tok).Code)
	assert.Equal(t, http.StatusConflict, env.do("PUT", "/update-user", map[string]any{"email": "TAKEN@example.com"}, tok).Code)
}

func TestUpdateUser_PasswordChangeEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	p, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)
	ctx := context.Background()
	require.NoError(t, env.Store.SaveRefresh(ctx, p.ID, "keep-me", time.Hour))
	require.NoError(t, env.Store.SaveRefresh(ctx, p.ID, "drop-me", time.Hour))

	requireStatus(t, env.do("PUT", "/update-user", map[string]any{"title": "Staff"}, tok), http.StatusOK)
	rt, err := env.Store.ConsumeRefresh(ctx, "keep-me")
	require.NoError(t, err)
	assert.NotNil(t, rt, "profile edits keep sessions")

	requireStatus(t, env.do("PUT", "/update-user", map[string]any{"password": "fresh-pass"}, tok), http.StatusOK)
	rt, err = env.Store.ConsumeRefresh(ctx, "drop-me")
	require.NoError(t, err)
	assert.Nil(t, rt)
}

func TestUpdateUser_ConcurrentDisjointFields(t *testing.T) {
	env := newTestEnv(t)
	p, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	bodies := []map[string]any{{"name": "Ada"}, {"summary": "Builds engines"}}
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = env.do("PUT", "/update-user", bodies[i], tok).Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	// Field-level $set: disjoint writes both land.
	got, _ := env.Store.FindPrincipalByID(context.Background(), p.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "Builds engines", got.Summary)
}

func TestPostUser(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := env.do("POST", "/post-user", map[string]any{
		"email": "new@example.com", "password": "pw", "name": "New", "title": "Designer",
	}, tok)
	requireStatus(t, w, http.StatusOK)
	out := decode[userResp](t, w)
	assert.Equal(t, domain.RoleUser, out.User.Role)
	assert.Equal(t, "Designer", out.User.Title)

	assert.Equal(t, http.StatusConflict, env.do("POST", "/post-user", map[string]any{"email": "new@example.com", "password": "pw"}, tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/post-user", map[string]any{"email": "x@example.com", "password": "pw", "role": "root"}, tok).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/post-user", map[string]any{"email": "x@example.com"}, tok).Code)
}

func uploadPicture(env *testEnv, tok, ctype string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
	h.Set("Content-Type", ctype)
	part, _ := mw.CreatePart(h)
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest("PUT", "/update-profile-picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

func TestUpdateProfilePicture(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := uploadPicture(env, tok, "image/png", []byte("png-1"))
	requireStatus(t, w, http.StatusOK)
	first := decode[userResp](t, w).User.ProfilePicture
	require.NotNil(t, first)
	assert.Contains(t, first.URL, "?fresh")

	w = uploadPicture(env, tok, "image/png", []byte("png-2"))
	requireStatus(t, w, http.StatusOK)
	second := decode[userResp](t, w).User.ProfilePicture
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{first.ID}, env.Images.removed)

	assert.Equal(t, http.StatusBadRequest, uploadPicture(env, tok, "application/pdf", []byte("%PDF")).Code)
	assert.Equal(t, http.StatusBadRequest, env.do("PUT", "/update-profile-picture", nil, tok).Code)
}

func TestUpdateProfilePicture_Unconfigured(t *testing.T) {
	env := newTestEnv(t, func(a *api.App) { a.Images = media.Unavailable{} })
	_, tok := env.seedPrincipal("owner@example.com", domain.RoleAdmin)

	w := uploadPicture(env, tok, "image/png", []byte("png"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestContactUs(t *testing.T) {
	env := newTestEnv(t)
	msg := map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com",
		"phoneNumber": "+44", "description": "Hello",
	}

	requireStatus(t, env.do("POST", "/contact-us", msg, ""), http.StatusOK)
	require.Len(t, env.Mail.contacts, 1)
	assert.Equal(t, "Lovelace", env.Mail.contacts[0].LastName)

	partial := map[string]string{"firstName": "Ada", "email": "ada@example.com"}
	assert.Equal(t, http.StatusBadRequest, env.do("POST", "/contact-us", partial, "").Code)

	env.Mail.err = errors.New("relay down")
	w := env.do("POST", "/contact-us", msg, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"email not sent"}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	requireStatus(t, env.do("GET", "/healthz", nil, ""), http.StatusOK)

	env.Store.pingErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, env.do("GET", "/healthz", nil, "").Code)
}
