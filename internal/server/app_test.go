package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophstat/internal/server/auth"
	"github.com/dmitrijs2005/gophstat/internal/server/config"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstat/internal/server/services"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	orig := logOutput
	logOutput = io.Discard
	t.Cleanup(func() { logOutput = orig })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDSN = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.BcryptCost = bcrypt.MinCost

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func login(t *testing.T, h http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func accessToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := login(t, h, "johndoe", "secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp services.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func me(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["detail"]
}

func TestApp_LoginAndProfile(t *testing.T) {
	h := newTestApp(t).Handler()
	token := accessToken(t, h)

	rec := me(h, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"johndoe","email":"johndoe@example.com","full_name":"John Doe"}`, rec.Body.String())
}

func TestApp_WrongPassword(t *testing.T) {
	h := newTestApp(t).Handler()

	for _, creds := range [][2]string{{"johndoe", "wrong"}, {"nobody", "secret"}} {
		rec := login(t, h, creds[0], creds[1])
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Incorrect username or password", detail(t, rec))
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
}

func TestApp_BadTokens(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	rec := me(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", detail(t, rec))

	rec = me(h, "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))

	codec, err := auth.NewJWTCodec([]byte(app.config.SecretKey), app.config.Algorithm)
	require.NoError(t, err)

	expired, err := codec.Encode(auth.Claims{Subject: "johndoe"}, -time.Minute)
	require.NoError(t, err)
	rec = me(h, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))

	ghost, err := codec.Encode(auth.Claims{Subject: "ghost"}, time.Minute)
	require.NoError(t, err)
	rec = me(h, "Bearer "+ghost)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not find user", detail(t, rec))

	other, err := auth.NewJWTCodec([]byte("another-key"), "HS256")
	require.NoError(t, err)
	forged, err := other.Encode(auth.Claims{Subject: "johndoe"}, time.Minute)
	require.NoError(t, err)
	rec = me(h, "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", detail(t, rec))
}

func TestApp_DisabledAfterIssue(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()
	token := accessToken(t, h)

	rm, err := repomanager.NewRepositoryManager("sqlite")
	require.NoError(t, err)
	accounts := services.NewAccountService(app.db, rm, auth.NewPasswords(bcrypt.MinCost))
	require.NoError(t, accounts.SetDisabled(context.Background(), "johndoe", true))

	rec := me(h, "Bearer "+token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", detail(t, rec))

	require.NoError(t, accounts.SetDisabled(context.Background(), "johndoe", false))
	rec = me(h, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApp_ProvisionedUserCanLogIn(t *testing.T) {
	app := newTestApp(t)
	h := app.Handler()

	rm, err := repomanager.NewRepositoryManager("sqlite")
	require.NoError(t, err)
	accounts := services.NewAccountService(app.db, rm, auth.NewPasswords(bcrypt.MinCost))
	_, err = accounts.Create(context.Background(), "alice", "alice@example.com", "Alice Chains", "wonderland")
	require.NoError(t, err)

	rec := login(t, h, "alice", "wonderland")
	require.Equal(t, http.StatusOK, rec.Code)
}

func upload(t *testing.T, h http.Handler, token, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("upload_file", "data.csv")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, content)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/statistics", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp_Statistics(t *testing.T) {
	h := newTestApp(t).Handler()
	token := accessToken(t, h)

	rec := upload(t, h, token, "age,income\n1,10\n2,20\n3,30\n4,40\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `{"age":{"sum":10,"variance":1.25},"income":{"sum":100,"variance":125}}`, rec.Body.String())

	rec = upload(t, h, token, "age,income\n1,10\n2,abc\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, detail(t, rec), "non-numeric value")
}

func TestApp_Health(t *testing.T) {
	h := newTestApp(t).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Algorithm = "RS256"

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	app.config.EndpointAddrHTTP = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
