package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/internal/config"
	"github.com/ovaphlow/pitchfork/service-forum-go-stdlib/pkg/database"
)

type testServer struct {
	handler http.Handler
	clock   *clockwork.FakeClock
	logs    *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Connect(database.Config{URL: "sqlite://" + filepath.Join(t.TempDir(), "community.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Settings{
		ProjectName:    "Community",
		SecretKey:      []byte(strings.Repeat("k", 32)),
		AccessTokenTTL: 30 * time.Minute,
		BcryptCost:     bcrypt.MinCost,
		CORSOrigins:    []string{"http://localhost:3000"},
	}
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()

	svcs, err := NewServices(cfg, db, clock, logger, reg)
	require.NoError(t, err)
	require.NoError(t, svcs.EnsureSchema(context.Background()))

	return &testServer{handler: RegisterRoutes(cfg, logger, reg, svcs), clock: clock, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRouter_Root(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to the Community API"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 27)

	rec = s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Scenario(t *testing.T) {
	s := newTestServer(t)

	regToken := accessToken(t, s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","username":"alice","password":"pw1"}`, ""))
	loginToken := accessToken(t, s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"pw1"}`, ""))

	rec := s.do(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","username":"other","password":"pw1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Email already registered"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/auth/me", "", regToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = s.do(t, http.MethodPost, "/forum/posts", `{"title":"hi","content":"first post"}`, loginToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"reply_count":0`)

	rec = s.do(t, http.MethodPost, "/forum/replies", `{"content":"welcome","post_id":1}`, loginToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/forum/posts?skip=0&limit=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reply_count":1`)

	s.clock.Advance(30 * time.Minute)
	rec = s.do(t, http.MethodPost, "/forum/posts", `{"title":"late","content":"too late"}`, loginToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/auth/me", "", "")

	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `forum_auth_gate_total{outcome="missing_token"} 1`)
}

func TestRouter_CORS(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	r = httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequestIDIsLogged(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set(RequestIDHeader, "upstream-id")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))

	entries := s.logs.FilterMessage("http request").All()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1].ContextMap()
	assert.Equal(t, "upstream-id", last["request_id"])
	assert.Equal(t, "/health", last["path"])
	assert.EqualValues(t, http.StatusOK, last["status"])
}
