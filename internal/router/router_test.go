package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wastepoints/internal/auth"
	"wastepoints/internal/cache"
	"wastepoints/internal/config"
	apperrors "wastepoints/internal/errors"
	"wastepoints/internal/handler"
	"wastepoints/internal/metrics"
	"wastepoints/internal/repository"
	"wastepoints/internal/service"
)

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	jwtService := auth.NewJWTService("test-secret", time.Hour, time.Hour)
	tokens := auth.NewTokenStore(cache.New("", "", 0))
	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	ledger := service.NewLedgerService(repo, nil, service.WithMetrics(m))
	authService := service.NewAuthService(repo, jwtService, tokens, nil)

	e := echo.New()
	cfg := &config.Config{CORSOrigin: "http://localhost:5173"}
	Register(e, cfg, Dependencies{
		Logger:   zap.NewNop(),
		Resolver: auth.NewResolver(jwtService, tokens, repo, time.Second),
		Metrics:  m,
		Registry: registry,
	}, Handlers{
		Auth:    handler.NewAuthHandler(authService, nil),
		Users:   handler.NewUserHandler(ledger, nil),
		Rewards: handler.NewRewardHandler(ledger),
		Health:  handler.NewHealthHandler(repo, config.StoreMemory),
	})
	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email string) handler.AuthResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", `{"email":"`+email+`","password":"secret123","name":"Recycler"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_LedgerFlow(t *testing.T) {
	s := newTestServer(t)
	session := s.signup(t, "flow@example.com")
	uid := session.User.UID
	token := session.AccessToken
	assert.Equal(t, int64(0), session.User.Points)

	rec := s.do(t, http.MethodPost, "/api/users/"+uid+"/award", token, `{"amount":100,"reason":"device-serial","serial":"RZ8N81ABCDE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.Balance{UID: uid, Points: 100}, decode[service.Balance](t, rec))

	rec = s.do(t, http.MethodPost, "/api/users/"+uid+"/redeem", token, `{"cost":150,"name":"Galaxy Buds FE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INSUFFICIENT_BALANCE", decode[apperrors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/users/"+uid+"/redeem", token, `{"cost":"60","name":"Sticker"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(40), decode[service.Balance](t, rec).Points)

	rec = s.do(t, http.MethodGet, "/api/users/"+uid, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[service.AccountSummary](t, rec)
	assert.Equal(t, int64(40), summary.Points)
	assert.Equal(t, "flow@example.com", summary.Email)

	rec = s.do(t, http.MethodGet, "/api/users/"+uid+"/logs", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Logs []map[string]interface{} `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Logs, 2)
	assert.Equal(t, "award", history.Logs[0]["type"])
	assert.Equal(t, "RZ8N81ABCDE", history.Logs[0]["serial"])
	assert.Equal(t, "redeem", history.Logs[1]["type"])
	assert.Equal(t, "Sticker", history.Logs[1]["name"])
}

func TestRouter_AwardSelfAndReplay(t *testing.T) {
	s := newTestServer(t)
	session := s.signup(t, "self@example.com")

	rec := s.do(t, http.MethodPost, "/api/users/award", session.AccessToken, `{"amount":25,"serial":"SN1234567890"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(25), decode[service.Balance](t, rec).Points)

	rec = s.do(t, http.MethodPost, "/api/users/award", session.AccessToken, `{"amount":25,"serial":"SN1234567890"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SERIAL_ALREADY_CLAIMED", decode[apperrors.ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodPost, "/api/users/award", session.AccessToken, `{"amount":5,"serial":" RZ8N81ABCDE "}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(30), decode[service.Balance](t, rec).Points)

	rec = s.do(t, http.MethodPost, "/api/users/award", session.AccessToken, `{"amount":5,"serial":"RZ8N81ABCDE"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "padded serial was stored trimmed")

	rec = s.do(t, http.MethodPost, "/api/users/award", session.AccessToken, `{"amount":25,"serial":"bad serial"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[apperrors.ErrorResponse](t, rec).Code)
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice@example.com")
	bob := s.signup(t, "bob@example.com")
	aliceURL := "/api/users/" + alice.User.UID

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{name: "no token", method: http.MethodPost, path: aliceURL + "/award", body: `{"amount":1}`, wantStatus: 401, wantCode: "UNAUTHENTICATED", wantReason: apperrors.ReasonNoToken},
		{name: "bad token", method: http.MethodPost, path: aliceURL + "/award", token: "garbage", body: `{"amount":1}`, wantStatus: 401, wantCode: "UNAUTHENTICATED", wantReason: apperrors.ReasonInvalidToken},
		{name: "other user's account", method: http.MethodPost, path: aliceURL + "/award", token: bob.AccessToken, body: `{"amount":1}`, wantStatus: 403, wantCode: "FORBIDDEN"},
		{name: "other user's redeem", method: http.MethodPost, path: aliceURL + "/redeem", token: bob.AccessToken, body: `{"cost":1}`, wantStatus: 403, wantCode: "FORBIDDEN"},
		{name: "other user's logs", method: http.MethodGet, path: aliceURL + "/logs", token: bob.AccessToken, wantStatus: 403, wantCode: "FORBIDDEN"},
		{name: "fractional amount", method: http.MethodPost, path: aliceURL + "/award", token: alice.AccessToken, body: `{"amount":2.5}`, wantStatus: 400, wantCode: "INVALID_AMOUNT"},
		{name: "negative cost", method: http.MethodPost, path: aliceURL + "/redeem", token: alice.AccessToken, body: `{"cost":-3}`, wantStatus: 400, wantCode: "INVALID_AMOUNT"},
		{name: "non-numeric amount", method: http.MethodPost, path: aliceURL + "/award", token: alice.AccessToken, body: `{"amount":"ten"}`, wantStatus: 400, wantCode: "INVALID_AMOUNT"},
		{name: "missing amount", method: http.MethodPost, path: aliceURL + "/award", token: alice.AccessToken, body: `{}`, wantStatus: 400, wantCode: "INVALID_AMOUNT"},
		{name: "malformed body", method: http.MethodPost, path: aliceURL + "/award", token: alice.AccessToken, body: `{"amount":`, wantStatus: 400, wantCode: "INVALID_REQUEST"},
		{name: "unknown user", method: http.MethodGet, path: "/api/users/nobody", wantStatus: 404, wantCode: "NOT_FOUND"},
		{name: "duplicate signup", method: http.MethodPost, path: "/api/auth/signup", body: `{"email":"ALICE@example.com","password":"secret123","name":"A"}`, wantStatus: 409, wantCode: "CONFLICT"},
		{name: "wrong password", method: http.MethodPost, path: "/api/auth/signin", body: `{"email":"alice@example.com","password":"nope"}`, wantStatus: 401, wantCode: "INVALID_CREDENTIALS"},
		{name: "invalid signup", method: http.MethodPost, path: "/api/auth/register", body: `{"email":"x","password":"1","name":""}`, wantStatus: 400, wantCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			body := decode[apperrors.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantReason, body.Reason)
		})
	}

	rec := s.do(t, http.MethodGet, aliceURL, "", "")
	assert.Equal(t, int64(0), decode[service.AccountSummary](t, rec).Points)
}

func TestRouter_ConcurrentRedeem(t *testing.T) {
	s := newTestServer(t)
	session := s.signup(t, "race@example.com")
	uid := session.User.UID

	rec := s.do(t, http.MethodPost, "/api/users/"+uid+"/award", session.AccessToken, `{"amount":100}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(t, http.MethodPost, "/api/users/"+uid+"/redeem", session.AccessToken, `{"cost":80}`).Code
		}(i)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusBadRequest}, codes)
	rec = s.do(t, http.MethodGet, "/api/users/"+uid, "", "")
	assert.Equal(t, int64(20), decode[service.AccountSummary](t, rec).Points)
}

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t)
	session := s.signup(t, "auth@example.com")
	assert.Equal(t, session.AccessToken, session.Token)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"Auth@Example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[handler.AuthResponse](t, rec)
	assert.Equal(t, session.User.UID, login.User.UID)

	rec = s.do(t, http.MethodGet, "/api/auth/me", login.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth@example.com", decode[handler.MeResponse](t, rec).User.Email)

	rec = s.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"`+login.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[handler.AuthResponse](t, rec).AccessToken)

	rec = s.do(t, http.MethodPost, "/api/auth/logout", login.AccessToken, `{"refresh_token":"`+login.RefreshToken+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, handler.HealthResponse{OK: true, Service: "waste-management-server", Store: config.StoreMemory},
		decode[handler.HealthResponse](t, rec))

	rec = s.do(t, http.MethodGet, "/api/rewards", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[handler.RewardsResponse](t, rec).Rewards, 4)

	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))

	req := httptest.NewRequest(http.MethodOptions, "/api/rewards", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	pre := httptest.NewRecorder()
	s.e.ServeHTTP(pre, req)
	assert.Equal(t, "http://localhost:5173", pre.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
