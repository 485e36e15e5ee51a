package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-nafath-server/internal/config"
	"github.com/jrsteele09/go-nafath-server/nafath"
	"github.com/jrsteele09/go-nafath-server/nafath/fakeprovider"
	"github.com/jrsteele09/go-nafath-server/server"
	"github.com/jrsteele09/go-nafath-server/verification"
	"github.com/jrsteele09/go-nafath-server/verification/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testAppBaseURL = "https://jobs.example.edu.sa"
	testOrigin     = "https://jobs.example.edu.sa"
)

var testNow = time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)

// testFixture holds all test dependencies
type testFixture struct {
	repo     *repofake.FakeSessionRepo
	provider *fakeprovider.Provider
	manager  *verification.Manager
	server   *server.Server
	now      time.Time
}

func setupTestFixture(t *testing.T, options ...server.ServerOption) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("APP_BASE_URL", testAppBaseURL)
	t.Setenv("APP_RETURN_PATH", "/apply")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	f := &testFixture{
		repo:     repofake.NewFakeSessionRepo(),
		provider: fakeprovider.New(t),
		now:      testNow,
	}

	manager, err := verification.NewManager(
		verification.Config{Provider: f.provider.Config("http://localhost:8080" + server.RouteNafathCallback)},
		f.repo,
		verification.WithNowTime(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	f.manager = manager
	f.server = server.New(config.New(), manager, options...)
	return f
}

func (f *testFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// initiate starts a flow over HTTP and returns the session token and state
func (f *testFixture) initiate(t *testing.T) (string, string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, server.RouteNafathInitiate, `{"gender":"male"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AuthURL      string `json:"authUrl"`
		SessionToken string `json:"sessionToken"`
		Message      string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionToken)
	require.NotEmpty(t, resp.Message)

	authURL, err := url.Parse(resp.AuthURL)
	require.NoError(t, err)
	return resp.SessionToken, authURL.Query().Get("state")
}

// callback hits the callback endpoint and returns the parsed redirect location
func (f *testFixture) callback(t *testing.T, query url.Values) *url.URL {
	t.Helper()

	rec := f.do(t, http.MethodGet, server.RouteNafathCallback+"?"+query.Encode(), "")
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "jobs.example.edu.sa", location.Host)
	require.Equal(t, "/apply", location.Path)
	return location
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error, resp.Message
}

func TestStatusHandler(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(t, http.MethodGet, server.RouteNafathStatus, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"configured":true,"message":"Nafath verification is available"}`, rec.Body.String())
}

func TestInitiateHandler(t *testing.T) {
	f := setupTestFixture(t)

	token, state := f.initiate(t)
	require.NotEmpty(t, state)

	session, err := f.repo.GetUnverifiedByState(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, token, session.SessionToken)
}

func TestInitiateHandler_BadRequests(t *testing.T) {
	for name, body := range map[string]string{
		"unknown gender": `{"gender":"other"}`,
		"missing gender": `{}`,
		"empty body":     ``,
		"malformed json": `{"gender":`,
	} {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t)

			rec := f.do(t, http.MethodPost, server.RouteNafathInitiate, body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			code, _ := decodeError(t, rec)
			require.Equal(t, "invalid_request", code)
			require.Equal(t, 0, f.repo.Len())
		})
	}
}

func TestHandlers_NotConfigured(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("APP_BASE_URL", testAppBaseURL)
	repo := repofake.NewFakeSessionRepo()
	manager, err := verification.NewManager(verification.Config{Provider: nafath.Config{}}, repo)
	require.NoError(t, err)
	srv := server.New(config.New(), manager)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteNafathStatus, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"configured":false`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, server.RouteNafathInitiate, strings.NewReader(`{"gender":"male"}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	code, message := decodeError(t, rec)
	require.Equal(t, "not_configured", code)
	require.Contains(t, message, "manual entry")
	require.Equal(t, 0, repo.Len())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteNafathCallback+"?code=a&state=b", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "nafath_error=not_configured")
}

func TestCallbackHandler_Success(t *testing.T) {
	f := setupTestFixture(t)
	token, state := f.initiate(t)

	location := f.callback(t, url.Values{"code": {"auth-code"}, "state": {state}})
	require.Equal(t, token, location.Query().Get("nafath_session"))
	require.Equal(t, "true", location.Query().Get("nafath_success"))
	require.Empty(t, location.Query().Get("nafath_error"))

	rec := f.do(t, http.MethodGet, "/api/nafath/session/"+token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp struct {
		Data    verification.IdentityView `json:"data"`
		Message string                    `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, verification.IdentityView{
		FullName:      "محمد عبدالله السالم",
		NationalID:    "1012345678",
		BirthDate:     "2000-06-15",
		Age:           24,
		Verified:      true,
		TransactionID: token,
	}, resp.Data)
	require.NotEmpty(t, resp.Message)

	// The state cannot be replayed
	location = f.callback(t, url.Values{"code": {"another-code"}, "state": {state}})
	require.Equal(t, "invalid_session", location.Query().Get("nafath_error"))
}

func TestCallbackHandler_Errors(t *testing.T) {
	t.Run("provider denied", func(t *testing.T) {
		f := setupTestFixture(t)
		_, state := f.initiate(t)

		location := f.callback(t, url.Values{"error": {"access_denied"}, "state": {state}})
		require.Equal(t, "provider_denied", location.Query().Get("nafath_error"))
		require.Equal(t, 0, f.repo.Len())
	})

	t.Run("missing parameters", func(t *testing.T) {
		f := setupTestFixture(t)
		_, state := f.initiate(t)

		location := f.callback(t, url.Values{"state": {state}})
		require.Equal(t, "missing_parameters", location.Query().Get("nafath_error"))
		require.Equal(t, 1, f.repo.Len())
	})

	t.Run("unknown state", func(t *testing.T) {
		f := setupTestFixture(t)
		f.initiate(t)

		location := f.callback(t, url.Values{"code": {"c"}, "state": {"forged"}})
		require.Equal(t, "invalid_session", location.Query().Get("nafath_error"))
		require.Equal(t, 1, f.repo.Len())
	})

	t.Run("expired session", func(t *testing.T) {
		f := setupTestFixture(t)
		_, state := f.initiate(t)
		f.now = testNow.Add(45 * time.Minute)

		location := f.callback(t, url.Values{"code": {"c"}, "state": {state}})
		require.Equal(t, "session_expired", location.Query().Get("nafath_error"))
		require.Equal(t, 0, f.repo.Len())
	})

	t.Run("verification failed hides provider detail", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.FailToken(http.StatusInternalServerError, `{"error":"db_password=hunter2"}`)
		token, state := f.initiate(t)

		rec := f.do(t, http.MethodGet, server.RouteNafathCallback+"?code=c&state="+url.QueryEscape(state), "")
		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "nafath_error=verification_failed")
		require.NotContains(t, rec.Header().Get("Location"), "hunter2")
		require.NotContains(t, rec.Body.String(), "hunter2")

		rec = f.do(t, http.MethodGet, "/api/nafath/session/"+token, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionHandler_NotFound(t *testing.T) {
	f := setupTestFixture(t)
	token, _ := f.initiate(t)

	for _, target := range []string{"/api/nafath/session/unknown", "/api/nafath/session/" + token} {
		rec := f.do(t, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
		code, message := decodeError(t, rec)
		require.Equal(t, "session_not_found", code)
		require.NotEmpty(t, message)
	}
}

func TestConsumeHandler(t *testing.T) {
	f := setupTestFixture(t)
	token, state := f.initiate(t)
	f.callback(t, url.Values{"code": {"c"}, "state": {state}})

	rec := f.do(t, http.MethodPost, "/api/nafath/session/"+token+"/consume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), token)

	rec = f.do(t, http.MethodPost, "/api/nafath/session/"+token+"/consume", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/nafath/session/"+token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSessionHandler(t *testing.T) {
	f := setupTestFixture(t)
	token, state := f.initiate(t)
	f.callback(t, url.Values{"code": {"c"}, "state": {state}})

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodDelete, "/api/nafath/session/"+token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"message":"Verification session deleted"}`, rec.Body.String())
	}
	require.Equal(t, 0, f.repo.Len())

	rec := f.do(t, http.MethodGet, "/api/nafath/session/"+token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.do(t, http.MethodGet, server.RouteHealth, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f = setupTestFixture(t, server.WithHealthCheck(func(context.Context) error {
		return errors.New("database is down")
	}))
	rec = f.do(t, http.MethodGet, server.RouteHealth, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "database")
}

func TestMetricsHandler(t *testing.T) {
	f := setupTestFixture(t)
	_, state := f.initiate(t)
	f.callback(t, url.Values{"code": {"c"}, "state": {state}})

	rec := f.do(t, http.MethodGet, server.RouteMetrics, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nafath_initiations_total")
	require.Contains(t, rec.Body.String(), "nafath_callbacks_total")
	require.Contains(t, rec.Body.String(), "nafath_provider_requests_total")
}

func TestCORS(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, server.RouteNafathInitiate, nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, server.RouteNafathStatus, nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
