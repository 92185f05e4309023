package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/observability"
	"github.com/procureflow/procureflow/internal/procurement"
	"github.com/procureflow/procureflow/internal/shared"
	_ "github.com/procureflow/procureflow/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 20, cfg.SnapshotRetention)
	assert.Equal(t, "procurement@procureflow.local", cfg.MailFrom)
	assert.False(t, cfg.PersistenceEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("SNAPSHOT_RETENTION", "0")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SNAPSHOT_RETENTION", "5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestInTestModeFromGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func testRouter(t *testing.T, ready func(*http.Request) error) http.Handler {
	t.Helper()
	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 1000}
	svc := procurement.NewService(procurement.NewStore(), nil)
	return NewRouter(RouterParams{
		Config:             cfg,
		ProcurementHandler: procurement.NewHandler(nil, svc, nil),
		Metrics:            observability.NewMetrics(),
		Ready:              ready,
	})
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := testRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}

func TestRouterReadiness(t *testing.T) {
	router := testRouter(t, func(*http.Request) error { return errors.New("postgres: connection refused") })
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestRouterMountsProcurementAndMetrics(t *testing.T) {
	router := testRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/procurement/mrfs", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.HeaderUserID, "u-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/procurement/routing?amount=25000", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var routing procurement.Routing
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &routing))
	assert.True(t, routing.DualApproval)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "procureflow_http_requests_total")
}

func TestTestModeParsing(t *testing.T) {
	t.Cleanup(RefreshTestMode)

	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "nope")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestConfigConnectionOptions(t *testing.T) {
	cfg := &Config{RedisAddr: "redis:6379", RedisPassword: "pw", RedisDB: 3, PGMaxConns: 4}
	assert.Equal(t, "pw", cfg.Redis().Asynq().Password)
	assert.Equal(t, 3, cfg.Redis().DB)
	assert.EqualValues(t, 4, cfg.Postgres().MaxConns)
}
