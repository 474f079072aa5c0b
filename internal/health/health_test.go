package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/oracle-arbitrage-bot/internal/logger"
)

func newTestServer() *Server {
	return NewServer(0, "test", logger.New(io.Discard, logger.LevelError, "test", nil))
}

func TestHealth_AllHealthy(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("binance", func(context.Context) (bool, string) { return true, "ok" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.Version)
	assert.True(t, status.Checks["binance"].Healthy)
}

func TestHealth_DegradedWhenAnyCheckFails(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("binance", func(context.Context) (bool, string) { return true, "" })
	s.RegisterCheck("pyth", func(context.Context) (bool, string) { return false, "no data yet" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "no data yet", status.Checks["pyth"].Message)
}

func TestReady_NamesFirstFailingCheck(t *testing.T) {
	s := newTestServer()
	s.RegisterCheck("pyth", func(context.Context) (bool, string) { return false, "" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready: pyth", rec.Body.String())
}

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}

func TestFreshnessCheck(t *testing.T) {
	tests := []struct {
		name    string
		age     AgeFunc
		healthy bool
	}{
		{name: "empty", age: func() (time.Duration, bool) { return 0, false }, healthy: false},
		{name: "fresh", age: func() (time.Duration, bool) { return time.Second, true }, healthy: true},
		{name: "stale", age: func() (time.Duration, bool) { return 10 * time.Second, true }, healthy: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healthy, msg := FreshnessCheck(tt.age, 5*time.Second)(context.Background())
			assert.Equal(t, tt.healthy, healthy)
			assert.NotEmpty(t, msg)
		})
	}
}
