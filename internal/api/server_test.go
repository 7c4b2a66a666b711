package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/engine"
	"github.com/archon-quant/synthalpha/internal/risk"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testPipeline() *engine.Pipeline {
	assumptions := risk.Assumptions{
		WinRate: 0.6, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.2, BaseSize: 10, PortfolioValue: 100_000,
	}
	return engine.BuildPipeline(config.Default(), engine.Universe{}, assumptions, prometheus.NewRegistry())
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	s := NewServer(":0", testPipeline())
	rec := doRequest(t, s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestStatusEndpointReportsNoActiveOpportunitiesOnFreshPipeline(t *testing.T) {
	s := NewServer(":0", testPipeline())
	rec := doRequest(t, s, http.MethodGet, "/api/v1/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["active_opportunities"])
	assert.Equal(t, float64(6), body["models"])
}

func TestListOpportunitiesEndpointReturnsEmptySet(t *testing.T) {
	s := NewServer(":0", testPipeline())
	rec := doRequest(t, s, http.MethodGet, "/api/v1/opportunities")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["count"])
}

func TestGetOpportunityEndpointReturnsNotFoundForUnknownID(t *testing.T) {
	s := NewServer(":0", testPipeline())
	rec := doRequest(t, s, http.MethodGet, "/api/v1/opportunities/does-not-exist")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
