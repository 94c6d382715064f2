package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/memstore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/memstore/internal/lock"
	"github.com/GriffinCanCode/memstore/internal/providers/memory"
	"github.com/GriffinCanCode/memstore/internal/service"
	"github.com/GriffinCanCode/memstore/internal/types"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := filepath.Join(t.TempDir(), "memories")
	require.NoError(t, os.MkdirAll(root, 0o755))

	coord := lock.NewCoordinator(lock.Config{
		ReadTimeout:    500 * time.Millisecond,
		WriteTimeout:   time.Second,
		StaleThreshold: 10 * time.Second,
		RetryInterval:  5 * time.Millisecond,
	})
	metrics := monitoring.NewMetrics()
	registry := service.NewRegistry()
	require.NoError(t, registry.Register(memory.NewProvider(root, coord, nil, metrics)))

	handlers := NewHandlers(registry, logging.NewDefault(), metrics)

	router := gin.New()
	router.GET("/health", handlers.Health)
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)
	router.GET("/metrics", handlers.Metrics())
	return router
}

func doExecute(t *testing.T, router *gin.Engine, toolID string, params map[string]interface{}) *types.Result {
	t.Helper()
	body, err := json.Marshal(types.ExecuteRequest{ToolID: toolID, Params: params})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/services/execute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result types.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return &result
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestListServices(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Services []types.Service `json:"services"`
		Count    int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "memory", resp.Services[0].ID)
	assert.Len(t, resp.Services[0].Tools, 6)
}

func TestExecuteRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	result := doExecute(t, router, "memory.create", map[string]interface{}{
		"path":      "/memories/a.txt",
		"file_text": "Hello",
	})
	require.True(t, result.Success)

	result = doExecute(t, router, "memory.view", map[string]interface{}{
		"path": "/memories/a.txt",
	})
	require.True(t, result.Success)
	assert.Equal(t, "1: Hello", result.Data["message"])
}

func TestExecuteDomainFailureReturns200(t *testing.T) {
	router := newTestRouter(t)

	result := doExecute(t, router, "memory.view", map[string]interface{}{
		"path": "/memories/missing.txt",
	})
	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "not found")
}

func TestExecuteUnknownServiceReturns404(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(types.ExecuteRequest{ToolID: "ghost.view", Params: map[string]interface{}{}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/services/execute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/services/execute", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doExecute(t, router, "memory.create", map[string]interface{}{
		"path": "/memories/a.txt", "file_text": "x",
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstore_operations_total")
}
