package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthy(context.Context) error { return nil }

func newHealthRouter(h *HealthHandler) *chi.Mux {
	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestHealth_Liveness(t *testing.T) {
	router := newHealthRouter(NewHealthHandler(nil, "test"))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil))

	assert.Equal(t, stdhttp.StatusOK, recorder.Code)
}

func TestHealth_ReadinessAllHealthy(t *testing.T) {
	handler := NewHealthHandler(HealthCheckFunc(healthy), "test").
		WithDependency("change_feed", HealthCheckFunc(healthy))
	router := newHealthRouter(handler)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	response := decode[HealthResponse](t, recorder)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "healthy", response.Checks["database"].Status)
	assert.Equal(t, "healthy", response.Checks["change_feed"].Status)
}

func TestHealth_ReadinessFeedDown(t *testing.T) {
	handler := NewHealthHandler(HealthCheckFunc(healthy), "test").
		WithDependency("change_feed", HealthCheckFunc(func(context.Context) error {
			return errors.New("redis: connection refused")
		}))
	router := newHealthRouter(handler)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

	require.Equal(t, stdhttp.StatusServiceUnavailable, recorder.Code)
	response := decode[HealthResponse](t, recorder)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "redis: connection refused", response.Checks["change_feed"].Message)
}

func TestHealth_DetailedDegradedWithoutDatabase(t *testing.T) {
	router := newHealthRouter(NewHealthHandler(nil, "test"))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))

	require.Equal(t, stdhttp.StatusServiceUnavailable, recorder.Code)
	response := decode[HealthResponse](t, recorder)
	assert.Equal(t, "degraded", response.Status)
	assert.Equal(t, "Database not configured", response.Checks["database"].Message)
}
