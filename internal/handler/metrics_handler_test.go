package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-report-api/internal/service"
)

type pingStub struct{ err error }

func (p pingStub) PingContext(context.Context) error { return p.err }

type breakerStub struct{ state gobreaker.State }

func (b breakerStub) State() gobreaker.State { return b.state }

func newMetricsRouter(h *MetricsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	return r
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), pingStub{}, breakerStub{state: gobreaker.StateOpen})
	w := performRequest(newMetricsRouter(h), "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","cache":"open"}`, w.Body.String())
}

func TestMetricsHandlerNotReadyWithoutDatabase(t *testing.T) {
	h := NewMetricsHandler(nil, pingStub{err: errors.New("connection refused")}, nil)
	w := performRequest(newMetricsRouter(h), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"connection refused"}`, w.Body.String())
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/api/report/list", http.StatusOK, 0)
	r := newMetricsRouter(NewMetricsHandler(metrics, nil, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = performRequest(newMetricsRouter(NewMetricsHandler(nil, nil, nil)), "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
