package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"pong": true}) })
}

func newTestRouter(t *testing.T, cfg RouterConfig) (*Router, *promhandler.Handler) {
	t.Helper()
	metrics := promhandler.New("test")
	r := NewRouter(cfg, metrics, pingHandler{})
	r.Setup()
	return r, metrics
}

func serve(r *Router, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestRouter_MiddlewareChain(t *testing.T) {
	r, metrics := newTestRouter(t, RouterConfig{
		Mode:       gin.TestMode,
		Timeout:    time.Second,
		CORSConfig: middleware.DefaultCORSConfig([]string{"http://localhost:3000"}),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000/")
	w := serve(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "1.0", w.Header().Get("X-API-Version"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "http://localhost:3000/", w.Header().Get("Access-Control-Allow-Origin"))

	mw := httptest.NewRecorder()
	metrics.HTTPHandler().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mw.Body.String(), `path="/api/v1/ping"`)
}

func TestRouter_NotFoundUsesEnvelope(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{Mode: gin.TestMode})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Not found"}`, w.Body.String())
}

func TestRouter_GlobalRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, RouterConfig{
		Mode:      gin.TestMode,
		RateLimit: 0.001,
		RateBurst: 1,
	})

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)).Code)
}
