package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpH "github.com/yungbote/lessonforge-backend/internal/http/handlers"
	"github.com/yungbote/lessonforge-backend/internal/modules/doubt"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics(prometheus.NewRegistry())
	m.IncFallback("outline")

	r := NewRouter(RouterConfig{
		Log:           logger.NewNop(),
		Metrics:       m,
		HealthHandler: httpH.NewHealthHandler("test"),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `lf_fallbacks_total{stage="outline"} 1`) {
		t.Fatalf("pipeline metrics missing from /metrics")
	}
	if !strings.Contains(string(body), "lf_http_requests_total") {
		t.Fatalf("http metrics missing from /metrics")
	}
}

func TestRouterMountsConfiguredHandlersOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := &llm.FuncClient{}
	r := NewRouter(RouterConfig{
		Log:          logger.NewNop(),
		DoubtHandler: httpH.NewDoubtHandler(logger.NewNop(), doubt.New(logger.NewNop(), client)),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/generate-deck", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/solve-doubt/text", strings.NewReader(`{"question":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/solve-doubt/voice", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "voice route mounted with the doubt handler")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/parse-index", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, client.Calls())
}
