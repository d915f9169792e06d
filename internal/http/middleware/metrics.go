package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"github.com/yungbote/lessonforge-backend/internal/observability"
)

const metricsSubsystem = "lf_http"

var (
	promOnce sync.Once
	prom     *ginprometheus.Prometheus
)

// Metrics records request counts, latency and sizes through go-gin-prometheus.
// The collectors register once on the default registry, which observability.Metrics.Handler also serves.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	promOnce.Do(func() {
		prom = ginprometheus.NewPrometheus(metricsSubsystem)
		// Label by route template so /api/images/search?query=... stays one series.
		prom.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if p := c.FullPath(); p != "" {
				return p
			}
			return "unknown"
		}
	})
	return prom.HandlerFunc()
}
