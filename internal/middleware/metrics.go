package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/acadrecords/portal-api/internal/service"
)

// Metrics observes every request on the metrics service. The route template
// (e.g. /api/v1/students/:id/sheet) is used as the path label so student and
// course ids never explode the label cardinality; unmatched routes fall back
// to a single "unmatched" bucket.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
