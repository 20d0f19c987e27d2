package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records request latency.
type RequestObserver interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Metrics records every request against its route template, so
// /api/v1/domains/:domain_id is one series regardless of the ID.
func Metrics(obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
