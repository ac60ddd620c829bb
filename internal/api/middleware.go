package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/observability"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// LoggingMiddleware logs each request with slog and observes its duration in
// attendance_http_request_duration_seconds. The path label is the route
// template (/v1/users/:id), not the raw path, so per-user and per-log URLs
// share one series. 5xx responses log at error level and 4xx at warn.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := routeLabel(c)

		slog.Log(c.Request.Context(), requestLevel(status), "request",
			"method", c.Request.Method,
			"path", path,
			"route", route,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		)

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func requestLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
