package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// quietPaths are polled by load balancers and uptime checks
var quietPaths = map[string]bool{
	"/api/v1/health": true,
	"/swagger/*any":  true,
}

// RequestLogger writes one structured line per request once it completes
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		route := c.FullPath()
		if quietPaths[route] {
			return
		}
		if raw != "" {
			path = path + "?" + raw
		}

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
			slog.String("user_agent", c.Request.UserAgent()),
		}

		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			attrs = append(attrs, slog.String("error", msg))
		}
		if userID := GetUserID(c); userID != 0 {
			attrs = append(attrs, slog.Uint64("user_id", uint64(userID)))
		}
		// Old clients are expected to move to bearer tokens
		if scheme, ok := c.Get("credentialScheme"); ok && scheme == SchemeLegacy {
			attrs = append(attrs, slog.String("auth", SchemeLegacy))
		}
		if key := c.GetHeader(IdempotencyHeader); key != "" {
			attrs = append(attrs, slog.String("idempotency_key", key))
		}

		switch {
		case status >= 500:
			logger.Log.Error("Request failed", attrs...)
		case status >= 400:
			logger.Log.Warn("Request rejected", attrs...)
		default:
			logger.Log.Info("Request completed", attrs...)
		}
	}
}
