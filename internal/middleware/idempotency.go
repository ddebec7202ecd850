package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// IdempotencyHeader carries the client's key for one logical submission
const IdempotencyHeader = "Idempotency-Key"

// Idempotency admits a mutating request once per Idempotency-Key within ttl.
// Keys of requests answered 4xx or 5xx are released. Requests without the
// header pass through. A cache outage lets the request
// through rather than blocking writes.
func Idempotency(store cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		cacheKey := fmt.Sprintf("idempotency:%d:%s:%s", GetUserID(c), c.FullPath(), key)

		admitted, err := store.SetNX(c.Request.Context(), cacheKey, ttl)
		if err != nil {
			logger.Warn("idempotency check failed", "key", cacheKey, "error", err)
			c.Next()
			return
		}
		if !admitted {
			abort(c, http.StatusConflict, "request.duplicate", "this request was already submitted")
			return
		}

		c.Next()

		// only a successful submission consumes the key; a rejected form
		// is corrected and resent under the same key
		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Delete(c.Request.Context(), cacheKey); err != nil {
				logger.Warn("failed to release idempotency key", "key", cacheKey, "error", err)
			}
		}
	}
}
