package middleware

import (
	"relief_backend/internal/logger"
	"relief_backend/internal/ratelimit"
	"relief_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// RateLimit ограничивает запросы по ключу route+IP.
// Если хранилище лимитов недоступно, запрос пропускается (fail open) с предупреждением.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.FullPath() + ":" + c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "rate limiter unavailable", "error", err.Error(), "key", key)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "60")
			apperrors.HandleError(c, apperrors.NewTooManyRequestsError("Too many requests, try again later"))
			return
		}
		c.Next()
	}
}
