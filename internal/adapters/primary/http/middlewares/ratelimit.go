package middlewares

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/admin/loventia/discover/internal/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit фиксированное окно на ключ клиента. Заголовки X-RateLimit-*
// ставятся на каждый ответ; при ошибке хранилища запрос пропускается.
func RateLimit(limiter *ratelimit.Limiter, keyFunc ratelimit.KeyFunc, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Scope", limiter.Scope())

		d, err := limiter.Allow(c.Request.Context(), keyFunc(c.Request))
		if err != nil {
			// остаток и сброс неизвестны, отдаём только лимит и scope
			logger.FromContext(c.Request.Context(), log).Warn("rate limiter unavailable, request allowed",
				"scope", limiter.Scope(),
				"error", err)
			c.Next()
			return
		}

		resetIn := int64(math.Ceil(d.ResetIn.Seconds()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetIn, 10))

		if !d.Allowed {
			c.Header("Retry-After", strconv.FormatInt(resetIn, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too Many Requests",
				"limit": d.Limit,
				"reset": d.ResetAt.UnixMilli(),
				"scope": d.Scope,
			})
			return
		}
		c.Next()
	}
}
