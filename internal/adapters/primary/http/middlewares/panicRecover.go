package middlewares

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RecoveryLogger ловит панику обработчика, логирует её со стеком
// и отвечает 500, если ответ ещё не начат
func RecoveryLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			attrs := []any{
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"client_ip", c.ClientIP(),
				"stack", string(debug.Stack()),
			}
			if userID, ok := UserID(c); ok {
				attrs = append(attrs, "user_id", userID)
			}
			logger.FromContext(c.Request.Context(), log).Error("panic recovered", attrs...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}
