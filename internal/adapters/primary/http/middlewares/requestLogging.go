package middlewares

import (
	"log/slog"
	"time"

	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger присваивает запросу request_id, кладёт логгер с ним в контекст
// и логирует завершение с уровнем по статусу
func RequestLogger(log *slog.Logger, verbose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		requestID := req.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLog := log.With("request_id", requestID)
		c.Request = req.WithContext(logger.WithContext(req.Context(), reqLog))

		if verbose {
			reqLog.Debug("incoming request",
				"method", req.Method,
				"path", req.URL.Path,
				"query", req.URL.RawQuery,
				"user_agent", req.UserAgent(),
				"remote_addr", req.RemoteAddr,
				"content_length", req.ContentLength,
			)
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// Определяем уровень логирования в зависимости от статуса
		var logLevel slog.Level
		switch {
		case status >= 500:
			logLevel = slog.LevelError
		case status >= 400:
			logLevel = slog.LevelWarn
		default:
			logLevel = slog.LevelInfo
		}

		reqLog.LogAttrs(c.Request.Context(), logLevel, "request completed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("query", req.URL.RawQuery),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.Int("response_size", c.Writer.Size()),
			slog.String("user_agent", req.UserAgent()),
			slog.String("remote_addr", req.RemoteAddr),
		)
	}
}
