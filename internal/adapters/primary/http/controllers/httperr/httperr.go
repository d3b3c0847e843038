// Package httperr единое отображение доменных ошибок в HTTP-ответы
package httperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Status HTTP-статус для ошибки
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFeatureLocked):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Body тело ответа для ошибки
func Body(err error) gin.H {
	var quotaErr *domain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return gin.H{
			"error":   "quota_exceeded",
			"limit":   quotaErr.Limit,
			"used":    quotaErr.Used,
			"weekKey": quotaErr.WeekKey,
		}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return gin.H{
			"error":  "validation_error",
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		}
	}

	switch Status(err) {
	case http.StatusUnauthorized:
		return gin.H{"error": "unauthorized"}
	case http.StatusForbidden:
		return gin.H{"error": "feature_locked"}
	case http.StatusTooManyRequests:
		return gin.H{"error": "quota_exceeded"}
	case http.StatusNotFound:
		return gin.H{"error": "not found"}
	default:
		return gin.H{"error": "internal server error"}
	}
}

// Abort пишет ответ об ошибке. 5xx логируются, 4xx нет.
func Abort(c *gin.Context, log *slog.Logger, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context(), log).Error("request failed",
			"path", c.FullPath(),
			"error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Body(err))
}
