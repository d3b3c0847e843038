package visibility

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/httperr"
	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	Visibility usecase.IVisibilityUseCase
	Auth       gin.HandlerFunc
	Limit      gin.HandlerFunc
	Log        *slog.Logger
}

func New(
	visibility usecase.IVisibilityUseCase,
	auth gin.HandlerFunc,
	limit gin.HandlerFunc,
	log *slog.Logger,
) *Controller {
	return &Controller{
		Visibility: visibility,
		Auth:       auth,
		Limit:      limit,
		Log:        log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	users := router.Group("/api/users/visibility", middlewares.Chain(c.Limit, c.Auth)...)
	{
		users.PUT("/hide", c.hide)
		users.PUT("/unhide", c.unhide)
		// вызывается сервисом авторизации после успешного входа
		users.POST("/resume", c.resume)
	}
}

// HideRequest тело запроса скрытия. Оба поля необязательны.
type HideRequest struct {
	DurationMinutes *int `json:"durationMinutes"`
	ResumeOnLogin   bool `json:"resumeOnLogin"`
}

// VisibilityResponse текущее состояние видимости
type VisibilityResponse struct {
	Visibility *domain.Visibility `json:"visibility"`
}

func (c *Controller) hide(ctx *gin.Context) {
	userID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	var req HideRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			httperr.Abort(ctx, c.Log, domain.NewValidationError("body", "malformed json"))
			return
		}
	}

	var duration time.Duration
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < 0 {
			httperr.Abort(ctx, c.Log, domain.NewValidationError("durationMinutes", "must be >= 0"))
			return
		}
		duration = time.Duration(*req.DurationMinutes) * time.Minute
	}

	vis, err := c.Visibility.Hide(ctx.Request.Context(), userID, duration, req.ResumeOnLogin)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, VisibilityResponse{Visibility: vis})
}

func (c *Controller) unhide(ctx *gin.Context) {
	userID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	vis, err := c.Visibility.Unhide(ctx.Request.Context(), userID)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, VisibilityResponse{Visibility: vis})
}

// resume снимает скрытие, если пользователь просил вернуть профиль при входе
func (c *Controller) resume(ctx *gin.Context) {
	userID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	vis, err := c.Visibility.ResumeOnLogin(ctx.Request.Context(), userID)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, VisibilityResponse{Visibility: vis})
}
