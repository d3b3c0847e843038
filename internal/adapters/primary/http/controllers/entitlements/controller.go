package entitlements

import (
	"log/slog"
	"net/http"

	"github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/httperr"
	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	Entitlements usecase.IEntitlementUseCase
	Auth         gin.HandlerFunc
	Log          *slog.Logger
}

func New(entitlements usecase.IEntitlementUseCase, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		Entitlements: entitlements,
		Auth:         auth,
		Log:          log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/entitlements", append(middlewares.Chain(c.Auth), c.get)...)
}

// get тариф, функции и остаток суперлайков на текущую неделю
func (c *Controller) get(ctx *gin.Context) {
	userID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	view, err := c.Entitlements.Get(ctx.Request.Context(), userID)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}
