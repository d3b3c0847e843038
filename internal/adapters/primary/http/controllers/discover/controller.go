package discover

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/admin/loventia/discover/internal/adapters/primary/http/controllers/httperr"
	"github.com/admin/loventia/discover/internal/adapters/primary/http/middlewares"
	"github.com/admin/loventia/discover/internal/domain"
	"github.com/admin/loventia/discover/internal/ports/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

type Controller struct {
	Discover usecase.IDiscoverUseCase
	// Auth обязателен, лимитеры могут быть nil
	Auth        gin.HandlerFunc
	ListLimit   gin.HandlerFunc
	ActionLimit gin.HandlerFunc
	Log         *slog.Logger
}

func New(
	discover usecase.IDiscoverUseCase,
	auth gin.HandlerFunc,
	listLimit gin.HandlerFunc,
	actionLimit gin.HandlerFunc,
	log *slog.Logger,
) *Controller {
	return &Controller{
		Discover:    discover,
		Auth:        auth,
		ListLimit:   listLimit,
		ActionLimit: actionLimit,
		Log:         log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	list := middlewares.Chain(c.ListLimit, c.Auth)
	actions := middlewares.Chain(c.ActionLimit, c.Auth)

	router.GET("/discover", append(list, c.list)...)

	api := router.Group("/api/discover")
	{
		api.GET("", append(list, c.list)...)
		api.GET("/liked-you", append(list, c.likedYou)...)
		api.POST("/rewind", append(actions, c.rewind)...)
		api.POST("/:userId/:actionType", append(actions, c.act)...)
	}
}

// list выдача кандидатов: массив или конверт с meta при withMeta
func (c *Controller) list(ctx *gin.Context) {
	requesterID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	filters, err := parseFilters(ctx.Request.URL.Query())
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	result, err := c.Discover.Discover(ctx.Request.Context(), requesterID, filters)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	if filters.WithMeta {
		ctx.JSON(http.StatusOK, result)
		return
	}
	ctx.JSON(http.StatusOK, result.Users)
}

func (c *Controller) act(ctx *gin.Context) {
	actorID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	targetID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		httperr.Abort(ctx, c.Log, domain.NewValidationError("userId", "must be a uuid"))
		return
	}
	actionType, err := domain.ParseActionType(ctx.Param("actionType"))
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	_, err = c.Discover.Act(ctx.Request.Context(), actorID, targetID, actionType, ctx.GetHeader(idempotencyKeyHeader))
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (c *Controller) rewind(ctx *gin.Context) {
	actorID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	result, err := c.Discover.Rewind(ctx.Request.Context(), actorID)
	if err != nil {
		if httperr.Status(err) == http.StatusNotFound {
			ctx.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "nothing to rewind"})
			return
		}
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *Controller) likedYou(ctx *gin.Context) {
	requesterID, ok := middlewares.UserID(ctx)
	if !ok {
		httperr.Abort(ctx, c.Log, domain.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httperr.Abort(ctx, c.Log, domain.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	users, err := c.Discover.LikedYou(ctx.Request.Context(), requesterID, limit)
	if err != nil {
		httperr.Abort(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}
