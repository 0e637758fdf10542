package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
)

type notificationAPI struct {
	service *notification.Service
	userSvc *user.Service
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *notification.Service, userSvc *user.Service) {
	api := notificationAPI{service: svc, userSvc: userSvc}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)
	ng.PUT("/:id/read", api.markRead)
}

func (api *notificationAPI) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	ns, err := api.service.ListFor(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ns)
}

func (api *notificationAPI) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err := api.service.MarkRead(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "notification marked as read"})
}
