package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/user"
)

// studentMiddleware restricts an endpoint to the student portal.
func studentMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleStudent)
}

// parentMiddleware restricts an endpoint to the parent portal.
func parentMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleParent)
}

func roleMiddleware(svc *user.Service, role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if usr.Role != role {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}
