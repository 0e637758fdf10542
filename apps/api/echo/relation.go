package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/relation"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type (
	// StudentOverview is one linked student on the parent dashboard.
	StudentOverview struct {
		ID       string           `json:"id"`
		Name     string           `json:"name"`
		Email    string           `json:"email"`
		Stats    school.TaskStats `json:"stats"`
		Projects int              `json:"total_projects"`
	}

	relationAPI struct {
		service   *relation.Service
		schoolSvc *school.Service
		userSvc   *user.Service
	}
)

func registerRelationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *relation.Service, schoolSvc *school.Service, userSvc *user.Service) {
	api := relationAPI{service: svc, schoolSvc: schoolSvc, userSvc: userSvc}

	pg := g.Group("/parents", jwt)
	pg.POST("/invite", api.invite, studentMiddleware(userSvc))
	pg.POST("/accept-invite", api.acceptInvite, parentMiddleware(userSvc))
	pg.GET("/students", api.studentList, parentMiddleware(userSvc))
}

func (api *relationAPI) invite(ctx echo.Context) error {
	data := new(relation.NewInvite)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	inv, err := api.service.Invite(ctx.Request().Context(), usr, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *relationAPI) acceptInvite(ctx echo.Context) error {
	data := new(relation.AcceptInvite)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	rel, err := api.service.Accept(ctx.Request().Context(), usr, data.InviteCode)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rel)
}

// studentList composes the parent dashboard: every linked student with their
// task stats and project count. An empty list is a valid dashboard.
func (api *relationAPI) studentList(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	ids, err := api.service.StudentsVisibleTo(reqCtx, usr.ID)
	if err != nil {
		return err
	}
	students, err := api.userSvc.FilterByID(reqCtx, ids)
	if err != nil {
		return err
	}

	overviews := make([]StudentOverview, 0, len(students))
	for _, student := range students {
		stats, err := api.schoolSvc.GetTaskStats(reqCtx, student.ID)
		if err != nil {
			return err
		}
		projects, err := api.schoolSvc.CountProjects(reqCtx, student.ID)
		if err != nil {
			return err
		}
		overviews = append(overviews, StudentOverview{
			ID:       student.ID,
			Name:     student.Name,
			Email:    student.Email,
			Stats:    stats,
			Projects: projects,
		})
	}
	return ctx.JSON(http.StatusOK, overviews)
}
