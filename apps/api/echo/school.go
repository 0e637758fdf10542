package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type schoolAPI struct {
	service *school.Service
	userSvc *user.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *school.Service, userSvc *user.Service) {
	api := schoolAPI{service: svc, userSvc: userSvc}
	student := studentMiddleware(userSvc)

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.subjectList)
	sg.POST("", api.subjectCreate, student)

	tg := g.Group("/tasks", jwt)
	tg.GET("", api.taskList)
	tg.POST("", api.taskCreate, student)
	tg.PUT("/:id", api.taskUpdate, student)
	tg.DELETE("/:id", api.taskDelete, student)

	pg := g.Group("/projects", jwt)
	pg.GET("", api.projectList)
	pg.POST("", api.projectCreate, student)
	pg.GET("/:id/tasks", api.projectTaskList)
	pg.POST("/:id/tasks", api.projectTaskCreate, student)
	pg.PUT("/:id/tasks/:taskID", api.projectTaskUpdate, student)
}

// Subjects

func (api *schoolAPI) subjectList(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	subjects, err := api.service.ListSubjects(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolAPI) subjectCreate(ctx echo.Context) error {
	data := new(school.NewSubject)
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
	subject, err := api.service.CreateSubject(ctx.Request().Context(), usr, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, subject)
}

// Tasks

func (api *schoolAPI) taskList(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	tasks, err := api.service.ListTasks(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *schoolAPI) taskCreate(ctx echo.Context) error {
	data := new(school.NewTask)
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
	task, err := api.service.CreateTask(ctx.Request().Context(), usr, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *schoolAPI) taskUpdate(ctx echo.Context) error {
	data := new(school.UpdateTask)
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
	task, err := api.service.UpdateTask(ctx.Request().Context(), usr, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, task)
}

func (api *schoolAPI) taskDelete(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if err := api.service.DeleteTask(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Projects

func (api *schoolAPI) projectList(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	projects, err := api.service.ListProjects(ctx.Request().Context(), usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *schoolAPI) projectCreate(ctx echo.Context) error {
	data := new(school.NewProject)
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
	project, err := api.service.CreateProject(ctx.Request().Context(), usr, *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, project)
}

// Project tasks

func (api *schoolAPI) projectTaskList(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	tasks, err := api.service.ListProjectTasks(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *schoolAPI) projectTaskCreate(ctx echo.Context) error {
	data := new(school.NewProjectTask)
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
	task, err := api.service.CreateProjectTask(ctx.Request().Context(), usr, ctx.Param("id"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, task)
}

func (api *schoolAPI) projectTaskUpdate(ctx echo.Context) error {
	data := new(school.UpdateProjectTask)
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
	task, err := api.service.UpdateProjectTask(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("taskID"), *data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, task)
}
