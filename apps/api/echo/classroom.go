package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

const idempotencyKeyHeader = "Idempotency-Key"

type classroomApi struct {
	users    *user.Service
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users *user.Service,
	svc *classroom.Service,
	validate *validator.Validate,
) {
	api := classroomApi{
		users:    users,
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/teacher", jwt, teacherMiddleware)
	tg.GET("/dashboard/stats", api.dashboardStats)
	tg.GET("/courses", api.courses)
	tg.GET("/assignments", api.assignments)

	g.GET("/assignments/:id", api.assignmentDetails, jwt, teacherMiddleware)
	g.GET("/submissions/:id", api.submission, jwt)
	g.PUT("/submissions/:id/grade", api.grade, jwt, teacherMiddleware)

	g.GET("/notifications/unread-count", api.unreadCount, jwt)
}

func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// Handlers

func (api *classroomApi) dashboardStats(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	stats, err := api.svc.DashboardStats(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *classroomApi) courses(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courses, err := api.svc.Courses(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *classroomApi) assignments(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	asgs, err := api.svc.Assignments(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *classroomApi) assignmentDetails(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	details, err := api.svc.AssignmentDetails(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting assignment details")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *classroomApi) submission(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sub, err := api.svc.Submission(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *classroomApi) grade(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}

	var data classroom.GradeInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	data.IdempotencyKey = ctx.Request().Header.Get(idempotencyKeyHeader)
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sub, err := api.svc.GradeSubmission(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *classroomApi) unreadCount(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	n, err := api.svc.UnreadNotificationCount(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, classroom.UnreadCount{Count: n})
}
