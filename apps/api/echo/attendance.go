package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

type attendanceApi struct {
	svc     attendance.Service
	userSvc user.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.Service, userSvc user.Service) {
	api := attendanceApi{svc: svc, userSvc: userSvc}

	ag := g.Group("/attendance", jwt)

	// student-facing
	ag.GET("", api.ownStats)
	ag.GET("/students/:id", api.studentStats, selfOrStaffMiddleware())

	// staff-facing
	ag.POST("", api.upload, staffMiddleware())
	ag.PUT("/:id", api.edit, staffMiddleware())
	ag.DELETE("/:id", api.destroy, staffMiddleware())
	ag.GET("/compile", api.compile, staffMiddleware())

	// admin-facing
	ag.GET("/report", api.report, adminMiddleware())
	ag.POST("/report/notify", api.notify, adminMiddleware())
}

// bindStatsFilter reads the optional query params shared by the stats endpoints.
func bindStatsFilter(ctx echo.Context) (attendance.QueryFilter, error) {
	var filter attendance.QueryFilter
	var err error

	filter.SubjectID = ctx.QueryParam("subjectId")
	filter.Branch = ctx.QueryParam("branch")
	if sem := ctx.QueryParam("semester"); sem != "" {
		filter.Semester, err = strconv.Atoi(sem)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "must be an integer"})
		}
	}
	if filter.DateFrom, err = bindDateParam(ctx, "startDate"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = bindDateParam(ctx, "endDate"); err != nil {
		return filter, err
	}
	return filter, nil
}

// Handlers

func (api *attendanceApi) ownStats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.stats(ctx, claims.Subject)
}

func (api *attendanceApi) studentStats(ctx echo.Context) error {
	return api.stats(ctx, ctx.Param("id"))
}

func (api *attendanceApi) stats(ctx echo.Context, studentID string) error {
	filter, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}

	stats, err := api.svc.StudentStats(ctx.Request().Context(), studentID, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *attendanceApi) upload(ctx echo.Context) error {
	var data attendance.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sess, err := api.svc.Upload(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *attendanceApi) edit(ctx echo.Context) error {
	var data attendance.EditSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.checkOwnership(ctx); err != nil {
		return err
	}

	sess, err := api.svc.Edit(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.checkOwnership(ctx); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// checkOwnership restricts edit/delete to the uploading teacher or an admin.
func (api *attendanceApi) checkOwnership(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return nil
	}

	sess, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if sess.UploadedBy != claims.Subject {
		return errHttpForbidden
	}
	return nil
}

func (api *attendanceApi) report(ctx echo.Context) error {
	filter, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}

	report, err := api.svc.BranchReport(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *attendanceApi) compile(ctx echo.Context) error {
	filter, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.Compile(ctx.Request().Context(), filter.Branch, filter.Semester, filter.SubjectID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) notify(ctx echo.Context) error {
	filter, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}

	notified, err := api.svc.NotifyLowAttendance(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"notified": notified})
}
