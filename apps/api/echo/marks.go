package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

type marksApi struct {
	svc     marks.Service
	userSvc user.Service
}

func registerMarksAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc marks.Service, userSvc user.Service) {
	api := marksApi{svc: svc, userSvc: userSvc}

	mg := g.Group("/marks", jwt)

	mg.GET("", api.ownSummary)
	mg.GET("/students/:id", api.studentSummary, selfOrStaffMiddleware())

	mg.POST("", api.upload, staffMiddleware())
	mg.GET("/records", api.query, staffMiddleware())
	mg.DELETE("/records", api.destroyMultiple, adminMiddleware())
}

// Handlers

func (api *marksApi) ownSummary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.summary(ctx, claims.Subject)
}

func (api *marksApi) studentSummary(ctx echo.Context) error {
	return api.summary(ctx, ctx.Param("id"))
}

func (api *marksApi) summary(ctx echo.Context, studentID string) error {
	sum, err := api.svc.StudentSummary(ctx.Request().Context(), studentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *marksApi) upload(ctx echo.Context) error {
	var data marks.NewBatch
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBatch")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	recs, err := api.svc.UploadBatch(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, recs)
}

func (api *marksApi) query(ctx echo.Context) error {
	var filter marks.QueryFilter
	filter.StudentID = ctx.QueryParam("studentId")
	filter.SubjectID = ctx.QueryParam("subjectId")
	filter.Branch = ctx.QueryParam("branch")
	filter.ExamType = marks.ExamType(ctx.QueryParam("examType"))
	if sem := ctx.QueryParam("semester"); sem != "" {
		n, err := strconv.Atoi(sem)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "must be an integer"})
		}
		filter.Semester = n
	}

	recs, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying marks")
	}
	if recs == nil {
		recs = []marks.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *marksApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return ctx.NoContent(http.StatusNoContent)
}
