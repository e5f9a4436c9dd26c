package echoapi

import (
	"bytes"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/report"
)

type reportAPI struct {
	deps     ServerDeps
	students studentAPI
}

func registerReportAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportAPI{deps: deps, students: studentAPI{deps: deps}}

	g := v1.Group("/reports", jwt, teacherOnly)
	g.GET("/students", api.studentList)
	g.GET("/grades", api.gradeSheet)
	g.POST("/grades/email", api.emailGradeReport)
}

func (api reportAPI) studentList(ctx echo.Context) error {
	renderer, err := bindRenderer(ctx, api.deps.Renderers)
	if err != nil {
		return err
	}
	filter, err := api.students.bindFilter(ctx)
	if err != nil {
		return err
	}

	l, err := api.deps.Reports.StudentList(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building student list")
	}
	var buf bytes.Buffer
	if err := renderer.StudentList(&buf, l); err != nil {
		return errors.Wrap(err, "rendering student list")
	}
	return attachment(ctx, renderer, report.Filename(renderer, "students", filter.AcademicYear), &buf)
}

func (api reportAPI) gradeSheet(ctx echo.Context) error {
	renderer, err := bindRenderer(ctx, api.deps.Renderers)
	if err != nil {
		return err
	}
	filter, err := bindHistoryFilter(ctx, api.deps)
	if err != nil {
		return err
	}

	s, err := api.deps.Reports.GradeSheet(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "building grade sheet")
	}
	var buf bytes.Buffer
	if err := renderer.GradeSheet(&buf, s); err != nil {
		return errors.Wrap(err, "rendering grade sheet")
	}
	return attachment(ctx, renderer, report.Filename(renderer, "grades", filter.AcademicYear), &buf)
}

type emailReportInput struct {
	StudentID    string `json:"student_id" validate:"required"`
	AcademicYear int    `json:"academic_year" validate:"required,gte=1900,lte=3000"`
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"max=100"`
	Format       string `json:"format"`
}

// emailGradeReport sends the grade report of a student to a parent or teacher.
func (api reportAPI) emailGradeReport(ctx echo.Context) error {
	var in emailReportInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := api.deps.Validate.Struct(in); err != nil {
		return err
	}
	renderer, err := api.deps.Renderers.Get(in.Format)
	if err != nil {
		return err
	}

	c := ctx.Request().Context()
	r, err := api.deps.Reports.GradeReport(c, in.StudentID, in.AcademicYear)
	if err != nil {
		return errors.Wrap(err, "building grade report")
	}
	to := mail.Address{Name: in.Name, Address: in.Email}
	if err := api.deps.Mailer.SendGradeReport(c, to, r, renderer); err != nil {
		return errors.Wrap(err, "sending grade report")
	}
	return ctx.NoContent(http.StatusAccepted)
}
