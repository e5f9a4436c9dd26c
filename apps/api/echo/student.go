package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/report"
	"github.com/trezcool/pondok/core/student"
)

type studentAPI struct {
	deps ServerDeps
}

func registerStudentAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentAPI{deps: deps}

	v1.GET("/home", api.stats, jwt)

	g := v1.Group("/students", jwt)
	g.GET("", api.query, teacherOnly)
	g.POST("", api.create, teacherOnly)
	g.GET("/:id", api.retrieve, selfOrTeacher)
	g.PUT("/:id", api.update, teacherOnly)
	g.DELETE("/:id", api.delete, teacherOnly)
	g.PUT("/:id/parents/:kind", api.saveParent, teacherOnly)
	g.GET("/:id/results", api.results, selfOrTeacher)
	g.GET("/:id/results/export", api.exportResults, selfOrTeacher)
}

func (api studentAPI) bindFilter(ctx echo.Context) (student.QueryFilter, error) {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, err
	}
	filter.Clean()
	filter.Ordering = bindOrdering(ctx, student.OrderingFields)
	return filter, nil
}

func (api studentAPI) stats(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	stats, err := api.deps.Students.Stats(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	return ctx.JSON(http.StatusOK, stats)
}

type studentPage struct {
	Meta    core.PageMeta     `json:"meta"`
	Results []student.Student `json:"results"`
}

func (api studentAPI) query(ctx echo.Context) error {
	filter, err := api.bindFilter(ctx)
	if err != nil {
		return err
	}
	page, err := bindPage(ctx)
	if err != nil {
		return err
	}

	students, total, err := api.deps.Students.Query(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, studentPage{Meta: core.NewPageMeta(page, total), Results: students})
}

func (api studentAPI) create(ctx echo.Context) error {
	var ns student.NewStudent
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	if err := ns.Validate(api.deps.Validate); err != nil {
		return err
	}

	prof, err := api.deps.Profiles.Register(ctx.Request().Context(), ns)
	if err != nil {
		return errors.Wrap(err, "registering student")
	}
	return ctx.JSON(http.StatusCreated, prof)
}

func (api studentAPI) retrieve(ctx echo.Context) error {
	prof, err := api.deps.Profiles.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api studentAPI) update(ctx echo.Context) error {
	var us student.UpdateStudent
	if err := ctx.Bind(&us); err != nil {
		return err
	}
	if err := us.Validate(api.deps.Validate); err != nil {
		return err
	}

	prof, err := api.deps.Profiles.Edit(ctx.Request().Context(), ctx.Param("id"), us)
	if err != nil {
		return errors.Wrap(err, "editing student")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api studentAPI) delete(ctx echo.Context) error {
	if err := api.deps.Students.SoftDelete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api studentAPI) saveParent(ctx echo.Context) error {
	kind, err := family.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	var sp family.SaveParent
	if err := ctx.Bind(&sp); err != nil {
		return err
	}
	if err := sp.Validate(api.deps.Validate); err != nil {
		return err
	}

	p, err := api.deps.Families.Save(ctx.Request().Context(), ctx.Param("id"), kind, sp)
	if err != nil {
		return errors.Wrap(err, "saving parent")
	}
	return ctx.JSON(http.StatusOK, p)
}

// academicYear reads the academic_year query param, defaulting to the most recent year with history.
func (api studentAPI) academicYear(ctx echo.Context, studentID string) (int, error) {
	year, err := intParam(ctx, "academic_year")
	if err != nil || year != 0 {
		return year, err
	}
	years, err := api.deps.Grading.Years(ctx.Request().Context(), studentID)
	if err != nil {
		return 0, errors.Wrap(err, "listing years")
	}
	if len(years) == 0 {
		return 0, grading.ErrHistoryNotFound
	}
	return years[0], nil
}

func (api studentAPI) results(ctx echo.Context) error {
	id := ctx.Param("id")
	year, err := api.academicYear(ctx, id)
	if err != nil {
		return err
	}
	category, err := bindCategory(ctx)
	if err != nil {
		return err
	}

	res, err := api.deps.Grading.Result(ctx.Request().Context(), id, year, category)
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api studentAPI) exportResults(ctx echo.Context) error {
	id := ctx.Param("id")
	renderer, err := bindRenderer(ctx, api.deps.Renderers)
	if err != nil {
		return err
	}
	year, err := api.academicYear(ctx, id)
	if err != nil {
		return err
	}

	r, err := api.deps.Reports.GradeReport(ctx.Request().Context(), id, year)
	if err != nil {
		return errors.Wrap(err, "building grade report")
	}
	var buf bytes.Buffer
	if err := renderer.GradeReport(&buf, r); err != nil {
		return errors.Wrap(err, "rendering grade report")
	}
	return attachment(ctx, renderer, report.Filename(renderer, "grade_report_"+id, year), &buf)
}
