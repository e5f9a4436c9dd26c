package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/grading"
)

type gradingAPI struct {
	deps ServerDeps
}

func registerGradingAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gradingAPI{deps: deps}

	v1.GET("/marks", api.sheet, jwt, teacherOnly)
	v1.POST("/marks", api.submit, jwt, teacherOnly)

	v1.GET("/history", api.history, jwt)
	v1.GET("/history/years", api.years, jwt)
}

// bindHistoryFilter reads the history filter from the query.
// school_id and level_id are resolved to names, students only see their own history.
func bindHistoryFilter(ctx echo.Context, deps ServerDeps) (grading.HistoryFilter, error) {
	var filter grading.HistoryFilter
	if err := ctx.Bind(&filter); err != nil {
		return filter, err
	}
	var err error
	if filter.Category, err = bindCategory(ctx); err != nil {
		return filter, err
	}

	c := ctx.Request().Context()
	schoolID, err := intParam(ctx, "school_id")
	if err != nil {
		return filter, err
	}
	if schoolID != 0 {
		s, err := deps.Schools.School(c, schoolID)
		if err != nil {
			return filter, errors.Wrap(err, "getting school")
		}
		filter.SchoolName = s.Name
	}
	levelID, err := intParam(ctx, "level_id")
	if err != nil {
		return filter, err
	}
	if levelID != 0 {
		l, err := deps.Schools.Level(c, levelID)
		if err != nil {
			return filter, errors.Wrap(err, "getting level")
		}
		filter.LevelName = l.Name
	}

	p, err := getContextPrincipal(ctx)
	if err != nil {
		return filter, err
	}
	if p.IsStudent() {
		filter.StudentID = p.ID
	}
	return filter, nil
}

func (api gradingAPI) sheet(ctx echo.Context) error {
	schoolID, err := intParam(ctx, "school_id")
	if err != nil {
		return err
	}
	levelID, err := intParam(ctx, "level_id")
	if err != nil {
		return err
	}
	if schoolID == 0 || levelID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "school_id and level_id are required")
	}

	sheet, err := api.deps.Grading.Sheet(ctx.Request().Context(), schoolID, levelID)
	if err != nil {
		return errors.Wrap(err, "getting mark sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

// submit saves a batch of marks.
// 200 when every entry is saved, 422 when none is, 207 with the rejected entries otherwise.
func (api gradingAPI) submit(ctx echo.Context) error {
	var in grading.BatchInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := api.deps.Validate.Struct(in); err != nil {
		return err
	}

	res, err := api.deps.Grading.SubmitBatch(ctx.Request().Context(), in)
	if err != nil {
		return errors.Wrap(err, "submitting marks")
	}

	code := http.StatusOK
	switch {
	case len(res.Errors) == 0:
	case res.Saved == 0:
		code = http.StatusUnprocessableEntity
	default:
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}

func (api gradingAPI) history(ctx echo.Context) error {
	filter, err := bindHistoryFilter(ctx, api.deps)
	if err != nil {
		return err
	}
	listing, err := api.deps.Grading.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying history")
	}
	return ctx.JSON(http.StatusOK, listing)
}

func (api gradingAPI) years(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.QueryParam("student_id")
	if p.IsStudent() {
		studentID = p.ID
	}

	years, err := api.deps.Grading.Years(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "listing years")
	}
	return ctx.JSON(http.StatusOK, years)
}
