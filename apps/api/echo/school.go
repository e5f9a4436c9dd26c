package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
)

type schoolAPI struct {
	deps ServerDeps
}

func registerSchoolAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := schoolAPI{deps: deps}

	v1.GET("/schools", api.schools, jwt)
	v1.POST("/schools", api.createSchool, jwt, teacherOnly)
	v1.GET("/levels", api.levels, jwt)

	v1.GET("/semester", api.semester, jwt)
	v1.PUT("/semester", api.updateSemester, jwt, teacherOnly)

	v1.GET("/subjects", api.subjects, jwt)
	v1.POST("/subjects", api.createSubject, jwt, teacherOnly)
	v1.GET("/offerings", api.offerings, jwt)
}

func (api schoolAPI) schools(ctx echo.Context) error {
	schools, err := api.deps.Schools.Schools(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

// createSchool returns the existing school of the same name with 200.
func (api schoolAPI) createSchool(ctx echo.Context) error {
	var ns school.NewSchool
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	if err := ns.Validate(api.deps.Validate); err != nil {
		return err
	}

	s, created, err := api.deps.Schools.GetOrCreate(ctx.Request().Context(), ns)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, s)
}

func (api schoolAPI) levels(ctx echo.Context) error {
	levels, err := api.deps.Schools.Levels(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing levels")
	}
	if levels == nil {
		levels = []school.Level{}
	}
	return ctx.JSON(http.StatusOK, levels)
}

func (api schoolAPI) semester(ctx echo.Context) error {
	sem, err := api.deps.Semesters.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting semester")
	}
	return ctx.JSON(http.StatusOK, sem)
}

// updateSemester moves to another term, creating the semester when none exists yet.
func (api schoolAPI) updateSemester(ctx echo.Context) error {
	var term semester.Term
	if err := ctx.Bind(&term); err != nil {
		return err
	}
	if err := term.Validate(api.deps.Validate); err != nil {
		return err
	}

	res, err := api.deps.Semesters.Update(ctx.Request().Context(), term)
	if err != nil {
		return errors.Wrap(err, "updating semester")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api schoolAPI) subjects(ctx echo.Context) error {
	category, err := bindCategory(ctx)
	if err != nil {
		return err
	}
	subjects, err := api.deps.Curriculum.Subjects(ctx.Request().Context(), category)
	if err != nil {
		return errors.Wrap(err, "listing subjects")
	}
	if subjects == nil {
		subjects = []curriculum.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api schoolAPI) createSubject(ctx echo.Context) error {
	var ns curriculum.NewSubject
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	if err := ns.Validate(api.deps.Validate); err != nil {
		return err
	}

	s, err := api.deps.Curriculum.CreateSubject(ctx.Request().Context(), ns)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api schoolAPI) offerings(ctx echo.Context) error {
	var filter curriculum.OfferingFilter
	if err := ctx.Bind(&filter); err != nil {
		return err
	}
	offs, err := api.deps.Curriculum.Offerings(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing offerings")
	}
	if offs == nil {
		offs = []curriculum.Offering{}
	}
	return ctx.JSON(http.StatusOK, offs)
}
