package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/teacher"
)

type teacherAPI struct {
	deps ServerDeps
}

func registerTeacherAPI(v1 *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherAPI{deps: deps}

	g := v1.Group("/teachers", jwt, teacherOnly)
	g.GET("", api.query)
	g.POST("", api.create)
	g.GET("/:id", api.retrieve)
	g.PUT("/:id", api.update)
	g.POST("/:id/password-reset", api.resetPassword)
}

func (api teacherAPI) query(ctx echo.Context) error {
	var filter teacher.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return err
	}
	filter.Search = core.CleanString(filter.Search)

	teachers, err := api.deps.Teachers.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []teacher.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

// teacherWithPassword returns the generated password once, on creation and reset.
type teacherWithPassword struct {
	Teacher  teacher.Teacher `json:"teacher"`
	Password string          `json:"password"`
}

func (api teacherAPI) create(ctx echo.Context) error {
	var nt teacher.NewTeacher
	if err := ctx.Bind(&nt); err != nil {
		return err
	}
	if err := nt.Validate(api.deps.Validate); err != nil {
		return err
	}

	t, pwd, err := api.deps.Teachers.Create(ctx.Request().Context(), nt)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, teacherWithPassword{Teacher: t, Password: pwd})
}

func (api teacherAPI) retrieve(ctx echo.Context) error {
	t, err := api.deps.Teachers.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api teacherAPI) update(ctx echo.Context) error {
	var ut teacher.UpdateTeacher
	if err := ctx.Bind(&ut); err != nil {
		return err
	}
	if err := ut.Validate(api.deps.Validate); err != nil {
		return err
	}

	t, err := api.deps.Teachers.Update(ctx.Request().Context(), ctx.Param("id"), ut)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return ctx.JSON(http.StatusOK, t)
}

type resetPasswordInput struct {
	Password string `json:"password" validate:"omitempty,min=6"`
}

func (api teacherAPI) resetPassword(ctx echo.Context) error {
	var in resetPasswordInput
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	if err := api.deps.Validate.Struct(in); err != nil {
		return err
	}

	c := ctx.Request().Context()
	id := ctx.Param("id")
	pwd, err := api.deps.Teachers.ResetPassword(c, id, in.Password)
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	t, err := api.deps.Teachers.Get(c, id)
	if err != nil {
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, teacherWithPassword{Teacher: t, Password: pwd})
}
