package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// teacherOnly lets only teachers through.
func teacherOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}
		if p.IsTeacher() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// selfOrTeacher lets teachers through, and students whose ID is the "id" path param.
func selfOrTeacher(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}
		if p.IsTeacher() || (p.IsStudent() && p.ID == ctx.Param("id")) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}
