package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/address"
	"github.com/trezcool/pondok/core/curriculum"
	"github.com/trezcool/pondok/core/family"
	"github.com/trezcool/pondok/core/grading"
	"github.com/trezcool/pondok/core/report"
	"github.com/trezcool/pondok/core/school"
	"github.com/trezcool/pondok/core/semester"
	"github.com/trezcool/pondok/core/student"
	"github.com/trezcool/pondok/core/teacher"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// domainErrors maps the sentinel errors of the core packages to HTTP status codes.
var domainErrors = map[error]int{
	student.ErrNotFound:            http.StatusNotFound,
	teacher.ErrNotFound:            http.StatusNotFound,
	school.ErrNotFound:             http.StatusNotFound,
	school.ErrLevelNotFound:        http.StatusNotFound,
	school.ErrEnrolmentNotFound:    http.StatusNotFound,
	curriculum.ErrSubjectNotFound:  http.StatusNotFound,
	curriculum.ErrOfferingNotFound: http.StatusNotFound,
	grading.ErrHistoryNotFound:     http.StatusNotFound,
	grading.ErrNotGraded:           http.StatusNotFound,
	family.ErrNotFound:             http.StatusNotFound,
	address.ErrNotFound:            http.StatusNotFound,
	address.ErrProvinceNotFound:    http.StatusNotFound,
	address.ErrDistrictNotFound:    http.StatusNotFound,
	address.ErrSubdistrictNotFound: http.StatusNotFound,
	semester.ErrNotConfigured:      http.StatusConflict,
	core.ErrSingleton:              http.StatusConflict,
	curriculum.ErrInvalidCategory:  http.StatusBadRequest,
	family.ErrInvalidKind:          http.StatusBadRequest,
	report.ErrUnknownFormat:        http.StatusBadRequest,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrors[origErr]; ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if p, pErr := getContextPrincipal(ctx); pErr == nil {
				args = append(args, p)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
