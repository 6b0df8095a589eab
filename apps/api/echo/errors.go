package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "staff not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// notFoundErrs are the repository errors answered with 404.
var notFoundErrs = []error{person.ErrNotFound, person.ErrClassNotFound, staff.ErrNotFound, followup.ErrIgnoreNotFound}

func isNotFound(err error) bool {
	for _, nfErr := range notFoundErrs {
		if errors.Is(err, nfErr) {
			return true
		}
	}
	return false
}

func fieldErrors(flds []core.FieldError) map[string]string {
	fldErrs := make(map[string]string, len(flds))
	for _, fErr := range flds {
		fldErrs[fErr.Field] = fErr.Error
	}
	return fldErrs
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			httpErr     *echo.HTTPError
			vErrs       validator.ValidationErrors
			valErr      *core.ValidationError
			conflictErr *core.ConflictError
			dataErr     *core.DataAccessError
		)
		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = httpErr.Message
				break
			}
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &valErr):
			if len(valErr.Fields) > 0 {
				message = fieldErrors(valErr.Fields)
			} else {
				message = valErr.Error()
			}
			code = http.StatusBadRequest
		case errors.As(err, &vErrs):
			fldErrs := make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case errors.As(err, &conflictErr):
			code = http.StatusConflict
			message = conflictErr.Error()
		case isNotFound(err):
			code = http.StatusNotFound
			message = errors.Cause(err).Error()
		case errors.As(err, &dataErr):
			code = http.StatusServiceUnavailable
			message = http.StatusText(code)
			logger.Error(message.(string), err, contextStaff(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextStaff(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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

// contextStaff returns the authenticated staff as far as the token tells, for error reports.
func contextStaff(ctx echo.Context) staff.Staff {
	var s staff.Staff
	if claims, err := getContextClaims(ctx); err == nil {
		s.ID = claims.Subject
		s.Username = claims.Username
		s.Email = claims.Email
	}
	return s
}
