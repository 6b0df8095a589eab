package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
)

// staffMiddleware lets the request through when the authenticated staff satisfies allowed.
func staffMiddleware(auth *authenticator, allowed func(s *staff.Staff, ctx echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := auth.contextStaff(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context staff")
			}
			if allowed(&s, ctx) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return staffMiddleware(auth, func(s *staff.Staff, _ echo.Context) bool {
		return s.IsAdmin()
	})
}

// followUpViewerMiddleware guards the follow-up list of population t.
func followUpViewerMiddleware(auth *authenticator, t person.Type) echo.MiddlewareFunc {
	return staffMiddleware(auth, func(s *staff.Staff, _ echo.Context) bool {
		return s.CanViewFollowUp(t)
	})
}

// personTypeViewerMiddleware guards routes holding the population in the :personType param.
// An unknown population is left to the handler, which answers 400.
func personTypeViewerMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return staffMiddleware(auth, func(s *staff.Staff, ctx echo.Context) bool {
		t, err := person.ParseType(ctx.Param("personType"))
		if err != nil {
			return true
		}
		return s.CanViewFollowUp(t)
	})
}

func ignoreManagerMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return staffMiddleware(auth, func(s *staff.Staff, _ echo.Context) bool {
		return s.CanManageIgnores()
	})
}
