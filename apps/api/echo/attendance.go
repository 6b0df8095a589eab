package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
)

type attendanceApi struct {
	svc *followup.Service
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *followup.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance", jwt, personTypeViewerMiddleware(auth))
	ag.GET("/:personType/:personId/weeks", api.weeks)
}

// weeks lists a person's attendance per service week, most recent first.
// It takes the lookbackWeeks and date query parameters of the follow-up lists.
func (api *attendanceApi) weeks(ctx echo.Context) error {
	t, err := person.ParseType(ctx.Param("personType"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "personType", Error: err.Error()})
	}

	var query FollowUpQuery
	if err := query.Bind(ctx); err != nil {
		return err
	}

	weeks, err := api.svc.AttendanceWeeks(ctx.Request().Context(), t, ctx.Param("personId"), query.Apply(api.svc.DefaultOptions(t)))
	if err != nil {
		return errors.Wrap(err, "reading attendance weeks")
	}
	return ctx.JSON(http.StatusOK, weeks)
}
