package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
)

type followUpApi struct {
	auth *authenticator
	svc  *followup.Service
}

func registerFollowUpAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *followup.Service) {
	api := followUpApi{auth: auth, svc: svc}

	fg := g.Group("/followup", jwt)
	fg.GET("/children", api.list(person.TypeChild), followUpViewerMiddleware(auth, person.TypeChild))
	fg.GET("/servants", api.list(person.TypeServant), followUpViewerMiddleware(auth, person.TypeServant))

	ig := fg.Group("/ignores", ignoreManagerMiddleware(auth))
	ig.GET("", api.queryIgnores)
	ig.POST("", api.createIgnore)
	ig.DELETE("/:personId", api.destroyIgnore)
}

// Handlers

func (api *followUpApi) list(t person.Type) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var query FollowUpQuery
		if err := query.Bind(ctx); err != nil {
			return err
		}

		report, err := api.svc.Compute(ctx.Request().Context(), t, query.Apply(api.svc.DefaultOptions(t)))
		if err != nil {
			return errors.Wrapf(err, "computing %s follow-up", t)
		}
		return ctx.JSON(http.StatusOK, report)
	}
}

func (api *followUpApi) queryIgnores(ctx echo.Context) error {
	entries, err := api.svc.ListIgnores(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing ignores")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *followUpApi) createIgnore(ctx echo.Context) error {
	var data followup.NewIgnore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIgnore")
	}

	ctxStaff, err := api.auth.contextStaff(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context staff")
	}

	entry, err := api.svc.AddIgnore(ctx.Request().Context(), ctxStaff.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding ignore")
	}
	return ctx.JSON(http.StatusCreated, entry)
}

func (api *followUpApi) destroyIgnore(ctx echo.Context) error {
	if err := api.svc.RemoveIgnore(ctx.Request().Context(), ctx.Param("personId")); err != nil {
		return errors.Wrap(err, "removing ignore")
	}
	return ctx.NoContent(http.StatusNoContent)
}
