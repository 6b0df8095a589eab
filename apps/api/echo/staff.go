package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/staff"
)

var errNoPermsToSetRoles = "not enough rights to set these roles"

type staffApi struct {
	auth *authenticator
	svc  *staff.Service
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *staff.Service) {
	api := staffApi{auth: auth, svc: svc}

	sg := g.Group("/staff")

	// un-authed endpoints
	sg.POST("/login", api.login)

	// authed endpoints
	ag := sg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("", api.query, adminMiddleware(auth))
	ag.POST("", api.create, adminMiddleware(auth))
	ag.GET("/roles", api.queryRoles, adminMiddleware(auth))
}

// Handlers

func (api *staffApi) login(ctx echo.Context) error {
	var data staff.LoginCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginCredentials")
	}

	token, err := api.auth.login(ctx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *staffApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *staffApi) me(ctx echo.Context) error {
	s, err := api.auth.contextStaff(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context staff")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *staffApi) query(ctx echo.Context) error {
	list, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing staff")
	}
	if list == nil {
		list = []staff.Staff{}
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}

	// ctxStaff cannot set a role > their own max role
	ctxStaff, err := api.auth.contextStaff(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context staff")
	}
	if staff.MaxRolePriority(data.Roles) > staff.MaxRolePriority(ctxStaff.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

type LoginResponse struct {
	Token string `json:"token"`
}
