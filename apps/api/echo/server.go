package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/staff"
)

type (
	// Deps holds the services the API handlers delegate to.
	Deps struct {
		FollowUpSvc *followup.Service
		StaffSvc    *staff.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		app      *echo.Echo
		conf     *core.Config
		logger   core.Logger
		deps     *Deps
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

// NewServer builds the echo application and registers every route.
func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	s := &Server{
		app:      echo.New(),
		conf:     conf,
		logger:   logger,
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = s.conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(s.conf, s.deps.StaffSvc)
	jwt := middleware.JWTWithConfig(auth.jwtConfig())

	registerStaffAPI(v1, jwt, auth, s.deps.StaffSvc)
	registerFollowUpAPI(v1, jwt, auth, s.deps.FollowUpSvc)
	registerAttendanceAPI(v1, jwt, auth, s.deps.FollowUpSvc)
}

// Start listens on the configured address. A listener failure is sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the application to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
