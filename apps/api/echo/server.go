package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

type (
	// Deps are the domain services the API serves.
	Deps struct {
		UserSvc       user.Service
		AttendanceSvc attendance.Service
		MarksSvc      marks.Service
		Logger        core.Logger
	}

	Options struct {
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start() error
		Stop(ctx context.Context) error
	}

	server struct {
		addr     string
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer builds the API server. shutdown may be nil (tests); it receives a
// SIGTERM when an integrity error forces the server down.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps, opts ...Options) Server {
	s := &server{
		addr:     addr,
		app:      echo.New(),
		shutdown: shutdown,
	}
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	s.setup(deps, o)
	return s
}

func (s *server) setup(deps *Deps, opts Options) {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !opts.DisableReqLogs && !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, deps.UserSvc)
	registerAttendanceAPI(v1, jwt, deps.AttendanceSvc, deps.UserSvc)
	registerMarksAPI(v1, jwt, deps.MarksSvc, deps.UserSvc)
}

// signalShutdown forces a graceful shutdown of the server.
func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() error {
	return s.app.Start(s.addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+core.Conf.AppName+" API!")
}
