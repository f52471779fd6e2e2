package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/minuum/qr-prayer-check/core"
	"github.com/minuum/qr-prayer-check/core/attendance"
	"github.com/minuum/qr-prayer-check/core/attendee"
	"github.com/minuum/qr-prayer-check/core/setting"
	metricsvc "github.com/minuum/qr-prayer-check/services/metrics"
	qrsvc "github.com/minuum/qr-prayer-check/services/qrcode"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Metrics        *metricsvc.Metrics // optional
		QR             *qrsvc.Encoder
		AttendeeSvc    *attendee.Service
		AttendanceSvc  *attendance.Service
		SettingSvc     *setting.Service
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		opts     Options
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	if opts.QR == nil {
		opts.QR = qrsvc.NewEncoder()
	}
	s := &server{
		opts:     opts,
		app:      echo.New(),
		jwt:      newJWTConfig(opts.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.opts.Metrics != nil {
		s.app.Use(metricsMiddleware(s.opts.Metrics))
	}
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", home)

	checkInLimit := rateLimitMiddleware(conf.RateLimit.CheckInPerSecond, conf.RateLimit.CheckInBurst, conf.Server.TrustProxy)
	loginLimit := rateLimitMiddleware(conf.RateLimit.LoginPerSecond, conf.RateLimit.LoginBurst, conf.Server.TrustProxy)

	g := s.app.Group("/api")
	admin := g.Group("/admin")
	authed := admin.Group("", middleware.JWTWithConfig(s.jwt), adminMiddleware())

	registerAuthAPI(admin, loginLimit, conf)
	registerSettingAPI(g, authed, s.opts.SettingSvc, s.opts.QR)
	registerAttendeeAPI(g, authed, checkInLimit, s.opts)
	registerAttendanceAPI(g, authed, checkInLimit, s.opts)
	registerGrowthAPI(g)
}

func (s *server) Start() {
	s.opts.Logger.Info("API listening on " + s.opts.Conf.Server.Address)
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the prayer meeting check-in API!")
}
