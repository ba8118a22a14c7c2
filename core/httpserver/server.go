// Package httpserver hosts the inbound HTTP surface: Telegram and 1Shot
// webhooks plus the liveness probe.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/m3rciful/tokenbot/core/logger"
)

// HealthcheckBody is the static body served by GET /healthcheck.
const HealthcheckBody = "The bot is still running fine :)"

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Options configures New.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server wraps an echo instance with the shared middleware stack.
type Server struct {
	echo *echo.Echo
	opts Options
}

// New builds a server with panic recovery, request ids, access logging and
// the healthcheck route.
func New(opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = readHeaderTimeout

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(requestContext)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.HTTP.LogAttrs(c.Request().Context(), slog.LevelError, "panic recovered",
				slog.String("event", "http.panic"),
				slog.String("err", err.Error()),
				slog.String("stack", string(stack)),
			)
			return err
		},
	}))
	e.Use(accessLog)

	e.GET("/healthcheck", func(c echo.Context) error {
		return c.String(http.StatusOK, HealthcheckBody)
	})

	return &Server{echo: e, opts: opts}
}

// Echo exposes the underlying router for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.HTTP.Info("http listening",
			slog.String("event", "http.listen"),
			slog.String("listen", s.opts.Addr),
		)
		errCh <- s.echo.Start(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.HTTP.Info("http stopped", slog.String("event", "http.shutdown"))
	return nil
}

// requestContext carries the request id into the request context as rid so
// downstream logs correlate with the access log line.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logger.WithRID(c.Request().Context(), rid)
		ctx = logger.WithLogger(ctx, logger.HTTP)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		code := c.Response().Status
		level := slog.LevelInfo
		switch {
		case code >= 500:
			level = slog.LevelError
		case code >= 400:
			level = slog.LevelWarn
		case req.URL.Path == "/healthcheck":
			level = slog.LevelDebug
		}
		attrs := []slog.Attr{
			slog.String("status", httpStatus(code)),
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("http_code", code),
			slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
		logger.LogEvent(req.Context(), logger.HTTP, level, "http.request", attrs...)
		return nil
	}
}

func httpStatus(code int) string {
	if code >= 400 {
		return "fail"
	}
	return "ok"
}
