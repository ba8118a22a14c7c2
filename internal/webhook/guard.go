package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/m3rciful/tokenbot/core/logger"
)

const maxBodyBytes = 1 << 20

// Authenticator turns a raw webhook body into a verified event.
type Authenticator interface {
	Authenticate(ctx context.Context, raw []byte) (Event, error)
}

// AcceptFunc takes ownership of an authenticated event, typically by
// enqueueing it for the correlator.
type AcceptFunc func(ctx context.Context, ev Event) error

// Handler authenticates each request before handing the event to accept.
// Rejected requests never reach accept.
func Handler(auth Authenticator, accept AcceptFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()

		raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}

		ev, err := auth.Authenticate(ctx, raw)
		if err != nil {
			var authErr *AuthError
			status := http.StatusUnauthorized
			reason := ReasonInvalidSignature
			if errors.As(err, &authErr) {
				status = authErr.HTTPStatusCode()
				reason = authErr.Reason
			}
			logger.LogEvent(ctx, logger.Hook, slog.LevelWarn, "webhook.rejected",
				slog.String("status", "rejected"),
				slog.String("reason", reason),
				slog.Int("http_code", status),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return echo.NewHTTPError(status, http.StatusText(status))
		}

		ctx = logger.WithExecution(ctx, ev.Data.TransactionExecutionID, ev.Data.TransactionID)
		if err := accept(ctx, ev); err != nil {
			logger.LogEvent(ctx, logger.Hook, slog.LevelError, "webhook.enqueue",
				slog.String("status", "fail"),
				slog.String("event_name", ev.EventName),
				slog.String("err", err.Error()),
			)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "queue unavailable")
		}
		logger.LogEvent(ctx, logger.Hook, slog.LevelDebug, "webhook.accepted",
			slog.String("status", "ok"),
			slog.String("event_name", ev.EventName),
		)
		return c.NoContent(http.StatusOK)
	}
}

// RateLimit caps accepted deliveries across all callers. A non-positive rps
// disables the limit.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	if rps <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !lim.Allow() {
				logger.LogEvent(c.Request().Context(), logger.Hook, slog.LevelWarn, "webhook.rate_limited",
					slog.String("status", "rate_limited"),
				)
				return echo.NewHTTPError(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}
