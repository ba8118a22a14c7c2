package middleware

import (
	"sync"
	"time"

	"github.com/m3rciful/tokenbot/core/logger"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	"log/slog"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the refill period of one token per user.
	Interval  time.Duration
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind classifies an update for rate limiting and logging.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.MyChatMember != nil:
		return "chat_member"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that applies a token bucket per user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	var (
		limiters   = make(map[int64]*rate.Limiter)
		limitersMu sync.Mutex
	)
	limiterFor := func(userID int64) *rate.Limiter {
		limitersMu.Lock()
		defer limitersMu.Unlock()
		l, ok := limiters[userID]
		if !ok {
			l = rate.NewLimiter(rate.Every(opts.Interval), burst)
			limiters[userID] = l
		}
		return l
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			if limiterFor(user.ID).Allow() {
				return next(c)
			}

			attrs := []slog.Attr{
				slog.String("event", "tg.rate_limit"),
				slog.String("status", "rejected"),
				slog.String("op", kind),
				slog.Int64("user_id", user.ID),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelWarn, "rate limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
