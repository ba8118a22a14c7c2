package helpers

import (
	"context"

	"github.com/m3rciful/tokenbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext caches ctx on c for the rest of the update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context cached on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the logging context of the update in c. The first
// call derives it from the update (rid, update, user and chat ids) and
// caches it; later calls see everything attached since.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

func extend(c tele.Context, fn func(context.Context) context.Context) context.Context {
	ctx := fn(BuildContext(c))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler names the handler serving c in every later log line.
func WithHandler(c tele.Context, handler string) context.Context {
	if handler == "" {
		return BuildContext(c)
	}
	return extend(c, func(ctx context.Context) context.Context {
		return logger.WithHandler(ctx, handler)
	})
}

// WithExecution ties the rest of the update's log lines, the handler
// summary included, to the 1Shot execution it submitted.
func WithExecution(c tele.Context, executionID, methodID string) context.Context {
	return extend(c, func(ctx context.Context) context.Context {
		return logger.WithExecution(ctx, executionID, methodID)
	})
}
