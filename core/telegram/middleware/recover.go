package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/m3rciful/tokenbot/core/logger"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and turns them into errors so
// the update is logged as failed instead of crashing the bot.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.LogAttrs(tghelpers.BuildContext(c), slog.LevelError, "panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return next(c)
	}
}
