package middleware

import (
	"context"

	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Doer runs fn on a shared queue and waits for it to finish.
type Doer interface {
	Do(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Serialize runs every downstream handler on q, so Telegram updates share
// one ordered consumer with any other work queued there.
func Serialize(q Doer) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			return q.Do(ctx, "tg."+UpdateKind(c.Update()), func(context.Context) error {
				return next(c)
			})
		}
	}
}
