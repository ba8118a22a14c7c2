package middleware

import (
	"github.com/m3rciful/tokenbot/core/logger"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// StateGetter is the minimal interface required from a conversation driver.
type StateGetter interface {
	StateOf(userID int64) string
}

// State returns a middleware that only lets updates through while the
// sender's conversation is in expectedState. Other updates are dropped.
func State(mgr StateGetter, expectedState string) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			currentState := mgr.StateOf(sender.ID)
			ctx := tghelpers.BuildContext(c)
			if currentState == expectedState {
				logger.TG.LogAttrs(ctx, slog.LevelDebug, "fsm.match",
					slog.Int64("user_id", sender.ID),
					slog.String("state", currentState),
				)
				return next(c)
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "fsm.skip",
				slog.Int64("user_id", sender.ID),
				slog.String("state", currentState),
				slog.String("next_state", expectedState),
			)
			return nil
		}
	}
}
