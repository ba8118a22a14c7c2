package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/m3rciful/tokenbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	secretTokenHeader  = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBodyBytes = 1 << 20
)

// WebhookHandler accepts Telegram updates posted to the public webhook URL
// and hands them to bot. It always answers 200 so Telegram does not retry;
// updates with a wrong secret token or an undecodable body are dropped.
func WebhookHandler(bot *tele.Bot, secretToken string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer w.WriteHeader(http.StatusOK)

		if secretToken != "" && r.Header.Get(secretTokenHeader) != secretToken {
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "webhook update dropped",
				slog.String("event", "tg.webhook"),
				slog.String("status", "dropped"),
				slog.String("reason", "secret_token"),
			)
			return
		}

		var upd tele.Update
		body := io.LimitReader(r.Body, maxUpdateBodyBytes)
		if err := json.NewDecoder(body).Decode(&upd); err != nil {
			logger.TG.LogAttrs(ctx, slog.LevelWarn, "webhook update dropped",
				slog.String("event", "tg.webhook"),
				slog.String("status", "dropped"),
				slog.String("reason", "decode"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return
		}
		bot.ProcessUpdate(upd)
	})
}
