package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/tokenbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10

// AllowedUpdates lists the update kinds the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query", "my_chat_member"}

// WebhookOptions declares how Telegram reaches the bot in webhook mode.
// The HTTP listener itself is owned by the application server.
type WebhookOptions struct {
	PublicURL   string
	SecretToken string
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
}

// BuildPoller returns a Telebot poller based on provided options.
// In webhook mode the poller only registers the webhook; updates arrive
// through WebhookHandler mounted on the application server.
func BuildPoller(opts PollerOptions) tele.Poller {
	runMode := strings.ToLower(strings.TrimSpace(opts.RunMode))
	if runMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			SecretToken:    opts.Webhook.SecretToken,
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.PublicURL},
		}
	}

	return &tele.LongPoller{
		Timeout:        longPollTimeout(opts.LongPollTimeoutSeconds),
		AllowedUpdates: AllowedUpdates,
	}
}

func longPollTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = defaultLongPollTimeout
	}
	return time.Duration(seconds) * time.Second
}
