package webhook

import (
	"context"
	"strings"

	"github.com/m3rciful/tokenbot/core/telegram/format"
	"github.com/m3rciful/tokenbot/internal/memo"

	tele "gopkg.in/telebot.v4"
)

// BotSender is the part of *tele.Bot used for notifications.
type BotSender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Enqueuer runs sends asynchronously; *sender.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, action, endpoint string, run func() error) error
}

// TelegramNotifier delivers correlation results as Telegram messages.
type TelegramNotifier struct {
	bot         BotSender
	queue       Enqueuer
	explorerURL string
}

// NewTelegramNotifier builds a notifier. With a nil queue sends run inline.
func NewTelegramNotifier(bot BotSender, queue Enqueuer, explorerURL string) *TelegramNotifier {
	return &TelegramNotifier{
		bot:         bot,
		queue:       queue,
		explorerURL: strings.TrimRight(explorerURL, "/"),
	}
}

// NotifyTokenCreated sends the token card, as a photo caption when the token
// has an image.
func (n *TelegramNotifier) NotifyTokenCreated(ctx context.Context, userID int64, token memo.TokenInfo, address string) error {
	caption := TokenCreatedMessage(n.explorerURL, token, address)
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	to := tele.ChatID(userID)
	if token.ImageFileID == "" {
		return n.send(ctx, "notify.token", "sendMessage", func() error {
			_, err := n.bot.Send(to, caption, opts)
			return err
		})
	}
	photo := &tele.Photo{File: tele.File{FileID: token.ImageFileID}, Caption: caption}
	return n.send(ctx, "notify.token", "sendPhoto", func() error {
		_, err := n.bot.Send(to, photo, opts)
		return err
	})
}

// NotifyText forwards a memo note verbatim.
func (n *TelegramNotifier) NotifyText(ctx context.Context, userID int64, text string) error {
	to := tele.ChatID(userID)
	return n.send(ctx, "notify.text", "sendMessage", func() error {
		_, err := n.bot.Send(to, text)
		return err
	})
}

func (n *TelegramNotifier) send(ctx context.Context, action, endpoint string, run func() error) error {
	if n.queue == nil {
		return run()
	}
	if err := n.queue.Enqueue(ctx, action, endpoint, run); err != nil {
		return run()
	}
	return nil
}

// TokenCreatedMessage renders the HTML card announcing a deployed token.
func TokenCreatedMessage(explorerURL string, token memo.TokenInfo, address string) string {
	lines := []string{
		format.Code("New Coin Created!"),
		"",
		format.Field("Name", token.Name),
		format.Field("Ticker", token.Ticker),
		format.Field("Description", token.Description),
		"Address: " + format.Link(strings.TrimRight(explorerURL, "/")+"/token/"+address, address),
	}
	return strings.Join(lines, "\n")
}
