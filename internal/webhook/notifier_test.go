package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/internal/memo"

	tele "gopkg.in/telebot.v4"
)

type sentMessage struct {
	to   string
	what any
	opts []any
}

type fakeBot struct {
	sent []sentMessage
}

func (f *fakeBot) Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error) {
	f.sent = append(f.sent, sentMessage{to: to.Recipient(), what: what, opts: opts})
	return &tele.Message{}, nil
}

type fakeQueue struct {
	jobs []string
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, action, _ string, run func() error) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, action)
	return run()
}

func TestTokenCreatedMessage(t *testing.T) {
	token := memo.TokenInfo{Name: "Moon & Stars", Ticker: "MOON", Description: "<b>bold</b> claims"}
	got := TokenCreatedMessage("https://sepolia.etherscan.io/", token, "0xABC")
	want := "<code>New Coin Created!</code>\n\n" +
		"<b>Name:</b> Moon &amp; Stars\n" +
		"<b>Ticker:</b> MOON\n" +
		"<b>Description:</b> &lt;b&gt;bold&lt;/b&gt; claims\n" +
		"Address: <a href='https://sepolia.etherscan.io/token/0xABC'>0xABC</a>"
	require.Equal(t, want, got)
}

func TestNotifyTokenCreatedSendsPhoto(t *testing.T) {
	bot := &fakeBot{}
	q := &fakeQueue{}
	n := NewTelegramNotifier(bot, q, "https://sepolia.etherscan.io")

	require.NoError(t, n.NotifyTokenCreated(context.Background(), 42, moon, "0xABC"))
	require.Equal(t, []string{"notify.token"}, q.jobs)
	require.Len(t, bot.sent, 1)
	require.Equal(t, "42", bot.sent[0].to)

	photo, ok := bot.sent[0].what.(*tele.Photo)
	require.True(t, ok)
	require.Equal(t, "photo", photo.FileID)
	require.Contains(t, photo.Caption, "0xABC")
	require.Equal(t, tele.ModeHTML, bot.sent[0].opts[0].(*tele.SendOptions).ParseMode)
}

func TestNotifyTokenCreatedWithoutImage(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramNotifier(bot, nil, "https://sepolia.etherscan.io")
	token := moon
	token.ImageFileID = ""

	require.NoError(t, n.NotifyTokenCreated(context.Background(), 42, token, "0xABC"))
	text, ok := bot.sent[0].what.(string)
	require.True(t, ok)
	require.Contains(t, text, "New Coin Created!")
}

func TestNotifyTextFallsBackWhenQueueRejects(t *testing.T) {
	bot := &fakeBot{}
	n := NewTelegramNotifier(bot, &fakeQueue{err: errors.New("queue full")}, "")

	require.NoError(t, n.NotifyText(context.Background(), 7, "hello <there>"))
	require.Equal(t, []sentMessage{{to: "7", what: "hello <there>"}}, bot.sent)
}
