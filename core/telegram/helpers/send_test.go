package helpers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	store map[string]any

	mu   sync.Mutex
	sent []any
}

func newStub() *stubContext {
	return &stubContext{store: map[string]any{}}
}

func (s *stubContext) Get(key string) any       { return s.store[key] }
func (s *stubContext) Set(key string, v any)    { s.store[key] = v }
func (s *stubContext) Update() tele.Update      { return tele.Update{ID: 7} }
func (s *stubContext) Sender() *tele.User       { return &tele.User{ID: 42} }
func (s *stubContext) Chat() *tele.Chat         { return &tele.Chat{ID: 42, Type: tele.ChatPrivate} }
func (s *stubContext) Callback() *tele.Callback { return nil }
func (s *stubContext) Send(what any, _ ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, what)
	return nil
}

func (s *stubContext) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestRepliesCountedInline(t *testing.T) {
	c := newStub()
	n, kb := Replies(c)
	require.Zero(t, n)
	require.False(t, kb)

	require.NoError(t, SendText(c, "plain"))
	n, kb = Replies(c)
	require.Equal(t, 1, n)
	require.False(t, kb)

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "Back", Unique: "start"}}}}
	require.NoError(t, SendHTML(c, "<b>menu</b>", markup))
	n, kb = Replies(c)
	require.Equal(t, 2, n)
	require.True(t, kb)
	require.Equal(t, 2, c.sentCount())
}

func TestRepliesCountedBeforeDispatch(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(t.Context(), "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	c := newStub()
	require.NoError(t, SendText(c, "queued"))
	n, _ := Replies(c)
	require.Equal(t, 1, n, "the handler summary sees the reply before the worker sends it")
	require.Zero(t, c.sentCount())

	close(release)
	d.Close()
	require.Equal(t, 1, c.sentCount())
}

func TestWithExecutionReachesLaterLogs(t *testing.T) {
	c := newStub()
	WithHandler(c, "fsm")
	WithExecution(c, "ex-9", "m-2")

	ctx := BuildContext(c)
	require.Equal(t, "fsm", logger.HandlerFrom(ctx))
	require.Equal(t, "ex-9", logger.ExecutionIDFrom(ctx))
	require.Equal(t, "m-2", logger.MethodIDFrom(ctx))
	require.Equal(t, int64(42), logger.UserIDFrom(ctx))
	require.Equal(t, "7:42:42", logger.RIDFrom(ctx))
}
