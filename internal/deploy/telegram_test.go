package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/core/logger"
	tg "github.com/m3rciful/tokenbot/core/telegram"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	text   string
	markup *tele.ReplyMarkup
	edited bool
}

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	user     *tele.User
	msg      *tele.Message
	callback *tele.Callback
	store    map[string]any
	out      []sent
}

func newFakeContext(userID int64, msg *tele.Message) *fakeContext {
	return &fakeContext{
		user:  &tele.User{ID: userID},
		msg:   msg,
		store: map[string]any{},
	}
}

func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Message() *tele.Message   { return f.msg }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }
func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1, Message: f.msg, Callback: f.callback} }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }

func (f *fakeContext) Send(what any, opts ...any) error {
	f.out = append(f.out, sent{text: what.(string), markup: markupOf(opts)})
	return nil
}

func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	f.out = append(f.out, sent{text: what.(string), markup: markupOf(opts), edited: true})
	return nil
}

func markupOf(opts []any) *tele.ReplyMarkup {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so.ReplyMarkup
		}
	}
	return nil
}

func text(userID int64, s string) *fakeContext {
	return newFakeContext(userID, &tele.Message{Text: s})
}

func TestHandlersConversation(t *testing.T) {
	sub := &fakeSubmitter{}
	h := NewHandlers(NewEngine(nil, sub))

	deploy := newFakeContext(9, nil)
	deploy.callback = &tele.Callback{Data: "\f" + CallbackDeploy, Message: &tele.Message{ID: 3}}
	require.NoError(t, h.Deploy(deploy))
	require.Equal(t, []sent{{text: TextAskName, edited: true}}, deploy.out)
	require.True(t, h.InProgress(9))

	for _, s := range []string{"Moon", "MOON", "desc"} {
		require.NoError(t, h.HandleUpdate(text(9, s)))
	}
	require.Equal(t, string(StateImage), h.StateOf(9))

	doc := newFakeContext(9, &tele.Message{Document: &tele.Document{File: tele.File{FileID: "doc-1"}}})
	require.NoError(t, h.HandleUpdate(doc))
	require.Equal(t, TextInvalidImage, doc.out[0].text)

	photo := newFakeContext(9, &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "photo-1"}}})
	require.NoError(t, h.HandleUpdate(photo))
	require.Equal(t, TextAskPremint, photo.out[0].text)

	done := text(9, "12")
	require.NoError(t, h.HandleUpdate(done))
	require.Equal(t, TextDeploying, done.out[0].text)
	require.Equal(t, BackMarkup(), done.out[0].markup)
	require.False(t, h.InProgress(9))

	replies, kb := tghelpers.Replies(done)
	require.Equal(t, 1, replies)
	require.True(t, kb)
	ctx := tghelpers.BuildContext(done)
	require.Equal(t, "ex-1", logger.ExecutionIDFrom(ctx))
	require.Equal(t, "m-1", logger.MethodIDFrom(ctx))

	require.Len(t, sub.requests, 1)
	require.Equal(t, "photo-1", sub.requests[0].Token.ImageFileID)
	require.Equal(t, "12000000000000000000", sub.requests[0].Premint)
}

func TestHandlersSubmitFailureIsReported(t *testing.T) {
	sub := &fakeSubmitter{err: ErrNoWallet}
	e := NewEngine(nil, sub)
	h := NewHandlers(e)
	walkToPremint(t, e)

	c := text(user, "1")
	err := h.HandleUpdate(c)
	require.ErrorIs(t, err, ErrNoWallet)
	require.Equal(t, TextNoWallet, c.out[0].text)
	require.Nil(t, c.out[0].markup)
}

func TestHandlersStartAndCancel(t *testing.T) {
	e := NewEngine(nil, &fakeSubmitter{})
	h := NewHandlers(e)
	_, err := e.Begin(context.Background(), 5)
	require.NoError(t, err)

	start := text(5, "/start")
	require.NoError(t, h.Start(start))
	require.False(t, h.InProgress(5))
	require.Equal(t, []sent{{text: TextMenu, markup: MenuMarkup()}}, start.out)

	back := newFakeContext(5, nil)
	back.callback = &tele.Callback{Data: "\f" + CallbackStart, Message: &tele.Message{ID: 4}}
	require.NoError(t, h.Start(back))
	require.True(t, back.out[0].edited)

	_, err = e.Begin(context.Background(), 5)
	require.NoError(t, err)
	cancel := text(5, "/cancel")
	require.NoError(t, h.Cancel(cancel))
	require.False(t, h.InProgress(5))
	require.Equal(t, TextCancelled, cancel.out[0].text)

	require.NoError(t, h.HandleUpdate(text(5, "stray")))
}

func TestRegister(t *testing.T) {
	reg := tg.NewRegistry()
	h := NewHandlers(NewEngine(nil, nil))
	require.NoError(t, h.Register(reg))

	_, _, ok := reg.LookupCommand("/start")
	require.True(t, ok)
	_, _, ok = reg.LookupCommand("cancel")
	require.True(t, ok)
	require.Equal(t, []string{CallbackDeploy, CallbackStart}, reg.ListCallbacks())

	require.ErrorIs(t, h.Register(reg), tg.ErrDuplicate)
}

func TestInputFrom(t *testing.T) {
	require.Equal(t, Input{}, InputFrom(nil))
	require.Equal(t, Input{Text: "hi"}, InputFrom(&tele.Message{Text: "hi"}))
	require.Equal(t, Input{ImageFileID: "p"}, InputFrom(&tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "p"}}}))
}
