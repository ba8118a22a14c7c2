package deploy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/core/telegram/state"
	"github.com/m3rciful/tokenbot/internal/memo"
)

type fakeSubmitter struct {
	requests []Request
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, req Request) (Receipt, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return Receipt{}, f.err
	}
	return Receipt{ExecutionID: "ex-1", MethodID: "m-1"}, nil
}

const user int64 = 501

func walkToPremint(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	reply, err := e.Begin(ctx, user)
	require.NoError(t, err)
	require.Equal(t, TextAskName, reply.Text)

	steps := []struct {
		in   Input
		want string
		next string
	}{
		{Input{Text: "Moon Coin"}, TextAskTicker, string(StateTicker)},
		{Input{Text: "MOON"}, TextAskDescription, string(StateDescription)},
		{Input{Text: "A coin for the moon"}, TextAskImage, string(StateImage)},
		{Input{ImageFileID: "photo-1"}, TextAskPremint, string(StatePremint)},
	}
	for _, st := range steps {
		reply, err := e.Advance(ctx, user, st.in)
		require.NoError(t, err)
		require.Equal(t, st.want, reply.Text)
		require.Equal(t, st.next, e.StateOf(user))
	}
}

func TestHappyPathSubmitsOnce(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(nil, sub)
	walkToPremint(t, e)

	reply, err := e.Advance(context.Background(), user, Input{Text: "5"})
	require.NoError(t, err)
	require.Equal(t, Reply{
		Text:       TextDeploying,
		BackToMenu: true,
		Receipt:    Receipt{ExecutionID: "ex-1", MethodID: "m-1"},
	}, reply)
	require.False(t, e.InProgress(user))
	require.Equal(t, string(state.StateIdle), e.StateOf(user))

	require.Len(t, sub.requests, 1)
	require.Equal(t, Request{
		UserID: user,
		Token: memo.TokenInfo{
			Name:        "Moon Coin",
			Ticker:      "MOON",
			Description: "A coin for the moon",
			ImageFileID: "photo-1",
		},
		Premint: "5000000000000000000",
	}, sub.requests[0])

	_, err = e.Advance(context.Background(), user, Input{Text: "5"})
	require.ErrorIs(t, err, state.ErrNoSession)
	require.Len(t, sub.requests, 1)
}

func TestInvalidPremintReprompts(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(nil, sub)
	walkToPremint(t, e)

	for _, in := range []string{"-1", "abc", "1.5", "", "ten"} {
		reply, err := e.Advance(context.Background(), user, Input{Text: in})
		require.NoError(t, err, in)
		require.Equal(t, TextInvalidPremint, reply.Text)
		require.Equal(t, string(StatePremint), e.StateOf(user))
	}
	require.Empty(t, sub.requests)
}

func TestImageRequiresAttachment(t *testing.T) {
	e := NewEngine(nil, &fakeSubmitter{})
	ctx := context.Background()
	_, err := e.Begin(ctx, user)
	require.NoError(t, err)
	for _, text := range []string{"Moon", "MOON", "desc"} {
		_, err := e.Advance(ctx, user, Input{Text: text})
		require.NoError(t, err)
	}

	for _, text := range []string{"here is my logo", ""} {
		reply, err := e.Advance(ctx, user, Input{Text: text})
		require.NoError(t, err)
		require.Equal(t, TextInvalidImage, reply.Text)
		require.Equal(t, string(StateImage), e.StateOf(user))
	}
}

func TestEmptyTextReprompts(t *testing.T) {
	e := NewEngine(nil, &fakeSubmitter{})
	ctx := context.Background()
	_, err := e.Begin(ctx, user)
	require.NoError(t, err)

	reply, err := e.Advance(ctx, user, Input{Text: "   "})
	require.NoError(t, err)
	require.Equal(t, TextAskName, reply.Text)
	require.Equal(t, string(StateNaming), e.StateOf(user))

	reply, err = e.Advance(ctx, user, Input{ImageFileID: "photo"})
	require.NoError(t, err)
	require.Equal(t, TextAskName, reply.Text)
}

func TestCancelFromAnyState(t *testing.T) {
	ctx := context.Background()
	inputs := []Input{{Text: "Moon"}, {Text: "MOON"}, {Text: "desc"}, {ImageFileID: "photo"}}
	for n := 0; n <= len(inputs); n++ {
		sub := &fakeSubmitter{}
		e := NewEngine(nil, sub)
		_, err := e.Begin(ctx, user)
		require.NoError(t, err)
		for _, in := range inputs[:n] {
			_, err := e.Advance(ctx, user, in)
			require.NoError(t, err)
		}

		require.True(t, e.Cancel(ctx, user))
		require.False(t, e.InProgress(user))
		require.Empty(t, sub.requests)

		_, err = e.Advance(ctx, user, Input{Text: "Moon"})
		require.ErrorIs(t, err, state.ErrNoSession)

		reply, err := e.Begin(ctx, user)
		require.NoError(t, err)
		require.Equal(t, TextAskName, reply.Text)
		require.Equal(t, string(StateNaming), e.StateOf(user))
	}
	require.False(t, NewEngine(nil, nil).Cancel(ctx, user))
}

func TestBeginSupersedesOpenSession(t *testing.T) {
	sub := &fakeSubmitter{}
	e := NewEngine(nil, sub)
	walkToPremint(t, e)

	_, err := e.Begin(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, string(StateNaming), e.StateOf(user))

	for _, text := range []string{"Second", "SEC", "again"} {
		_, err := e.Advance(context.Background(), user, Input{Text: text})
		require.NoError(t, err)
	}
	_, err = e.Advance(context.Background(), user, Input{ImageFileID: "photo-2"})
	require.NoError(t, err)
	_, err = e.Advance(context.Background(), user, Input{Text: "1"})
	require.NoError(t, err)

	require.Len(t, sub.requests, 1)
	require.Equal(t, "Second", sub.requests[0].Token.Name)
	require.Equal(t, "photo-2", sub.requests[0].Token.ImageFileID)
}

func TestResetDropsSession(t *testing.T) {
	e := NewEngine(nil, &fakeSubmitter{})
	walkToPremint(t, e)
	require.True(t, e.Reset(context.Background(), user))
	require.False(t, e.InProgress(user))
	require.False(t, e.Reset(context.Background(), user))
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	e := NewEngine(nil, &fakeSubmitter{})
	ctx := context.Background()
	_, err := e.Begin(ctx, 1)
	require.NoError(t, err)
	_, err = e.Begin(ctx, 2)
	require.NoError(t, err)

	_, err = e.Advance(ctx, 1, Input{Text: "One"})
	require.NoError(t, err)
	require.Equal(t, string(StateTicker), e.StateOf(1))
	require.Equal(t, string(StateNaming), e.StateOf(2))
}

func TestSubmissionFailureEndsSession(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "no wallet", err: ErrNoWallet, want: TextNoWallet},
		{name: "lookup", err: errors.Join(ErrWalletLookup, errors.New("502")), want: TextSubmitFailed},
		{name: "execute", err: ErrExecute, want: TextSubmitFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := &fakeSubmitter{err: tc.err}
			e := NewEngine(nil, sub)
			walkToPremint(t, e)

			reply, err := e.Advance(context.Background(), user, Input{Text: "5"})
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, tc.want, reply.Text)
			require.False(t, reply.BackToMenu)
			require.False(t, e.InProgress(user))
			require.Len(t, sub.requests, 1)
		})
	}
}
