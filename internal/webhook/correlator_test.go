package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/internal/memo"
	"github.com/m3rciful/tokenbot/internal/store"
)

type tokenNotice struct {
	userID  int64
	token   memo.TokenInfo
	address string
}

type textNotice struct {
	userID int64
	text   string
}

type fakeNotifier struct {
	tokens []tokenNotice
	texts  []textNotice
	err    error
}

func (f *fakeNotifier) NotifyTokenCreated(_ context.Context, userID int64, token memo.TokenInfo, address string) error {
	f.tokens = append(f.tokens, tokenNotice{userID, token, address})
	return f.err
}

func (f *fakeNotifier) NotifyText(_ context.Context, userID int64, text string) error {
	f.texts = append(f.texts, textNotice{userID, text})
	return f.err
}

var moon = memo.TokenInfo{Name: "Moon", Ticker: "MOON", Description: "desc", ImageFileID: "photo"}

func encoded(t *testing.T, m memo.Memo) *string {
	t.Helper()
	s, err := memo.Encode(m)
	require.NoError(t, err)
	return &s
}

func tokenMemo(t *testing.T, userID int64) *string {
	t.Helper()
	m, err := memo.NewTokenCreation(userID, moon)
	require.NoError(t, err)
	return encoded(t, m)
}

func successEvent(memoText *string, logs ...Log) Event {
	return Event{
		EventName: DefaultSuccessEvent,
		Data: EventData{
			TransactionID:          "m-1",
			TransactionExecutionID: "ex-1",
			Memo:                   memoText,
			Logs:                   logs,
		},
	}
}

func TestTokenCreationNotifiesOnce(t *testing.T) {
	n := &fakeNotifier{}
	ledger := store.NewMemory()
	require.NoError(t, ledger.CreateExecution(context.Background(), &store.Execution{ID: "ex-1", Status: store.ExecutionSubmitted}))
	c := NewCorrelator("", n, ledger)

	ev := successEvent(tokenMemo(t, 42),
		Log{Name: "Transfer", Args: []any{"0x0"}},
		Log{Name: TokenCreatedLog, Args: []any{"0xABC"}},
	)
	require.NoError(t, c.Route(context.Background(), ev))
	require.Equal(t, []tokenNotice{{userID: 42, token: moon, address: "0xABC"}}, n.tokens)
	require.Empty(t, n.texts)

	ex, err := ledger.GetExecution(context.Background(), "ex-1")
	require.NoError(t, err)
	require.Equal(t, store.ExecutionSucceeded, ex.Status)
	require.Equal(t, "0xABC", ex.ContractAddress)
}

func TestLastTokenCreatedLogWins(t *testing.T) {
	n := &fakeNotifier{}
	c := NewCorrelator("", n, nil)

	ev := successEvent(tokenMemo(t, 42),
		Log{Name: TokenCreatedLog, Args: []any{"0xFIRST"}},
		Log{Name: "Transfer", Args: []any{"0x0"}},
		Log{Name: TokenCreatedLog, Args: []any{"0xLAST"}},
	)
	require.NoError(t, c.Route(context.Background(), ev))
	require.Len(t, n.tokens, 1)
	require.Equal(t, "0xLAST", n.tokens[0].address)
}

func TestOtherEventNamesAreIgnored(t *testing.T) {
	n := &fakeNotifier{}
	c := NewCorrelator(DefaultSuccessEvent, n, nil)
	ev := successEvent(tokenMemo(t, 1), Log{Name: TokenCreatedLog, Args: []any{"0xABC"}})
	ev.EventName = "TransactionExecutionFailure"

	require.NoError(t, c.Route(context.Background(), ev))
	require.Empty(t, n.tokens)
	require.Empty(t, n.texts)
}

func TestCorrelationFailures(t *testing.T) {
	empty := ""
	garbage := "{not json"
	noNote := memo.Memo{Kind: memo.KindTokenCreation, UserID: 3}

	cases := []struct {
		name   string
		ev     Event
		reason string
	}{
		{name: "absent memo", ev: successEvent(nil), reason: ReasonMissingMemo},
		{name: "empty memo", ev: successEvent(&empty), reason: ReasonMissingMemo},
		{name: "undecodable memo", ev: successEvent(&garbage), reason: ReasonUndecodableMemo},
		{name: "token memo without info", ev: successEvent(encoded(t, noNote)), reason: ReasonUndecodableMemo},
		{name: "no TokenCreated log", ev: successEvent(tokenMemo(t, 3), Log{Name: "Transfer"}), reason: ReasonMissingLog},
		{name: "TokenCreated without args", ev: successEvent(tokenMemo(t, 3), Log{Name: TokenCreatedLog}), reason: ReasonMissingLog},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &fakeNotifier{}
			err := NewCorrelator("", n, nil).Route(context.Background(), tc.ev)
			var corrErr *CorrelationError
			require.True(t, errors.As(err, &corrErr))
			require.Equal(t, tc.reason, corrErr.Reason)
			require.Equal(t, "ex-1", corrErr.ExecutionID)
			require.Empty(t, n.tokens)
			require.Empty(t, n.texts)
		})
	}
}

func TestNoteKindsForwardVerbatim(t *testing.T) {
	note := "You received 5 <MOON>"
	for _, kind := range []memo.Kind{memo.KindAdminAdded, memo.KindTokensMinted, memo.KindTokensTransferred} {
		n := &fakeNotifier{}
		ev := successEvent(encoded(t, memo.Memo{Kind: kind, UserID: 8, Note: &note}))
		require.NoError(t, NewCorrelator("", n, nil).Route(context.Background(), ev))
		require.Equal(t, []textNotice{{userID: 8, text: note}}, n.texts, kind.String())
	}

	n := &fakeNotifier{}
	ev := successEvent(encoded(t, memo.Memo{Kind: memo.KindTokensTransferred, UserID: 8}))
	require.NoError(t, NewCorrelator("", n, nil).Route(context.Background(), ev))
	require.Empty(t, n.texts)
}

func TestUnknownKindIsLoggedNotFatal(t *testing.T) {
	n := &fakeNotifier{}
	ev := successEvent(encoded(t, memo.Memo{Kind: memo.Kind(42), UserID: 8}))
	require.NoError(t, NewCorrelator("", n, nil).Route(context.Background(), ev))
	require.Empty(t, n.tokens)
	require.Empty(t, n.texts)
}

func TestDuplicateDeliveriesNotifyTwice(t *testing.T) {
	n := &fakeNotifier{}
	c := NewCorrelator("", n, store.NewMemory())
	ev := successEvent(tokenMemo(t, 42), Log{Name: TokenCreatedLog, Args: []any{"0xABC"}})

	require.NoError(t, c.Route(context.Background(), ev))
	require.NoError(t, c.Route(context.Background(), ev))
	require.Len(t, n.tokens, 2)
}

func TestNotifierErrorPropagates(t *testing.T) {
	n := &fakeNotifier{err: errors.New("telegram down")}
	ev := successEvent(tokenMemo(t, 42), Log{Name: TokenCreatedLog, Args: []any{"0xABC"}})
	require.EqualError(t, NewCorrelator("", n, nil).Route(context.Background(), ev), "telegram down")
}
