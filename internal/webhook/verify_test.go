package webhook

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tokenbot/internal/oneshot"
)

type fakeKeys struct {
	keys  map[string]string
	err   error
	calls int
}

func (f *fakeKeys) GetMethod(_ context.Context, id string) (oneshot.ContractMethod, error) {
	f.calls++
	if f.err != nil {
		return oneshot.ContractMethod{}, f.err
	}
	return oneshot.ContractMethod{ID: id, PublicKey: f.keys[id]}, nil
}

type signer struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return signer{pub: pub, priv: priv}
}

func (s signer) encodedKey() string {
	return base64.StdEncoding.EncodeToString(s.pub)
}

// sign adds a signature field computed over the canonical form of body.
func (s signer) sign(t *testing.T, body map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	msg, err := CanonicalBody(raw)
	require.NoError(t, err)
	body["signature"] = base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, msg))
	signed, err := json.Marshal(body)
	require.NoError(t, err)
	return signed
}

func eventBody(memoText any) map[string]any {
	return map[string]any{
		"apiVersion": 0,
		"eventName":  DefaultSuccessEvent,
		"timestamp":  1717171717,
		"data": map[string]any{
			"transactionId":            "m-1",
			"transactionExecutionId":   "ex-1",
			"transactionExecutionMemo": memoText,
			"logs": []any{
				map[string]any{"name": "Transfer", "args": []any{"0x0", "0x1", "5"}},
				map[string]any{"name": TokenCreatedLog, "args": []any{"0xABC123"}},
			},
		},
	}
}

func TestCanonicalBody(t *testing.T) {
	raw := []byte(`{"signature":"zzz","b":{"y":1.50,"x":"<é>"},"a":[3, "😀"]}`)
	got, err := CanonicalBody(raw)
	require.NoError(t, err)
	require.Equal(t, `{"a":[3,"\ud83d\ude00"],"b":{"x":"<\u00e9>","y":1.50}}`, string(got))

	_, err = CanonicalBody([]byte(`[1,2]`))
	require.Error(t, err)
}

func TestAuthenticateAcceptsValidSignature(t *testing.T) {
	s := newSigner(t)
	keys := &fakeKeys{keys: map[string]string{"m-1": s.encodedKey()}}
	v := NewVerifier(keys)

	raw := s.sign(t, eventBody(`{"tx_type":0,"associated_user_id":5,"note_to_user":null}`))
	ev, err := v.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, DefaultSuccessEvent, ev.EventName)
	require.Equal(t, "ex-1", ev.Data.TransactionExecutionID)
	require.NotNil(t, ev.Data.Memo)

	_, err = v.Authenticate(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 1, keys.calls, "public key is cached per method")
}

func TestAuthenticateRejects(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	valid := s.sign(t, eventBody("memo"))

	tampered := map[string]any{}
	require.NoError(t, json.Unmarshal(valid, &tampered))
	tampered["eventName"] = "SomethingElse"
	tamperedRaw, err := json.Marshal(tampered)
	require.NoError(t, err)

	unsigned, err := json.Marshal(eventBody("memo"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		keys   *fakeKeys
		raw    []byte
		reason string
	}{
		{name: "malformed", keys: &fakeKeys{}, raw: []byte(`{nope`), reason: ReasonMalformed},
		{name: "missing signature", keys: &fakeKeys{}, raw: unsigned, reason: ReasonMissingSignature},
		{name: "missing key", keys: &fakeKeys{keys: map[string]string{}}, raw: valid, reason: ReasonMissingKey},
		{name: "key lookup fails", keys: &fakeKeys{err: errors.New("503")}, raw: valid, reason: ReasonMissingKey},
		{name: "wrong key", keys: &fakeKeys{keys: map[string]string{"m-1": other.encodedKey()}}, raw: valid, reason: ReasonInvalidSignature},
		{name: "tampered body", keys: &fakeKeys{keys: map[string]string{"m-1": s.encodedKey()}}, raw: tamperedRaw, reason: ReasonInvalidSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVerifier(tc.keys).Authenticate(context.Background(), tc.raw)
			require.ErrorIs(t, err, ErrAuth)
			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			require.Equal(t, tc.reason, authErr.Reason)
		})
	}
}

func TestParsePublicKey(t *testing.T) {
	s := newSigner(t)
	key, err := ParsePublicKey(" " + s.encodedKey() + " ")
	require.NoError(t, err)
	require.Equal(t, s.pub, key)

	for _, bad := range []string{"", "!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		_, err := ParsePublicKey(bad)
		require.Error(t, err, bad)
	}
}
