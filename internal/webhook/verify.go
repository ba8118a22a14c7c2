package webhook

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/oneshot"
)

// KeySource looks up the contract method that emitted a webhook.
type KeySource interface {
	GetMethod(ctx context.Context, methodID string) (oneshot.ContractMethod, error)
}

// Verifier checks webhook signatures against the ed25519 public key of the
// emitting contract method. Keys are cached per method id for the process
// lifetime.
type Verifier struct {
	keys KeySource

	mu    sync.RWMutex
	cache map[string]ed25519.PublicKey
}

// NewVerifier builds a verifier resolving keys through src.
func NewVerifier(src KeySource) *Verifier {
	return &Verifier{keys: src, cache: make(map[string]ed25519.PublicKey)}
}

// Authenticate parses raw and verifies its signature. Any failure is an
// *AuthError and the event must not be routed.
func (v *Verifier) Authenticate(ctx context.Context, raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, &AuthError{Reason: ReasonMalformed, Err: err}
	}
	if strings.TrimSpace(ev.Signature) == "" {
		return Event{}, &AuthError{Reason: ReasonMissingSignature}
	}
	sig, err := base64.StdEncoding.DecodeString(ev.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return Event{}, &AuthError{Reason: ReasonInvalidSignature, Err: errors.New("signature is not a base64 ed25519 signature")}
	}

	key, err := v.publicKey(ctx, ev.Data.TransactionID)
	if err != nil {
		return Event{}, &AuthError{Reason: ReasonMissingKey, Err: err}
	}

	msg, err := CanonicalBody(raw)
	if err != nil {
		return Event{}, &AuthError{Reason: ReasonMalformed, Err: err}
	}
	if !ed25519.Verify(key, msg, sig) {
		return Event{}, &AuthError{Reason: ReasonInvalidSignature}
	}
	return ev, nil
}

func (v *Verifier) publicKey(ctx context.Context, methodID string) (ed25519.PublicKey, error) {
	if methodID == "" {
		return nil, errors.New("event has no transactionId")
	}
	v.mu.RLock()
	key, ok := v.cache[methodID]
	v.mu.RUnlock()
	if ok {
		return key, nil
	}

	if v.keys == nil {
		return nil, errors.New("no key source configured")
	}
	method, err := v.keys.GetMethod(ctx, methodID)
	if err != nil {
		return nil, fmt.Errorf("lookup method %s: %w", methodID, err)
	}
	key, err = ParsePublicKey(method.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("method %s: %w", methodID, err)
	}

	v.mu.Lock()
	v.cache[methodID] = key
	v.mu.Unlock()
	logger.LogEvent(ctx, logger.Hook, slog.LevelDebug, "key.cached",
		slog.String("method_id", methodID),
	)
	return key, nil
}

// ParsePublicKey decodes a base64 ed25519 public key.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("public key is empty")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("public key is not base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key has %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// CanonicalBody renders the signed form of a webhook body: the JSON object
// without its signature field, keys sorted at every level, no insignificant
// whitespace, non-ASCII escaped as \uXXXX. Numbers keep their original text.
func CanonicalBody(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	delete(body, "signature")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return escapeNonASCII(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func escapeNonASCII(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}
