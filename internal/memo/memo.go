// Package memo defines the correlation payload attached to every 1Shot
// execution and echoed back verbatim in its completion webhook.
package memo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind tags what an execution was for.
type Kind int

// Known transaction kinds. Values are part of the wire format.
const (
	KindTokenCreation     Kind = 0
	KindAdminAdded        Kind = 1
	KindTokensMinted      Kind = 2
	KindTokensTransferred Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindTokenCreation:
		return "token_creation"
	case KindAdminAdded:
		return "admin_added"
	case KindTokensMinted:
		return "tokens_minted"
	case KindTokensTransferred:
		return "tokens_transferred"
	default:
		return fmt.Sprintf("kind_%d", int(k))
	}
}

var (
	// ErrEmpty is returned when decoding an empty memo string.
	ErrEmpty = errors.New("memo: empty")
	// ErrMissingField is returned when a required memo field is absent.
	ErrMissingField = errors.New("memo: missing required field")
)

// Memo is the TransactionMemo carried through an execution.
type Memo struct {
	Kind   Kind    `json:"tx_type"`
	UserID int64   `json:"associated_user_id"`
	Note   *string `json:"note_to_user"`
}

// TokenInfo is the token metadata carried in the note of a token-creation
// memo, since the conversation that collected it is gone by completion time.
type TokenInfo struct {
	Name        string `json:"name"`
	Ticker      string `json:"ticker"`
	Description string `json:"description"`
	ImageFileID string `json:"image_file_id"`
}

// NewTokenCreation builds a token-creation memo for userID carrying info.
func NewTokenCreation(userID int64, info TokenInfo) (Memo, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return Memo{}, fmt.Errorf("memo: encode token info: %w", err)
	}
	note := string(raw)
	return Memo{Kind: KindTokenCreation, UserID: userID, Note: &note}, nil
}

// Encode serializes m into the opaque string sent with an execution.
func Encode(m Memo) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("memo: encode: %w", err)
	}
	return string(raw), nil
}

// wireMemo mirrors Memo with pointers so absent required fields are detected.
type wireMemo struct {
	Kind   *Kind   `json:"tx_type"`
	UserID *int64  `json:"associated_user_id"`
	Note   *string `json:"note_to_user"`
}

// Decode parses a memo string. Missing required fields are an error; unknown
// kinds are not, they surface later as Unknown payloads.
func Decode(s string) (Memo, error) {
	if strings.TrimSpace(s) == "" {
		return Memo{}, ErrEmpty
	}
	var w wireMemo
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	if err := dec.Decode(&w); err != nil {
		return Memo{}, fmt.Errorf("memo: decode: %w", err)
	}
	if dec.More() {
		return Memo{}, errors.New("memo: decode: trailing data")
	}
	if w.Kind == nil {
		return Memo{}, fmt.Errorf("%w: tx_type", ErrMissingField)
	}
	if w.UserID == nil {
		return Memo{}, fmt.Errorf("%w: associated_user_id", ErrMissingField)
	}
	return Memo{Kind: *w.Kind, UserID: *w.UserID, Note: w.Note}, nil
}

// DecodeTokenInfo parses the token metadata carried in a note.
func DecodeTokenInfo(note string) (TokenInfo, error) {
	var info TokenInfo
	if err := json.Unmarshal([]byte(note), &info); err != nil {
		return TokenInfo{}, fmt.Errorf("memo: decode token info: %w", err)
	}
	return info, nil
}
