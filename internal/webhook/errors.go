package webhook

import (
	"errors"
	"fmt"
	"net/http"
)

// Authentication failure reasons.
const (
	ReasonMalformed        = "malformed"
	ReasonMissingSignature = "missing_signature"
	ReasonMissingKey       = "missing_public_key"
	ReasonInvalidSignature = "invalid_signature"
)

// Correlation failure reasons.
const (
	ReasonMissingMemo     = "missing_memo"
	ReasonUndecodableMemo = "undecodable_memo"
	ReasonMissingLog      = "missing_log"
)

// ErrAuth matches every *AuthError.
var ErrAuth = errors.New("webhook: authentication failed")

// AuthError rejects a webhook before it reaches routing.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook: %s: %v", e.Reason, e.Err)
	}
	return "webhook: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAuth) hold for every AuthError.
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// HTTPStatusCode maps the failure to the response status. A malformed body
// is a client error; every signature problem is the same 401.
func (e *AuthError) HTTPStatusCode() int {
	if e.Reason == ReasonMalformed {
		return http.StatusBadRequest
	}
	return http.StatusUnauthorized
}

// CorrelationError means an authenticated event cannot be tied to a user.
type CorrelationError struct {
	Reason      string
	ExecutionID string
	Err         error
}

func (e *CorrelationError) Error() string {
	msg := fmt.Sprintf("webhook: correlation %s for execution %q", e.Reason, e.ExecutionID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorrelationError) Unwrap() error { return e.Err }
