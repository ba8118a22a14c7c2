package netutil

import (
	"net/http"
	"time"
)

// RetryTransport retries requests that fail with transient network errors.
// Non-idempotent requests are retried only when they never left the
// client, and bodies are replayed through GetBody.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.MaxRetries; attempt++ {
		if !ShouldRetryRequest(req, err) {
			break
		}
		retry := req.Clone(req.Context())
		if req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				break
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			retry.Body = body
		}

		if delay := t.Backoff * time.Duration(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		resp, err = base.RoundTrip(retry)
	}
	return resp, err
}
