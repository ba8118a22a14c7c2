package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example"}, "dns"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{"client error", fmt.Errorf("wrap: %w", statusErr(404)), "http_4xx"},
		{"server error", statusErr(502), "http_5xx"},
		{"plain", errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestKindStatusHook(t *testing.T) {
	hook := func(error) int { return 429 }
	require.Equal(t, "http_4xx", Kind(errors.New("flood"), hook))
	require.Equal(t, "http_5xx", Kind(statusErr(500), hook))
}

// headerTimeout mimics the error net/http returns on ResponseHeaderTimeout:
// the request was written and the server may have acted on it.
type headerTimeout struct{}

func (headerTimeout) Error() string   { return "net/http: timeout awaiting response headers" }
func (headerTimeout) Timeout() bool   { return true }
func (headerTimeout) Temporary() bool { return true }

func TestShouldRetryRequest(t *testing.T) {
	get, _ := http.NewRequest(http.MethodGet, "https://api.example/methods", nil)
	post, _ := http.NewRequest(http.MethodPost, "https://api.example/methods/m-1/execute", strings.NewReader("{}"))
	keyed, _ := http.NewRequest(http.MethodPost, "https://api.example/methods/m-1/execute", strings.NewReader("{}"))
	keyed.Header.Set("Idempotency-Key", "k-1")

	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	reset := &net.OpError{Op: "read", Err: syscall.ECONNRESET}

	cases := []struct {
		name string
		req  *http.Request
		err  error
		want bool
	}{
		{"get after header timeout", get, headerTimeout{}, true},
		{"get after reset", get, reset, true},
		{"post after header timeout", post, headerTimeout{}, false},
		{"post after reset", post, reset, false},
		{"post after failed dial", post, dial, true},
		{"post after dns failure", post, &net.DNSError{Err: "no such host", IsNotFound: true}, true},
		{"keyed post after header timeout", keyed, headerTimeout{}, true},
		{"get after cancel", get, context.Canceled, false},
		{"get after plain error", get, errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ShouldRetryRequest(tc.req, tc.err))
		})
	}
}

type scriptedTransport struct {
	errs  []error
	calls int
	seen  []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		s.seen = append(s.seen, string(raw))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportNeverRepeatsDeliveredPost(t *testing.T) {
	base := &scriptedTransport{errs: []error{headerTimeout{}, headerTimeout{}}}
	rt := &RetryTransport{Base: base, MaxRetries: 3}

	req, _ := http.NewRequest(http.MethodPost, "https://api.example/methods/m-1/execute", strings.NewReader(`{"memo":"x"}`))
	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	require.Equal(t, 1, base.calls)
}

func TestRetryTransportReplaysUnsentPost(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	base := &scriptedTransport{errs: []error{dial}}
	rt := &RetryTransport{Base: base, MaxRetries: 3}

	req, _ := http.NewRequest(http.MethodPost, "https://api.example/token", strings.NewReader("grant_type=client_credentials"))
	res, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 2, base.calls)
	require.Equal(t, []string{"grant_type=client_credentials", "grant_type=client_credentials"}, base.seen)
}

func TestRetryTransportRetriesGet(t *testing.T) {
	base := &scriptedTransport{errs: []error{headerTimeout{}, headerTimeout{}}}
	rt := &RetryTransport{Base: base, MaxRetries: 2}

	req, _ := http.NewRequest(http.MethodGet, "https://api.example/methods", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, 3, base.calls)

	base = &scriptedTransport{errs: []error{headerTimeout{}}}
	rt = &RetryTransport{Base: base}
	_, err = rt.RoundTrip(req)
	require.Error(t, err, "zero retries sends once")
	require.Equal(t, 1, base.calls)
}
