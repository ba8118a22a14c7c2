package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/tokenbot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 5 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// ClientOptions tunes BuildHTTPClient. Zero values fall back to defaults.
type ClientOptions struct {
	// ResponseTimeout bounds the wait for response headers. Long polling
	// needs it above the poll timeout.
	ResponseTimeout time.Duration
	Timeout         time.Duration
	// MaxRetries bounds transport-level retries; a negative value disables
	// them. Non-idempotent requests are only retried when they never
	// reached the server.
	MaxRetries   int
	RetryBackoff time.Duration
}

// BuildHTTPClient returns an HTTP client with dial/TLS timeouts and retries on
// transient network failures. It serves both the Telegram and 1Shot APIs;
// a POST that timed out waiting for its response is never sent twice.
func BuildHTTPClient(opts ...ClientOptions) *http.Client {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = defaultResponseTimeout
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultClientTimeout
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = defaultRetryAttempts
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: o.ResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: o.Timeout,
		Transport: &netutil.RetryTransport{
			Base:       transport,
			MaxRetries: o.MaxRetries,
			Backoff:    o.RetryBackoff,
		},
	}
}
