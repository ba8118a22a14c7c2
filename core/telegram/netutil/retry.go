package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// ShouldRetry reports whether err is a transient network failure: a
// timeout, a failed dial, a temporary DNS failure or a reset connection.
// It says nothing about whether the failed call is safe to repeat; see
// ShouldRetryRequest for that.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || notSent(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ShouldRetryRequest reports whether req may be sent again after err.
// Idempotent requests are retried on any transient failure. Others only
// when the connection was never made, since the server may already have
// acted on them.
func ShouldRetryRequest(req *http.Request, err error) bool {
	if !ShouldRetry(err) {
		return false
	}
	return Idempotent(req) || notSent(err)
}

// Idempotent follows net/http: GET, HEAD, OPTIONS and TRACE are safe to
// repeat, as is any request carrying an Idempotency-Key header.
func Idempotent(req *http.Request) bool {
	switch req.Method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return req.Header.Get("Idempotency-Key") != "" || req.Header.Get("X-Idempotency-Key") != ""
}

// notSent reports failures that happen before any byte reaches the server.
func notSent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary || dnsErr.IsNotFound
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
