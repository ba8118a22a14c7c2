package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
)

// StatusCoder is implemented by API errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// Kind names the failure class of err for logs: timeout, dns, dial, tls,
// http_4xx, http_5xx or unknown. Statuses come from StatusCoder errors or
// from the optional statusOf hook.
func Kind(err error, statusOf ...func(error) int) string {
	if err == nil {
		return ""
	}
	if kind := networkKind(err); kind != "" {
		return kind
	}

	status := 0
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.HTTPStatusCode()
	}
	for _, fn := range statusOf {
		if status != 0 || fn == nil {
			break
		}
		status = fn(err)
	}
	switch {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return "unknown"
}

func networkKind(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}

	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return "tls"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}
	return ""
}
