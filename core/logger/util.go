package logger

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status maps a handler or send result onto the status vocabulary in
// schema.go. Cancellation is reported apart from failure so shutdown
// does not read as a wave of errors.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "fail"
	}
}

// Took is RoundMS(time.Since(start)).
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds to the millisecond; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins the first limit non-blank values and reports
// whether any were left out.
func SummarizeStrings(values []string, limit int) (string, bool) {
	kept := make([]string, 0, min(len(values), max(limit, 0)))
	rest := 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if len(kept) < limit {
			kept = append(kept, v)
			continue
		}
		rest++
	}
	return strings.Join(kept, ", "), rest > 0
}
