// Package webhook authenticates 1Shot execution callbacks and routes them
// back to the user recorded in their memo.
package webhook

import "fmt"

// Event is an execution callback delivered to POST /1shot.
type Event struct {
	APIVersion int       `json:"apiVersion,omitempty"`
	EventName  string    `json:"eventName"`
	Timestamp  int64     `json:"timestamp,omitempty"`
	Data       EventData `json:"data"`
	Signature  string    `json:"signature"`
}

// EventData carries the execution the event reports on.
type EventData struct {
	BusinessID             string  `json:"businessId,omitempty"`
	ChainID                string  `json:"chainId,omitempty"`
	TransactionID          string  `json:"transactionId"`
	TransactionExecutionID string  `json:"transactionExecutionId"`
	Memo                   *string `json:"transactionExecutionMemo"`
	TransactionHash        string  `json:"transactionHash,omitempty"`
	Logs                   []Log   `json:"logs"`
}

// Log is a decoded on-chain log entry.
type Log struct {
	Name string `json:"name"`
	Args []any  `json:"args"`
}

// FindLog returns the last log named name.
func (d EventData) FindLog(name string) (Log, bool) {
	for i := len(d.Logs) - 1; i >= 0; i-- {
		if d.Logs[i].Name == name {
			return d.Logs[i], true
		}
	}
	return Log{}, false
}

// Arg returns the positional argument i rendered as a string.
func (l Log) Arg(i int) (string, bool) {
	if i < 0 || i >= len(l.Args) || l.Args[i] == nil {
		return "", false
	}
	switch v := l.Args[i].(type) {
	case string:
		return v, v != ""
	default:
		return fmt.Sprint(v), true
	}
}
