package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/memo"
	"github.com/m3rciful/tokenbot/internal/store"
)

// DefaultSuccessEvent is the event name of a successful execution.
const DefaultSuccessEvent = "TransactionExecutionSuccess"

// TokenCreatedLog is the log the deployer contract emits for a new token.
const TokenCreatedLog = "TokenCreated"

// Notifier delivers correlated results to users.
type Notifier interface {
	NotifyTokenCreated(ctx context.Context, userID int64, token memo.TokenInfo, address string) error
	NotifyText(ctx context.Context, userID int64, text string) error
}

// Correlator routes authenticated events by the kind in their memo. It keeps
// no state between events, so redelivered events notify again.
type Correlator struct {
	successEvent string
	notifier     Notifier
	ledger       store.ExecutionStore
}

// NewCorrelator builds a correlator. ledger may be nil.
func NewCorrelator(successEvent string, notifier Notifier, ledger store.ExecutionStore) *Correlator {
	if strings.TrimSpace(successEvent) == "" {
		successEvent = DefaultSuccessEvent
	}
	return &Correlator{successEvent: successEvent, notifier: notifier, ledger: ledger}
}

// Route handles one event. Events with another name are ignored. Correlation
// failures are logged and returned; nothing is sent to any user for them.
func (c *Correlator) Route(ctx context.Context, ev Event) error {
	ctx = logger.WithExecution(ctx, ev.Data.TransactionExecutionID, ev.Data.TransactionID)
	if ev.EventName != c.successEvent {
		logger.LogEvent(ctx, logger.Hook, slog.LevelDebug, "correlate",
			slog.String("outcome", "ignored"),
			slog.String("event_name", ev.EventName),
		)
		return nil
	}

	err := c.route(ctx, ev)
	if err != nil {
		attrs := []slog.Attr{
			slog.String("outcome", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		}
		var corrErr *CorrelationError
		if errors.As(err, &corrErr) {
			attrs = append(attrs, slog.String("reason", corrErr.Reason))
		}
		logger.LogEvent(ctx, logger.Hook, slog.LevelError, "correlate", attrs...)
	}
	return err
}

func (c *Correlator) route(ctx context.Context, ev Event) error {
	execID := ev.Data.TransactionExecutionID
	if ev.Data.Memo == nil || strings.TrimSpace(*ev.Data.Memo) == "" {
		return &CorrelationError{Reason: ReasonMissingMemo, ExecutionID: execID}
	}
	m, err := memo.Decode(*ev.Data.Memo)
	if err != nil {
		return &CorrelationError{Reason: ReasonUndecodableMemo, ExecutionID: execID, Err: err}
	}
	payload, err := m.Payload()
	if err != nil {
		return &CorrelationError{Reason: ReasonUndecodableMemo, ExecutionID: execID, Err: err}
	}
	return payload.Accept(&dispatch{c: c, ctx: ctx, ev: ev, kind: m.Kind})
}

// dispatch is the memo.Visitor bound to one event.
type dispatch struct {
	c    *Correlator
	ctx  context.Context
	ev   Event
	kind memo.Kind
}

func (d *dispatch) VisitTokenCreation(p memo.TokenCreation) error {
	log, ok := d.ev.Data.FindLog(TokenCreatedLog)
	if !ok {
		return &CorrelationError{Reason: ReasonMissingLog, ExecutionID: d.ev.Data.TransactionExecutionID}
	}
	address, ok := log.Arg(0)
	if !ok {
		return &CorrelationError{
			Reason:      ReasonMissingLog,
			ExecutionID: d.ev.Data.TransactionExecutionID,
			Err:         errors.New("TokenCreated log has no address argument"),
		}
	}
	if err := d.c.notifier.NotifyTokenCreated(d.ctx, p.UserID, p.Token, address); err != nil {
		return err
	}
	d.notified(p.UserID)
	d.record(address)
	return nil
}

func (d *dispatch) VisitAdminAdded(p memo.AdminAdded) error {
	return d.forward(p.Notice)
}

func (d *dispatch) VisitTokensMinted(p memo.TokensMinted) error {
	return d.forward(p.Notice)
}

func (d *dispatch) VisitTokensTransferred(p memo.TokensTransferred) error {
	return d.forward(p.Notice)
}

func (d *dispatch) VisitUnknown(p memo.Unknown) error {
	logger.LogEvent(d.ctx, logger.Hook, slog.LevelWarn, "correlate",
		slog.String("outcome", "ignored"),
		slog.String("reason", "unhandled_kind"),
		slog.String("kind", p.Kind.String()),
		slog.Int64("user_id", p.UserID),
	)
	return nil
}

func (d *dispatch) forward(n memo.Notice) error {
	text, ok := n.Text()
	if !ok {
		logger.LogEvent(d.ctx, logger.Hook, slog.LevelInfo, "correlate",
			slog.String("outcome", "ignored"),
			slog.String("reason", "no_note"),
			slog.String("kind", d.kind.String()),
			slog.Int64("user_id", n.UserID),
		)
		d.record("")
		return nil
	}
	if err := d.c.notifier.NotifyText(d.ctx, n.UserID, text); err != nil {
		return err
	}
	d.notified(n.UserID)
	d.record("")
	return nil
}

func (d *dispatch) notified(userID int64) {
	logger.LogEvent(d.ctx, logger.Hook, slog.LevelInfo, "correlate",
		slog.String("outcome", "notified"),
		slog.String("kind", d.kind.String()),
		slog.Int64("user_id", userID),
	)
}

// record marks the ledger entry succeeded. A missing entry is expected for
// executions submitted before a restart.
func (d *dispatch) record(address string) {
	if d.c.ledger == nil || d.ev.Data.TransactionExecutionID == "" {
		return
	}
	err := d.c.ledger.UpdateExecution(d.ctx, store.UpdateExecution{
		ID:              d.ev.Data.TransactionExecutionID,
		Status:          store.ExecutionSucceeded,
		ContractAddress: address,
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		logger.LogEvent(d.ctx, logger.Hook, slog.LevelDebug, "ledger.update",
			slog.String("status", "skip"),
			slog.String("reason", "not_found"),
		)
	default:
		logger.LogEvent(d.ctx, logger.Hook, slog.LevelWarn, "ledger.update",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
