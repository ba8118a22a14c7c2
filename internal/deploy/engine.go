// Package deploy runs the token deployment conversation and submits the
// resulting execution to 1Shot.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/core/telegram/state"
	"github.com/m3rciful/tokenbot/internal/memo"
)

// Conversation states. The main menu is the absence of a session.
const (
	StateNaming      state.State = "naming"
	StateTicker      state.State = "ticker"
	StateDescription state.State = "description"
	StateImage       state.State = "image"
	StatePremint     state.State = "premint"
	StateDone        state.State = "done"
)

// Session field keys.
const (
	FieldName        = "name"
	FieldTicker      = "ticker"
	FieldDescription = "description"
	FieldImage       = "image_file_id"
)

// Input is one user message offered to the conversation.
type Input struct {
	Text string
	// ImageFileID is set when the message carries a photo.
	ImageFileID string
}

// Reply is what the conversation answers with.
type Reply struct {
	Text string
	// BackToMenu attaches the button returning to the main menu.
	BackToMenu bool
	// Receipt is set once the dialogue's submission was accepted.
	Receipt Receipt
}

// Request is a completed deployment ready for submission.
type Request struct {
	UserID int64
	Token  memo.TokenInfo
	// Premint is the amount in base units.
	Premint string
}

// Receipt acknowledges a submitted deployment.
type Receipt struct {
	ExecutionID string
	MethodID    string
}

// Submitter issues the deployment execution.
type Submitter interface {
	Submit(ctx context.Context, req Request) (Receipt, error)
}

// Engine owns the per-user deployment sessions.
type Engine struct {
	machine   *state.Machine[Input, Reply]
	submitter Submitter
}

// NewEngine builds an engine over store. A nil store keeps sessions in memory.
func NewEngine(store state.Store, submitter Submitter) *Engine {
	e := &Engine{submitter: submitter}
	e.machine = state.NewMachine(store, map[state.State]state.Step[Input, Reply]{
		StateNaming:      textStep(FieldName, StateTicker, TextAskName, TextAskTicker),
		StateTicker:      textStep(FieldTicker, StateDescription, TextAskTicker, TextAskDescription),
		StateDescription: textStep(FieldDescription, StateImage, TextAskDescription, TextAskImage),
		StateImage:       imageStep,
		StatePremint:     e.premintStep,
	}, StateDone)
	return e
}

// Begin opens a deployment session at StateNaming, replacing any open one.
func (e *Engine) Begin(ctx context.Context, userID int64) (Reply, error) {
	superseded, err := e.machine.Begin(userID, StateNaming)
	if err != nil {
		return Reply{}, err
	}
	logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "deploy.begin",
		slog.Int64("user_id", userID),
		slog.Bool("superseded", superseded),
	)
	return Reply{Text: TextAskName}, nil
}

// Reset discards any open session, returning the user to the main menu.
func (e *Engine) Reset(ctx context.Context, userID int64) bool {
	had := e.machine.Cancel(userID)
	if had {
		logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "deploy.reset",
			slog.Int64("user_id", userID),
		)
	}
	return had
}

// Cancel tears down the open session without submitting.
func (e *Engine) Cancel(ctx context.Context, userID int64) bool {
	had := e.machine.Cancel(userID)
	logger.LogEvent(ctx, logger.Deploy, slog.LevelInfo, "deploy.cancel",
		slog.Int64("user_id", userID),
		slog.Bool("had_session", had),
	)
	return had
}

// InProgress reports whether the user has an open session.
func (e *Engine) InProgress(userID int64) bool {
	return e.machine.Active(userID)
}

// StateOf returns the user's current state name.
func (e *Engine) StateOf(userID int64) string {
	return string(e.machine.Current(userID))
}

// Advance feeds one message to the user's session. Validation failures are
// answered with a re-prompt and never returned as errors; submission
// failures end the session and are returned with the failure reply.
func (e *Engine) Advance(ctx context.Context, userID int64, in Input) (Reply, error) {
	from := e.machine.Current(userID)
	next, reply, err := e.machine.Advance(context.WithValue(ctx, userKey{}, userID), userID, in)
	if errors.Is(err, state.ErrNoSession) {
		return Reply{}, err
	}
	level := slog.LevelDebug
	if next == StateDone {
		level = slog.LevelInfo
	}
	attrs := []slog.Attr{
		slog.Int64("user_id", userID),
		slog.String("state", string(from)),
		slog.String("next_state", string(next)),
	}
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.LogEvent(ctx, logger.Deploy, level, "deploy.step", attrs...)
	return reply, err
}

type userKey struct{}

func sessionUser(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey{}).(int64)
	return id
}

func textStep(field string, next state.State, again, prompt string) state.Step[Input, Reply] {
	return func(_ context.Context, s *state.Session, in Input) (state.State, Reply, error) {
		if strings.TrimSpace(in.Text) == "" {
			return s.State, Reply{Text: again}, nil
		}
		s.Fields[field] = in.Text
		return next, Reply{Text: prompt}, nil
	}
}

func imageStep(_ context.Context, s *state.Session, in Input) (state.State, Reply, error) {
	if in.ImageFileID == "" {
		return StateImage, Reply{Text: TextInvalidImage}, nil
	}
	s.Fields[FieldImage] = in.ImageFileID
	return StatePremint, Reply{Text: TextAskPremint}, nil
}

func (e *Engine) premintStep(ctx context.Context, s *state.Session, in Input) (state.State, Reply, error) {
	premint, err := ScalePremint(in.Text)
	if err != nil {
		return StatePremint, Reply{Text: TextInvalidPremint}, nil
	}

	req := Request{
		UserID: sessionUser(ctx),
		Token: memo.TokenInfo{
			Name:        s.Fields[FieldName],
			Ticker:      s.Fields[FieldTicker],
			Description: s.Fields[FieldDescription],
			ImageFileID: s.Fields[FieldImage],
		},
		Premint: premint,
	}
	if e.submitter == nil {
		return StateDone, Reply{Text: TextSubmitFailed}, errors.New("deploy: no submitter configured")
	}
	receipt, err := e.submitter.Submit(ctx, req)
	if err != nil {
		text := TextSubmitFailed
		if errors.Is(err, ErrNoWallet) {
			text = TextNoWallet
		}
		return StateDone, Reply{Text: text}, fmt.Errorf("deploy: submit for user %d: %w", req.UserID, err)
	}
	logger.LogEvent(logger.WithExecution(ctx, receipt.ExecutionID, receipt.MethodID), logger.Deploy,
		slog.LevelInfo, "deploy.submitted",
		slog.Int64("user_id", req.UserID),
		slog.String("ticker", req.Token.Ticker),
	)
	return StateDone, Reply{Text: TextDeploying, BackToMenu: true, Receipt: receipt}, nil
}
