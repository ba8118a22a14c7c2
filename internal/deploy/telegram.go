package deploy

import (
	"errors"

	tg "github.com/m3rciful/tokenbot/core/telegram"
	"github.com/m3rciful/tokenbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	"github.com/m3rciful/tokenbot/core/telegram/keyboard"
	"github.com/m3rciful/tokenbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Handlers adapts the Engine to Telegram updates.
type Handlers struct {
	engine *Engine
}

// NewHandlers wraps e.
func NewHandlers(e *Engine) *Handlers {
	return &Handlers{engine: e}
}

// Register binds /start, /cancel and the menu buttons.
func (h *Handlers) Register(reg *tg.Registry) error {
	if err := reg.RegisterCommand("/start", commands.Public("Open the main menu", h.Start)); err != nil {
		return err
	}
	if err := reg.RegisterCommand("/cancel", commands.Public("Cancel the current deployment", h.Cancel)); err != nil {
		return err
	}
	if err := reg.RegisterCallback(CallbackStart, h.Start); err != nil {
		return err
	}
	return reg.RegisterCallback(CallbackDeploy, h.Deploy)
}

// InProgress reports whether the user is mid-conversation.
func (h *Handlers) InProgress(userID int64) bool {
	return h.engine.InProgress(userID)
}

// StateOf returns the user's conversation state.
func (h *Handlers) StateOf(userID int64) string {
	return h.engine.StateOf(userID)
}

// Start shows the main menu and drops any open session. Pressed from the
// Back button it edits the message in place.
func (h *Handlers) Start(c tele.Context) error {
	if sender := c.Sender(); sender != nil {
		h.engine.Reset(tghelpers.BuildContext(c), sender.ID)
	}
	return tghelpers.EditOrSendHTML(c, TextMenu, MenuMarkup())
}

// Deploy opens the conversation from the menu button.
func (h *Handlers) Deploy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	reply, err := h.engine.Begin(tghelpers.BuildContext(c), sender.ID)
	if err != nil {
		return err
	}
	return tghelpers.EditOrSendHTML(c, reply.Text)
}

// Cancel tears down the open session.
func (h *Handlers) Cancel(c tele.Context) error {
	if sender := c.Sender(); sender != nil {
		h.engine.Cancel(tghelpers.BuildContext(c), sender.ID)
	}
	return tghelpers.SendText(c, TextCancelled)
}

// HandleUpdate feeds a text or media message to the open session and sends
// the reply. A submission failure is returned after the user is told.
func (h *Handlers) HandleUpdate(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	reply, err := h.engine.Advance(tghelpers.BuildContext(c), sender.ID, InputFrom(c.Message()))
	if errors.Is(err, state.ErrNoSession) {
		return nil
	}
	if reply.Receipt.ExecutionID != "" {
		tghelpers.WithExecution(c, reply.Receipt.ExecutionID, reply.Receipt.MethodID)
	}
	if reply.Text != "" {
		var markup *tele.ReplyMarkup
		if reply.BackToMenu {
			markup = BackMarkup()
		}
		if sendErr := tghelpers.SendText(c, reply.Text, &tele.SendOptions{ReplyMarkup: markup}); sendErr != nil && err == nil {
			err = sendErr
		}
	}
	return err
}

// InputFrom extracts the conversation input from a message. Only photos
// count as images; documents reach the Image state without one.
func InputFrom(msg *tele.Message) Input {
	if msg == nil {
		return Input{}
	}
	in := Input{Text: msg.Text}
	if msg.Photo != nil {
		in.ImageFileID = msg.Photo.FileID
	}
	return in
}

// MenuMarkup is the main menu keyboard.
func MenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{{Text: TextDeployButton, Unique: CallbackDeploy}})
}

// BackMarkup returns to the main menu.
func BackMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{{Text: TextBackButton, Unique: CallbackStart}})
}
