package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, or an open conversation.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// Hints is a FallbackProvider that answers with fixed texts. Empty texts
// make the matching handler silent.
type Hints struct {
	Text     string
	Media    string
	Callback string
}

// UnknownText replies with the text hint.
func (h Hints) UnknownText() tele.HandlerFunc {
	return reply(h.Text)
}

// UnknownMedia replies with the media hint.
func (h Hints) UnknownMedia() tele.HandlerFunc {
	return reply(h.Media)
}

// UnknownCallback answers the callback query with the callback hint.
func (h Hints) UnknownCallback() tele.HandlerFunc {
	text := h.Callback
	return func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		return c.Respond(&tele.CallbackResponse{Text: text})
	}
}

func reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if text == "" || c.Chat() == nil {
			return nil
		}
		return c.Send(text)
	}
}
