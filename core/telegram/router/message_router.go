package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/tokenbot/core/telegram"
	"github.com/m3rciful/tokenbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation driver text and media updates are offered to.
type FSM interface {
	InProgress(userID int64) bool
	HandleUpdate(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownMedia tele.HandlerFunc
	// MediaGate filters media before it reaches the FSM.
	MediaGate tele.MiddlewareFunc
}

// TextRoutes builds handlers for plain text, photos and documents. Text that
// looks like a command never reaches the FSM.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := strings.TrimSpace(c.Text())
		isCommand := strings.HasPrefix(text, "/")

		if !isCommand && fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsmMgr.HandleUpdate(c)
			})
		}

		if reg != nil && isCommand {
			cmdName := strings.Fields(text)[0]
			if at := strings.IndexByte(cmdName, '@'); at > 0 {
				cmdName = cmdName[:at]
			}
			if key, cmd, ok := reg.LookupCommand(cmdName); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID) {
			fsmHandler := func(c tele.Context) error { return fsmMgr.HandleUpdate(c) }
			if opts.MediaGate != nil {
				fsmHandler = opts.MediaGate(fsmHandler)
			}
			return handleWithSummary(c, "fsm_media", start, "", "", func() error {
				return fsmHandler(c)
			})
		}
		if opts.UnknownMedia != nil {
			return handleWithSummary(c, "unexpected_media", start, "", "", func() error {
				return opts.UnknownMedia(c)
			})
		}
		logHandlerSummary(c, "unexpected_media", start, "skip", "ok", nil)
		return nil
	}

	wrappedText := middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
	wrappedMedia := middleware.RecoverMiddleware(middleware.LoggerMiddleware(mediaHandler))
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrappedText},
		{Endpoint: tele.OnPhoto, Handler: wrappedMedia},
		{Endpoint: tele.OnDocument, Handler: wrappedMedia},
	}
}
