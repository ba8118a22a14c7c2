package chats

import (
	"fmt"
	"strings"

	tg "github.com/m3rciful/tokenbot/core/telegram"
	"github.com/m3rciful/tokenbot/core/telegram/commands"
	"github.com/m3rciful/tokenbot/core/telegram/format"
	tghelpers "github.com/m3rciful/tokenbot/core/telegram/helpers"
	"github.com/m3rciful/tokenbot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// TextNoChats is the /chats reply when the bot belongs to no chat.
const TextNoChats = "The bot is not a member of any chat."

// Register binds the admin-only /chats command.
func (t *Tracker) Register(reg *tg.Registry) error {
	return reg.RegisterCommand("/chats", commands.Admin("List chats the bot belongs to", t.ListCommand))
}

// Route returns the my_chat_member route.
func (t *Tracker) Route() tg.Route {
	return tg.Route{Endpoint: tele.OnMyChatMember, Handler: t.HandleMyChatMember}
}

// HandleMyChatMember tracks the bot's own membership updates.
func (t *Tracker) HandleMyChatMember(c tele.Context) error {
	_, err := t.Track(tghelpers.BuildContext(c), c.ChatMember())
	return err
}

// ListCommand replies with the tracked chats.
func (t *Tracker) ListCommand(c tele.Context) error {
	list, err := t.List(tghelpers.BuildContext(c))
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, ChatList(list))
}

// ChatList renders chats one per line.
func ChatList(list []*store.Chat) string {
	if len(list) == 0 {
		return TextNoChats
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, format.Bold(fmt.Sprintf("Chats (%d)", len(list))))
	for _, ch := range list {
		line := fmt.Sprintf("%s %s %s", format.Code(fmt.Sprint(ch.ID)), format.EscapeHTML(ch.Type), format.EscapeHTML(ch.Title))
		if ch.AdminCount > 0 {
			line += fmt.Sprintf(" (%d admins)", ch.AdminCount)
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}
