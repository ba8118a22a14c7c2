package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// AdminOnly commands are hidden from the menu and reject other senders.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Public declares a command listed in the bot menu.
func Public(description string, h tele.HandlerFunc, aliases ...string) Command {
	return Command{Handler: h, Description: description, Aliases: aliases}
}

// Admin declares a command only the configured admin may run.
func Admin(description string, h tele.HandlerFunc) Command {
	return Command{Handler: h, Description: description, AdminOnly: true}
}
