// Package chats follows the bot's own membership in private chats, groups and
// channels, as reported by my_chat_member updates.
package chats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// Change is what a membership update means for the bot.
type Change int

const (
	Unchanged Change = iota
	Joined
	Left
)

func (c Change) String() string {
	switch c {
	case Joined:
		return "joined"
	case Left:
		return "left"
	default:
		return "unchanged"
	}
}

// AdminCounter returns a chat's administrators; *tele.Bot satisfies it.
type AdminCounter interface {
	AdminsOf(chat *tele.Chat) ([]tele.ChatMember, error)
}

// Tracker records membership changes in a chat store.
type Tracker struct {
	admins AdminCounter
	chats  store.ChatStore
}

// NewTracker builds a tracker. admins may be nil, in which case the admin
// count is left at zero.
func NewTracker(admins AdminCounter, chats store.ChatStore) *Tracker {
	return &Tracker{admins: admins, chats: chats}
}

// IsMember reports whether m counts as a member. Restricted users count only
// while their is_member flag is set.
func IsMember(m *tele.ChatMember) bool {
	if m == nil {
		return false
	}
	switch m.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true
	case tele.Restricted:
		return m.Member
	default:
		return false
	}
}

// StatusChange diffs an update. Updates that keep the status and the
// is_member flag report Unchanged.
func StatusChange(u *tele.ChatMemberUpdate) Change {
	if u == nil || u.OldChatMember == nil || u.NewChatMember == nil {
		return Unchanged
	}
	if u.OldChatMember.Role == u.NewChatMember.Role && u.OldChatMember.Member == u.NewChatMember.Member {
		return Unchanged
	}
	was, is := IsMember(u.OldChatMember), IsMember(u.NewChatMember)
	switch {
	case !was && is:
		return Joined
	case was && !is:
		return Left
	default:
		return Unchanged
	}
}

// Track applies one update and returns the resulting change.
func (t *Tracker) Track(ctx context.Context, u *tele.ChatMemberUpdate) (Change, error) {
	change := StatusChange(u)
	if change == Unchanged || u.Chat == nil {
		return Unchanged, nil
	}
	chat := u.Chat

	attrs := []slog.Attr{
		slog.Int64("chat_id", chat.ID),
		slog.String("chat_type", string(chat.Type)),
		slog.String("cause", causeName(u.Sender)),
	}

	record := &store.Chat{
		ID:     chat.ID,
		Type:   string(chat.Type),
		Title:  chatTitle(chat),
		Member: change == Joined,
	}

	switch chat.Type {
	case tele.ChatPrivate:
		event := "chat.blocked"
		if change == Joined {
			event = "chat.unblocked"
		}
		logger.LogEvent(ctx, logger.Chats, slog.LevelInfo, event, attrs...)
	default:
		if change == Joined {
			record.AdminCount = t.adminCount(ctx, chat)
			attrs = append(attrs, slog.Int("admins", record.AdminCount))
		}
		attrs = append(attrs, slog.String("title", record.Title))
		logger.LogEvent(ctx, logger.Chats, slog.LevelInfo, "chat."+change.String(), attrs...)
	}

	if t.chats == nil {
		return change, nil
	}
	if err := t.chats.UpsertChat(ctx, record); err != nil {
		return change, fmt.Errorf("chats: upsert %d: %w", chat.ID, err)
	}
	return change, nil
}

func (t *Tracker) adminCount(ctx context.Context, chat *tele.Chat) int {
	if t.admins == nil {
		return 0
	}
	admins, err := t.admins.AdminsOf(chat)
	if err != nil {
		logger.LogEvent(ctx, logger.Chats, slog.LevelWarn, "chat.admins",
			slog.String("status", "fail"),
			slog.Int64("chat_id", chat.ID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return 0
	}
	return len(admins)
}

// List returns the chats the bot currently belongs to.
func (t *Tracker) List(ctx context.Context) ([]*store.Chat, error) {
	if t.chats == nil {
		return nil, nil
	}
	member := true
	list, err := t.chats.ListChats(ctx, store.FindChat{Member: &member})
	if err != nil {
		return nil, fmt.Errorf("chats: list: %w", err)
	}
	return list, nil
}

func chatTitle(chat *tele.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name == "" && chat.Username != "" {
		return "@" + chat.Username
	}
	return name
}

func causeName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
