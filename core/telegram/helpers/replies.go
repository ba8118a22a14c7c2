package helpers

import (
	tele "gopkg.in/telebot.v4"
)

const (
	keyReplies  = "replies"
	keyKeyboard = "replies_kb"
)

// countReply records one reply produced while handling the update in c.
// Handlers run one at a time on the update queue, so the per-update store
// needs no extra locking.
func countReply(c tele.Context, keyboard bool) {
	if c == nil {
		return
	}
	n, _ := c.Get(keyReplies).(int)
	c.Set(keyReplies, n+1)
	if keyboard {
		c.Set(keyKeyboard, true)
	}
}

// Replies reports how many replies the update's handler queued and whether
// any of them carried a keyboard.
func Replies(c tele.Context) (int, bool) {
	if c == nil {
		return 0, false
	}
	n, _ := c.Get(keyReplies).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return n, kb
}
