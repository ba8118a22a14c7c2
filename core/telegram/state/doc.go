// Package state provides per-user conversation sessions and a small table
// driven state machine for Telegram dialogues. Stores are passed explicitly
// to whoever drives a conversation; nothing here is process-global.
package state
