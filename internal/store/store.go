// Package store keeps the bot's durable records: the chats it belongs to and
// a ledger of submitted executions. Conversation sessions never land here.
package store

import (
	"context"
	"embed"
	"errors"
)

// Migrations holds the SQL schema applied by bootstrap.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// Chat is a chat the bot has been added to or removed from.
type Chat struct {
	ID         int64  `db:"chat_id"`
	Type       string `db:"chat_type"`
	Title      string `db:"title"`
	Member     bool   `db:"is_member"`
	AdminCount int    `db:"admin_count"`
	CreatedTs  int64  `db:"created_ts"`
	UpdatedTs  int64  `db:"updated_ts"`
}

// FindChat specifies the conditions for listing chats.
type FindChat struct {
	Member *bool
}

// Execution statuses.
const (
	ExecutionSubmitted = "submitted"
	ExecutionSucceeded = "succeeded"
)

// Execution is one submitted 1Shot execution.
type Execution struct {
	ID              string `db:"execution_id"`
	MethodID        string `db:"method_id"`
	UserID          int64  `db:"user_id"`
	Kind            int    `db:"tx_kind"`
	Memo            string `db:"memo"`
	Status          string `db:"status"`
	ContractAddress string `db:"contract_address"`
	CreatedTs       int64  `db:"created_ts"`
	UpdatedTs       int64  `db:"updated_ts"`
}

// UpdateExecution specifies a status change of an execution.
type UpdateExecution struct {
	ID              string
	Status          string
	ContractAddress string
}

// ChatStore persists chat membership.
type ChatStore interface {
	UpsertChat(ctx context.Context, chat *Chat) error
	ListChats(ctx context.Context, find FindChat) ([]*Chat, error)
}

// ExecutionStore persists the execution ledger.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, ex *Execution) error
	UpdateExecution(ctx context.Context, update UpdateExecution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
}

// Store combines every record kind.
type Store interface {
	ChatStore
	ExecutionStore
}
