package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQL is a Store backed by PostgreSQL or SQLite through sqlx.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQL wraps an open database. The schema must already be migrated.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, now: time.Now}
}

func (s *SQL) UpsertChat(ctx context.Context, chat *Chat) error {
	ts := s.now().Unix()
	chat.UpdatedTs = ts
	if chat.CreatedTs == 0 {
		chat.CreatedTs = ts
	}
	const q = `
INSERT INTO chats (chat_id, chat_type, title, is_member, admin_count, created_ts, updated_ts)
VALUES (:chat_id, :chat_type, :title, :is_member, :admin_count, :created_ts, :updated_ts)
ON CONFLICT (chat_id) DO UPDATE SET
    chat_type = excluded.chat_type,
    title = excluded.title,
    is_member = excluded.is_member,
    admin_count = excluded.admin_count,
    updated_ts = excluded.updated_ts`
	if _, err := s.db.NamedExecContext(ctx, q, chat); err != nil {
		return fmt.Errorf("store: upsert chat %d: %w", chat.ID, err)
	}
	return nil
}

func (s *SQL) ListChats(ctx context.Context, find FindChat) ([]*Chat, error) {
	q := `SELECT chat_id, chat_type, title, is_member, admin_count, created_ts, updated_ts FROM chats`
	var args []any
	if find.Member != nil {
		q += ` WHERE is_member = ?`
		args = append(args, *find.Member)
	}
	q += ` ORDER BY chat_id`

	var out []*Chat
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("store: list chats: %w", err)
	}
	return out, nil
}

func (s *SQL) CreateExecution(ctx context.Context, ex *Execution) error {
	ts := s.now().Unix()
	ex.CreatedTs = ts
	ex.UpdatedTs = ts
	const q = `
INSERT INTO executions (execution_id, method_id, user_id, tx_kind, memo, status, contract_address, created_ts, updated_ts)
VALUES (:execution_id, :method_id, :user_id, :tx_kind, :memo, :status, :contract_address, :created_ts, :updated_ts)`
	if _, err := s.db.NamedExecContext(ctx, q, ex); err != nil {
		return fmt.Errorf("store: create execution %s: %w", ex.ID, err)
	}
	return nil
}

func (s *SQL) UpdateExecution(ctx context.Context, update UpdateExecution) error {
	q := `UPDATE executions SET status = ?, updated_ts = ? WHERE execution_id = ?`
	args := []any{update.Status, s.now().Unix(), update.ID}
	if update.ContractAddress != "" {
		q = `UPDATE executions SET status = ?, contract_address = ?, updated_ts = ? WHERE execution_id = ?`
		args = []any{update.Status, update.ContractAddress, s.now().Unix(), update.ID}
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("store: update execution %s: %w", update.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update execution %s: %w", update.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) GetExecution(ctx context.Context, id string) (*Execution, error) {
	const q = `SELECT execution_id, method_id, user_id, tx_kind, memo, status, contract_address, created_ts, updated_ts
FROM executions WHERE execution_id = ?`
	var ex Execution
	if err := s.db.GetContext(ctx, &ex, s.db.Rebind(q), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get execution %s: %w", id, err)
	}
	return &ex, nil
}
