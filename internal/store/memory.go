package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a Store held in process memory, used when no database is configured.
type Memory struct {
	mu         sync.RWMutex
	chats      map[int64]Chat
	executions map[string]Execution
	now        func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		chats:      make(map[int64]Chat),
		executions: make(map[string]Execution),
		now:        time.Now,
	}
}

func (m *Memory) UpsertChat(_ context.Context, chat *Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().Unix()
	if prev, ok := m.chats[chat.ID]; ok {
		chat.CreatedTs = prev.CreatedTs
	} else {
		chat.CreatedTs = ts
	}
	chat.UpdatedTs = ts
	m.chats[chat.ID] = *chat
	return nil
}

func (m *Memory) ListChats(_ context.Context, find FindChat) ([]*Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Chat, 0, len(m.chats))
	for _, c := range m.chats {
		if find.Member != nil && c.Member != *find.Member {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CreateExecution(_ context.Context, ex *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().Unix()
	ex.CreatedTs = ts
	ex.UpdatedTs = ts
	m.executions[ex.ID] = *ex
	return nil
}

func (m *Memory) UpdateExecution(_ context.Context, update UpdateExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ex, ok := m.executions[update.ID]
	if !ok {
		return ErrNotFound
	}
	ex.Status = update.Status
	if update.ContractAddress != "" {
		ex.ContractAddress = update.ContractAddress
	}
	ex.UpdatedTs = m.now().Unix()
	m.executions[update.ID] = ex
	return nil
}

func (m *Memory) GetExecution(_ context.Context, id string) (*Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ex, ok := m.executions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ex, nil
}
