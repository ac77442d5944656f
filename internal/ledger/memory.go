package ledger

import (
	"context"
	"sync"
)

// Memory is a process-local ledger. It only protects a single instance.
type Memory struct {
	mu   sync.Mutex
	keys map[Key]struct{}
}

func NewMemory() *Memory {
	return &Memory{keys: make(map[Key]struct{})}
}

func (m *Memory) Claim(_ context.Context, key Key) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

// Len returns the number of claimed keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
