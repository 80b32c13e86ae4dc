package store

import (
	"context"
	"sync"
)

// maxHistoryPerWallet bounds the per-wallet result list in the in-memory
// store so a hot wallet cannot grow without limit.
const maxHistoryPerWallet = 50

// Memory is the fallback store used when Redis is unreachable. Results do
// not survive a restart.
type Memory struct {
	mu      sync.RWMutex
	records map[string][][]byte
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][][]byte)}
}

func (m *Memory) SaveInvestigation(_ context.Context, wallet string, payload []byte) error {
	snapshot := make([]byte, len(payload))
	copy(snapshot, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([][]byte{snapshot}, m.records[wallet]...)
	if len(list) > maxHistoryPerWallet {
		list = list[:maxHistoryPerWallet]
	}
	m.records[wallet] = list
	return nil
}

func (m *Memory) LatestInvestigation(_ context.Context, wallet string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.records[wallet]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	out := make([]byte, len(list[0]))
	copy(out, list[0])
	return out, nil
}

func (m *Memory) ListInvestigations(_ context.Context, wallet string, limit int) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.records[wallet]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([][]byte, limit)
	for i := 0; i < limit; i++ {
		out[i] = make([]byte, len(list[i]))
		copy(out[i], list[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
