package storage

import (
	"context"
	"sync"

	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// MockStore is an in-memory Store for testing
type MockStore struct {
	mu        sync.RWMutex
	records   map[string]*replay.GameRecord
	pingError error
	saveError error
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{records: make(map[string]*replay.GameRecord)}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on save with the given error
func (m *MockStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStore) Close() error { return nil }

func (m *MockStore) SaveRecord(ctx context.Context, rec *replay.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.records[Key(rec.ReplayID, rec.PlayerPerspective)] = rec
	return nil
}

func (m *MockStore) LoadRecord(ctx context.Context, replayID, perspective string) (*replay.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[Key(replayID, perspective)]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *MockStore) DeleteRecord(ctx context.Context, replayID, perspective string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(replayID, perspective)
	if _, ok := m.records[key]; !ok {
		return ErrNotFound
	}
	delete(m.records, key)
	return nil
}

func (m *MockStore) HasRecord(ctx context.Context, replayID, perspective string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[Key(replayID, perspective)]
	return ok, nil
}

func (m *MockStore) ListRecords(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, Summarize(rec))
	}
	sortSummaries(out)
	return out, nil
}
