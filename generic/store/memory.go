// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/household-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[string]generic.Record
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]generic.Record),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, ownerID string) (*generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[ownerID]
	if !ok {
		return nil, generic.ErrRecordNotFound
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return &rec, nil
}

func (m *Memory) Put(_ context.Context, rec generic.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Payload = append([]byte(nil), rec.Payload...)
	rec.UpdatedAt = m.now().UTC()
	m.records[rec.OwnerID] = rec
	return nil
}

func (m *Memory) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[ownerID]; !ok {
		return generic.ErrRecordNotFound
	}
	delete(m.records, ownerID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]generic.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Record, 0, len(m.records))
	for _, rec := range m.records {
		rec.Payload = nil
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OwnerID < result[j].OwnerID })
	return result, nil
}
