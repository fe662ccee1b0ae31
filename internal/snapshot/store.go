// Package snapshot persists the full content snapshot as a single blob.
//
// Stores have no merge semantics: callers always write the complete merged
// snapshot, and readers never observe a partially written blob.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/croix-presskit/presskit/internal/domain"
)

// Store is the local snapshot persistence contract.
type Store interface {
	// Read returns false when nothing usable is persisted. Parse failures are
	// logged and reported as absent.
	Read(ctx context.Context) (domain.ContentSnapshot, bool)
	Write(ctx context.Context, snapshot domain.ContentSnapshot) error
	Stat(ctx context.Context) (Info, error)
	Clear(ctx context.Context) error
}

// Info describes the persisted blob for debugging.
type Info struct {
	Location    string    `json:"location"`
	Exists      bool      `json:"exists"`
	Valid       bool      `json:"valid"`
	SizeBytes   int64     `json:"size_bytes"`
	ModifiedAt  time.Time `json:"modified_at,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot *domain.ContentSnapshot
	modified time.Time
	writes   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Read(context.Context) (domain.ContentSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return domain.ContentSnapshot{}, false
	}
	return m.snapshot.Clone(), true
}

func (m *MemoryStore) Write(_ context.Context, snapshot domain.ContentSnapshot) error {
	clone := snapshot.Clone()
	m.mu.Lock()
	m.snapshot = &clone
	m.modified = time.Now().UTC()
	m.writes++
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Stat(context.Context) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info := Info{Location: "memory"}
	if m.snapshot != nil {
		info.Exists = true
		info.Valid = true
		info.ModifiedAt = m.modified
		info.Fingerprint = m.snapshot.Fingerprint()
	}
	return info, nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.snapshot = nil
	m.mu.Unlock()
	return nil
}

// Writes reports how many writes the store has accepted.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
