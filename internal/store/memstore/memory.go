// Package memstore provides an in-memory implementation of store.SnapshotStore.
// It is used by unit tests and the demo and does not persist data.
package memstore

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/store"
)

// MemoryStore is an in-memory implementation of store.SnapshotStore.
// It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*entry
	nextSeq uint
}

var _ store.SnapshotStore = (*MemoryStore)(nil)

// entry pairs a snapshot with its insertion sequence.
type entry struct {
	seq  uint
	snap *snapshot.Snapshot
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextSeq: 1}
}

// newestFirst orders by timestamp, then insertion, both descending.
func newestFirst(a, b *entry) int {
	if c := b.snap.Timestamp.Compare(a.snap.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(b.seq, a.seq)
}

// sorted returns entries newest first. Caller must hold the lock.
func (m *MemoryStore) sorted() []*entry {
	out := slices.Clone(m.entries)
	slices.SortFunc(out, newestFirst)
	return out
}

func clone(s *snapshot.Snapshot) *snapshot.Snapshot {
	c := *s
	c.PreviewData = slices.Clone(s.PreviewData)
	return &c
}

// Insert stores a copy of the snapshot.
func (m *MemoryStore) Insert(s *snapshot.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.snap.ID == s.ID {
			return fmt.Errorf("failed to insert snapshot: duplicate id %s", s.ID)
		}
	}

	m.entries = append(m.entries, &entry{seq: m.nextSeq, snap: clone(s)})
	m.nextSeq++
	return nil
}

// Get retrieves a snapshot by ID.
func (m *MemoryStore) Get(id string) (*snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.snap.ID == id {
			return clone(e.snap), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

// List returns snapshots newest first.
func (m *MemoryStore) List(limit int) ([]*snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := m.sorted()
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	snaps := make([]*snapshot.Snapshot, len(sorted))
	for i, e := range sorted {
		snaps[i] = clone(e.snap)
	}
	return snaps, nil
}

// FindMatch returns the most recent snapshot matching q.
func (m *MemoryStore) FindMatch(q *store.Match) (*snapshot.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.sorted() {
		if q.Matches(e.snap) {
			return clone(e.snap), nil
		}
	}
	return nil, store.ErrNotFound
}

// Delete removes a snapshot by ID.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.entries, func(e *entry) bool { return e.snap.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return nil
}

// DeleteOldest removes the N oldest snapshots and returns them.
func (m *MemoryStore) DeleteOldest(count int) ([]*snapshot.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if count <= 0 {
		return nil, nil
	}

	sorted := m.sorted()
	count = min(count, len(sorted))
	oldest := sorted[len(sorted)-count:]

	removed := make(map[uint]bool, count)
	evicted := make([]*snapshot.Snapshot, 0, count)
	for i := len(oldest) - 1; i >= 0; i-- {
		removed[oldest[i].seq] = true
		evicted = append(evicted, clone(oldest[i].snap))
	}

	m.entries = slices.DeleteFunc(m.entries, func(e *entry) bool { return removed[e.seq] })
	return evicted, nil
}

// Count returns the total number of snapshots.
func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// IDs returns the ID of every stored snapshot.
func (m *MemoryStore) IDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, len(m.entries))
	for i, e := range m.entries {
		ids[i] = e.snap.ID
	}
	return ids, nil
}

// Clear removes all snapshots.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Search finds snapshots whose content matches the query pattern. An empty
// pattern matches everything when a category is given.
func (m *MemoryStore) Search(query *store.SearchQuery) ([]*snapshot.Snapshot, error) {
	if query.Empty() {
		return []*snapshot.Snapshot{}, nil
	}

	re, err := query.Compile()
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*snapshot.Snapshot
	for _, e := range m.sorted() {
		if query.Category != "" && e.snap.Category != query.Category {
			continue
		}
		if !re.MatchString(e.snap.Content) {
			continue
		}
		results = append(results, clone(e.snap))
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}
	return results, nil
}

// Close releases resources (no-op for memory store).
func (m *MemoryStore) Close() error {
	return nil
}
