// Package store defines the storage interfaces for clipped's persistence layer.
// Snapshot records live here; spilled payload files are owned by the storage
// engine and referenced from the records by path.
package store

import (
	"errors"

	"github.com/yiblet/clipped/internal/snapshot"
)

// ErrNotFound is returned when no record matches an id or query.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore manages snapshot record persistence.
// Records are ordered by timestamp, newest first; records with equal
// timestamps are ordered by insertion, newest first.
type SnapshotStore interface {
	// Insert stores a new snapshot. The snapshot's ID must be unique.
	Insert(s *snapshot.Snapshot) error

	// Get retrieves a single snapshot by ID.
	// Returns ErrNotFound if the snapshot does not exist.
	Get(id string) (*snapshot.Snapshot, error)

	// List returns snapshots newest first.
	// If limit is 0, all snapshots are returned.
	List(limit int) ([]*snapshot.Snapshot, error)

	// FindMatch returns the most recent snapshot matching m.
	// Returns ErrNotFound if nothing matches.
	FindMatch(m *Match) (*snapshot.Snapshot, error)

	// Delete removes a snapshot by ID.
	// Returns ErrNotFound if the snapshot does not exist.
	Delete(id string) error

	// DeleteOldest removes the count oldest snapshots and returns them,
	// so the caller can release their spilled payloads.
	DeleteOldest(count int) ([]*snapshot.Snapshot, error)

	// Count returns the total number of snapshots in the store.
	Count() (int, error)

	// IDs returns the ID of every stored snapshot.
	IDs() ([]string, error)

	// Clear removes all snapshots from the store.
	Clear() error

	// Search finds snapshots whose content matches the query pattern.
	Search(query *SearchQuery) ([]*snapshot.Snapshot, error)

	// Close releases any resources (DB connections, file handles, etc.).
	Close() error
}
