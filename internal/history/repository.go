// Package history is the snapshot repository: an ordered, queryable record
// store that keeps spilled payload files in step with its records.
package history

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/storage"
	"github.com/yiblet/clipped/internal/store"
)

const (
	DefaultHistoryLimit = 500
	MaxHistoryLimit     = 10000
)

// ErrRepository wraps persistence failures. A snapshot whose insert failed
// with ErrRepository was not recorded.
var ErrRepository = errors.New("repository failure")

// Repository serializes every mutation of the snapshot store, so the dedup
// check and the insert that follows it cannot interleave with another writer.
type Repository struct {
	mu           sync.Mutex
	store        store.SnapshotStore
	engine       *storage.Engine
	historyLimit int
	logger       *slog.Logger
}

// New creates a Repository. A historyLimit of 0 or less uses the default.
func New(s store.SnapshotStore, engine *storage.Engine, historyLimit int, logger *slog.Logger) *Repository {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:        s,
		engine:       engine,
		historyLimit: min(historyLimit, MaxHistoryLimit),
		logger:       logger,
	}
}

func repoErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: failed to %s: %w", ErrRepository, op, err)
}

// Recent returns up to limit snapshots, newest first. A limit of 0 returns
// everything within the history limit.
func (r *Repository) Recent(limit int) ([]*snapshot.Snapshot, error) {
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}
	snaps, err := r.store.List(limit)
	if err != nil {
		return nil, repoErr("list snapshots", err)
	}
	return snaps, nil
}

// Get returns the snapshot with the given id.
func (r *Repository) Get(id string) (*snapshot.Snapshot, error) {
	s, err := r.store.Get(id)
	if err != nil {
		return nil, repoErr("get snapshot", err)
	}
	return s, nil
}

// FindMatch returns the most recent snapshot with identical content and
// source type, or store.ErrNotFound.
func (r *Repository) FindMatch(m *store.Match) (*snapshot.Snapshot, error) {
	s, err := r.store.FindMatch(m)
	if err != nil {
		return nil, repoErr("find match", err)
	}
	return s, nil
}

// Search returns snapshots whose content matches the query.
func (r *Repository) Search(q *store.SearchQuery) ([]*snapshot.Snapshot, error) {
	snaps, err := r.store.Search(q)
	if err != nil {
		return nil, repoErr("search", err)
	}
	return snaps, nil
}

// Count returns the number of stored snapshots.
func (r *Repository) Count() (int, error) {
	n, err := r.store.Count()
	if err != nil {
		return 0, repoErr("count snapshots", err)
	}
	return n, nil
}

// Insert records s unconditionally.
func (r *Repository) Insert(s *snapshot.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(s)
}

// InsertUnlessDuplicate records s unless an exact match already exists
// anywhere in the store. When a duplicate is found the existing snapshot is
// returned, inserted is false, and the payload spilled for s is released.
func (r *Repository) InsertUnlessDuplicate(s *snapshot.Snapshot) (existing *snapshot.Snapshot, inserted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err = r.store.FindMatch(store.MatchFor(s))
	switch {
	case err == nil:
		r.release(s)
		return existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		r.release(s)
		return nil, false, repoErr("check for duplicate", err)
	}

	if err := r.insertLocked(s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func (r *Repository) insertLocked(s *snapshot.Snapshot) error {
	if err := r.store.Insert(s); err != nil {
		r.release(s)
		return repoErr("insert snapshot", err)
	}

	if err := r.cleanupOldItems(); err != nil {
		r.logger.Warn("failed to trim history", "err", err)
	}
	return nil
}

// Delete removes the snapshot and its spilled payload.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.Get(id)
	if err != nil {
		return repoErr("get snapshot", err)
	}
	if err := r.store.Delete(id); err != nil {
		return repoErr("delete snapshot", err)
	}
	if err := r.engine.Remove(s.ID, s.Category); err != nil {
		return fmt.Errorf("failed to release payload: %w", err)
	}
	return nil
}

// Clear removes every snapshot and every spilled payload.
func (r *Repository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Records that survive a failed clear keep their payloads.
	if err := r.store.Clear(); err != nil {
		return repoErr("clear history", err)
	}
	if err := r.engine.RemoveAll(); err != nil {
		return fmt.Errorf("failed to remove payloads: %w", err)
	}
	return nil
}

// PruneOrphans removes spilled files that no record refers to and returns
// how many were removed.
func (r *Repository) PruneOrphans() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.store.IDs()
	if err != nil {
		return 0, repoErr("list ids", err)
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	files, err := r.engine.Spilled()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for id, names := range files {
		if known[id] {
			continue
		}
		for _, name := range names {
			if err := r.engine.RemoveFile(name); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("pruned orphaned payloads", "count", removed)
	}
	return removed, errors.Join(errs...)
}

// HistoryLimit returns the configured history limit.
func (r *Repository) HistoryLimit() int {
	return r.historyLimit
}

// Engine returns the storage engine backing the repository.
func (r *Repository) Engine() *storage.Engine {
	return r.engine
}

// Close releases store resources.
func (r *Repository) Close() error {
	return r.store.Close()
}

// release removes the payload spilled for a snapshot that was not recorded.
func (r *Repository) release(s *snapshot.Snapshot) {
	if !s.Spilled() {
		return
	}
	if err := r.engine.Remove(s.ID, s.Category); err != nil {
		r.logger.Warn("failed to release unrecorded payload", "id", s.ID, "err", err)
	}
}

// cleanupOldItems removes snapshots exceeding the history limit along with
// their spilled payloads.
func (r *Repository) cleanupOldItems() error {
	count, err := r.store.Count()
	if err != nil {
		return err
	}
	if count <= r.historyLimit {
		return nil
	}

	evicted, err := r.store.DeleteOldest(count - r.historyLimit)
	if err != nil {
		return err
	}

	var errs []error
	for _, s := range evicted {
		if !s.Spilled() {
			continue
		}
		if err := r.engine.Remove(s.ID, s.Category); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Debug("trimmed history", "evicted", len(evicted))
	return errors.Join(errs...)
}
