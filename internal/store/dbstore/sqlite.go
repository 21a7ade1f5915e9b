package dbstore

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/store"
)

const newestFirst = "timestamp DESC, seq DESC"

// SQLiteStore is a SQLite-backed implementation of store.SnapshotStore
type SQLiteStore struct {
	db     *gorm.DB
	dbPath string
}

var _ store.SnapshotStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store at the specified path
// and migrates the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// The watcher and one-shot CLI commands may hold the database at once.
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&SnapshotModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Insert stores a new snapshot
func (s *SQLiteStore) Insert(snap *snapshot.Snapshot) error {
	if err := s.db.Create(newSnapshotModel(snap)).Error; err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Get retrieves a single snapshot by ID
func (s *SQLiteStore) Get(id string) (*snapshot.Snapshot, error) {
	var model SnapshotModel
	if err := s.db.Where("snapshot_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return model.ToSnapshot(), nil
}

// List returns snapshots ordered newest first
func (s *SQLiteStore) List(limit int) ([]*snapshot.Snapshot, error) {
	var models []*SnapshotModel

	query := s.db.Order(newestFirst)
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return toSnapshots(models), nil
}

// FindMatch returns the most recent snapshot matching m
func (s *SQLiteStore) FindMatch(m *store.Match) (*snapshot.Snapshot, error) {
	query := s.db.
		Where("content = ? AND source_type = ?", m.Content, string(m.SourceType))
	if m.Checksum != "" {
		query = query.Where("(checksum = ? OR checksum = '' OR checksum IS NULL)", m.Checksum)
	}

	var model SnapshotModel
	if err := query.Order(newestFirst).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find match: %w", err)
	}
	return model.ToSnapshot(), nil
}

// Delete removes a snapshot by ID
func (s *SQLiteStore) Delete(id string) error {
	result := s.db.Where("snapshot_id = ?", id).Delete(&SnapshotModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

// DeleteOldest removes the N oldest snapshots and returns them
func (s *SQLiteStore) DeleteOldest(count int) ([]*snapshot.Snapshot, error) {
	if count <= 0 {
		return nil, nil
	}

	var models []*SnapshotModel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Select("seq", "snapshot_id", "category", "file_path", "file_name").
			Order("timestamp ASC, seq ASC").
			Limit(count).
			Find(&models).Error; err != nil {
			return fmt.Errorf("failed to find oldest snapshots: %w", err)
		}
		if len(models) == 0 {
			return nil
		}

		seqs := make([]uint, len(models))
		for i, m := range models {
			seqs[i] = m.Seq
		}
		if err := tx.Delete(&SnapshotModel{}, seqs).Error; err != nil {
			return fmt.Errorf("failed to delete snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toSnapshots(models), nil
}

// Count returns the total number of snapshots
func (s *SQLiteStore) Count() (int, error) {
	var count int64
	if err := s.db.Model(&SnapshotModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return int(count), nil
}

// IDs returns the ID of every stored snapshot
func (s *SQLiteStore) IDs() ([]string, error) {
	var ids []string
	if err := s.db.Model(&SnapshotModel{}).Pluck("snapshot_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	return ids, nil
}

// Clear removes all snapshots
func (s *SQLiteStore) Clear() error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&SnapshotModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Search finds snapshots whose content matches a regex pattern
func (s *SQLiteStore) Search(query *store.SearchQuery) ([]*snapshot.Snapshot, error) {
	if query.Empty() {
		return []*snapshot.Snapshot{}, nil
	}

	re, err := query.Compile()
	if err != nil {
		return nil, err
	}

	dbQuery := s.db.Order(newestFirst)
	if query.Category != "" {
		dbQuery = dbQuery.Where("category = ?", string(query.Category))
	}

	var models []*SnapshotModel
	if err := dbQuery.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots for search: %w", err)
	}

	var results []*snapshot.Snapshot
	for _, model := range models {
		if !re.MatchString(model.Content) {
			continue
		}
		results = append(results, model.ToSnapshot())
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}

	return results, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toSnapshots(models []*SnapshotModel) []*snapshot.Snapshot {
	snaps := make([]*snapshot.Snapshot, len(models))
	for i, model := range models {
		snaps[i] = model.ToSnapshot()
	}
	return snaps
}
