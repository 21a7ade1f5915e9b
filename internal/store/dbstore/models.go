package dbstore

import (
	"time"

	"github.com/yiblet/clipped/internal/snapshot"
)

// SnapshotModel represents a snapshot record in the database.
// Seq records insertion order and breaks timestamp ties.
type SnapshotModel struct {
	Seq         uint      `gorm:"primaryKey;autoIncrement"`
	SnapshotID  string    `gorm:"size:36;not null;uniqueIndex"` // Opaque id, also the spill file basename
	Content     string    `gorm:"type:text;not null"`           // Summary or full text
	Timestamp   time.Time `gorm:"not null;index"`               // Capture time, stored in UTC
	SourceType  string    `gorm:"size:255;not null;index"`      // Raw representation identifier
	Category    string    `gorm:"size:16;not null;index"`
	PreviewData []byte    `gorm:"type:blob"`
	FileSize    int64     `gorm:"not null;default:0"`
	FilePath    string    `gorm:"type:text"`
	FileName    string    `gorm:"size:255"`
	Checksum    string    `gorm:"size:16"`
	CreatedAt   time.Time `gorm:"autoCreateTime"` // GORM managed timestamp
}

// TableName returns the table name for SnapshotModel
func (SnapshotModel) TableName() string {
	return "snapshots"
}

// newSnapshotModel converts a snapshot into its database row.
func newSnapshotModel(s *snapshot.Snapshot) *SnapshotModel {
	return &SnapshotModel{
		SnapshotID:  s.ID,
		Content:     s.Content,
		Timestamp:   s.Timestamp.UTC(),
		SourceType:  string(s.SourceType),
		Category:    string(s.Category),
		PreviewData: s.PreviewData,
		FileSize:    s.FileSize,
		FilePath:    s.FilePath,
		FileName:    s.FileName,
		Checksum:    s.Checksum,
	}
}

// ToSnapshot converts the GORM model to a snapshot.Snapshot
func (m *SnapshotModel) ToSnapshot() *snapshot.Snapshot {
	category, err := snapshot.ParseCategory(m.Category)
	if err != nil {
		category = snapshot.CategoryUnknown
	}
	return &snapshot.Snapshot{
		ID:          m.SnapshotID,
		Content:     m.Content,
		Timestamp:   m.Timestamp.Local(),
		SourceType:  snapshot.Representation(m.SourceType),
		Category:    category,
		PreviewData: m.PreviewData,
		FileSize:    m.FileSize,
		FilePath:    m.FilePath,
		FileName:    m.FileName,
		Checksum:    m.Checksum,
	}
}
