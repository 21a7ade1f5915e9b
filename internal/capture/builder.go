// Package capture turns a classified clipboard payload into a snapshot,
// placing the payload through the storage engine.
package capture

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/yiblet/clipped/internal/classify"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/storage"
)

// Builder creates snapshots. It is shared by the change observer and manual
// inserts so both produce identical records for identical payloads.
type Builder struct {
	engine *storage.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder that places payloads with engine.
func NewBuilder(engine *storage.Engine, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// Checksum returns the hex xxhash64 of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Build places the payload and returns the candidate snapshot. The returned
// error wraps storage.ErrWriteFailed when the payload could be neither
// spilled nor kept inline.
func (b *Builder) Build(res *classify.Result) (*snapshot.Snapshot, error) {
	id := snapshot.NewID()

	placement, err := b.engine.Place(res.Data, id, res.Category)
	if err != nil {
		return nil, err
	}

	s := &snapshot.Snapshot{
		ID:          id,
		Content:     res.Content,
		Timestamp:   b.now(),
		SourceType:  res.SourceType,
		Category:    res.Category,
		PreviewData: placement.PreviewData,
		FileSize:    placement.FileSize,
		FilePath:    placement.FilePath,
		FileName:    placement.FileName,
		Checksum:    Checksum(res.Data),
	}

	switch {
	case !placement.Spilled() && string(res.Data) == res.Content:
		// The content string is the whole payload.
		s.PreviewData = nil
	case placement.Spilled() && res.Category.IsTextual():
		s.Content = Excerpt(res.Content, ExcerptLength)
	}

	b.logger.Debug("snapshot built",
		"id", s.ID,
		"category", s.Category,
		"source_type", s.SourceType,
		"size", len(res.Data),
		"spilled", s.Spilled(),
	)
	return s, nil
}
