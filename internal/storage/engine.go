// Package storage places clipboard payloads inline or on disk, reads spilled
// payloads back, and generates previews for images and PDFs.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/yiblet/clipped/internal/snapshot"
)

var (
	// ErrWriteFailed means a payload could not be spilled and was too large
	// to fall back to inline storage.
	ErrWriteFailed = errors.New("payload write failed")

	// ErrContentUnavailable means a spilled payload is missing or unreadable.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrPreview means a preview could not be generated.
	ErrPreview = errors.New("preview generation failed")
)

// Placement is the outcome of placing one payload.
type Placement struct {
	// PreviewData is the inline payload when not spilled, or the generated
	// preview (possibly nil) when spilled.
	PreviewData []byte

	FilePath string
	FileName string
	FileSize int64
}

// Spilled reports whether the payload was written to disk.
func (p *Placement) Spilled() bool {
	return p.FilePath != ""
}

// Engine is the storage engine. One Engine is constructed per process and
// passed to every component that needs it.
type Engine struct {
	fs     *PayloadFS
	policy Policy
	logger *slog.Logger
}

// NewEngine creates an Engine over the given payload filesystem.
func NewEngine(pfs *PayloadFS, policy Policy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fs:     pfs,
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Policy returns the effective placement policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Dir returns the spill directory.
func (e *Engine) Dir() string {
	return e.fs.Root()
}

// FileName returns the spill file name for an id: "{id}.{ext}".
func FileName(id string, category snapshot.Category) string {
	return id + "." + category.Extension()
}

// Place decides inline versus spill for data and writes spilled payloads.
// A failed spill falls back to inline storage when the policy allows it;
// otherwise the error wraps ErrWriteFailed. Preview failures are logged and
// leave PreviewData nil.
func (e *Engine) Place(data []byte, id string, category snapshot.Category) (*Placement, error) {
	size := int64(len(data))
	if !e.policy.ShouldSpill(category, size) {
		return &Placement{PreviewData: data}, nil
	}

	name := FileName(id, category)
	if err := e.fs.WriteFile(name, data); err != nil {
		if e.policy.CanInline(size) {
			e.logger.Warn("spill failed, keeping payload inline", "id", id, "size", size, "err", err)
			return &Placement{PreviewData: data}, nil
		}
		return nil, fmt.Errorf("failed to write %s: %w: %w", name, ErrWriteFailed, err)
	}

	placement := &Placement{
		FilePath: e.fs.Path(name),
		FileName: name,
		FileSize: size,
	}

	preview, err := e.Preview(data, category)
	if err != nil {
		e.logger.Warn("preview unavailable", "id", id, "category", category, "err", err)
	}
	placement.PreviewData = preview

	return placement, nil
}

// Preview returns a downsized rendition of an image or PDF payload. Other
// categories have no preview and return nil, nil.
func (e *Engine) Preview(data []byte, category snapshot.Category) ([]byte, error) {
	var (
		preview []byte
		err     error
	)
	switch category {
	case snapshot.CategoryImage:
		preview, err = imagePreview(data, e.policy.PreviewSize)
	case snapshot.CategoryPDF:
		preview, err = pdfPreview(data, e.policy.PDFWidth, e.policy.PDFHeight)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPreview, err)
	}
	return preview, nil
}

// Load reads a spilled payload. It never writes.
func (e *Engine) Load(id string, category snapshot.Category) ([]byte, error) {
	name := FileName(id, category)
	data, err := fs.ReadFile(e.fs, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", name, ErrContentUnavailable, err)
	}
	return data, nil
}

// URL returns the path of a spilled payload if the file exists, without
// reading it.
func (e *Engine) URL(id string, category snapshot.Category) (string, bool) {
	name := FileName(id, category)
	info, err := e.fs.Stat(name)
	if err != nil || info.IsDir() {
		return "", false
	}
	return e.fs.Path(name), true
}

// Remove deletes the spilled payload for id. Removing a payload that was
// never spilled is not an error.
func (e *Engine) Remove(id string, category snapshot.Category) error {
	name := FileName(id, category)
	if err := e.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// RemoveAll deletes every file in the spill directory.
func (e *Engine) RemoveAll() error {
	entries, err := e.fs.ReadDir(".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to list payloads: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := e.fs.Remove(entry.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", entry.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Spilled lists the ids that have a payload on disk, with the file names
// they were found under.
func (e *Engine) Spilled() (map[string][]string, error) {
	entries, err := e.fs.ReadDir(".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string][]string{}, nil
		}
		return nil, fmt.Errorf("failed to list payloads: %w", err)
	}

	files := make(map[string][]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		id, _, _ := strings.Cut(name, ".")
		files[id] = append(files[id], name)
	}
	return files, nil
}

// RemoveFile deletes a file in the spill directory by name.
func (e *Engine) RemoveFile(name string) error {
	if err := e.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// Payload gives two-tier access to a snapshot's content.
type Payload struct {
	engine *Engine
	snap   *snapshot.Snapshot
}

// Open returns the payload accessor for s.
func (e *Engine) Open(s *snapshot.Snapshot) *Payload {
	return &Payload{engine: e, snap: s}
}

// Preview returns the in-record blob without touching the disk.
func (p *Payload) Preview() []byte {
	return p.snap.PreviewData
}

// Full returns the complete payload: the spilled file when there is one,
// else the inline data, else the content string itself.
func (p *Payload) Full() ([]byte, error) {
	switch {
	case p.snap.Spilled():
		return p.engine.Load(p.snap.ID, p.snap.Category)
	case p.snap.PreviewData != nil:
		return slices.Clone(p.snap.PreviewData), nil
	default:
		return []byte(p.snap.Content), nil
	}
}
