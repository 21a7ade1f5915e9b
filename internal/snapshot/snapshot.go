// Package snapshot defines the captured clipboard entry and the closed set of
// content categories and representation identifiers used across clipped.
package snapshot

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PreviewLength is the maximum number of runes shown by Preview.
const PreviewLength = 50

// Snapshot is one captured clipboard entry. Fields are written once when the
// snapshot is built and never mutated afterwards.
type Snapshot struct {
	// ID is an opaque, time-sortable unique identifier. It is the storage
	// key and the basename of the spilled payload file.
	ID string

	// Content is a short textual summary of the entry: the decoded text for
	// text and links, or a description such as "Image (800×600)".
	// Always present, even for binary payloads.
	Content string

	// Timestamp is the capture time used for ordering and dedup lookups.
	Timestamp time.Time

	// SourceType is the raw representation identifier reported by the
	// clipboard. It is preserved so the payload can be written back as-is.
	SourceType Representation

	// Category is derived once by the classifier and never changes.
	Category Category

	// PreviewData holds the inline payload for small entries, or a downsized
	// preview for spilled image and PDF entries. Nil when Content is the
	// whole payload.
	PreviewData []byte

	// FileSize is the byte count of the spilled payload. Zero when inline.
	FileSize int64

	// FilePath is the absolute path of the spilled payload. Empty when inline.
	FilePath string

	// FileName is the basename of the spilled payload ("{id}.{ext}").
	FileName string

	// Checksum is the hex xxhash64 of the winning payload bytes.
	// Used to refine exact-match dedup for binary entries.
	Checksum string
}

// NewID returns a fresh snapshot identifier. UUIDv7 keeps identifiers
// unique for the lifetime of the store and sortable by creation time.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Spilled reports whether the full payload lives on disk.
func (s *Snapshot) Spilled() bool {
	return s.FilePath != ""
}

// HasPreview reports whether an in-record preview blob is available.
func (s *Snapshot) HasPreview() bool {
	return s.PreviewData != nil
}

// Preview returns a single-line display string of at most PreviewLength runes.
func (s *Snapshot) Preview() string {
	switch s.Category {
	case CategoryImage:
		return "[Image] " + s.Content
	case CategoryLink:
		return "Link to " + LinkLabel(s.Content)
	}

	text := strings.Join(strings.Fields(s.Content), " ")
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength]) + "..."
}

// LinkLabel returns a short human label for a link: the first host label,
// skipping a leading "www", capitalized. "https://www.example.com/x" yields
// "Example".
func LinkLabel(link string) string {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(link), "https://"), "http://")
	parts := strings.Split(cleaned, ".")
	label := parts[0]
	if label == "www" && len(parts) > 1 {
		label = parts[1]
	}
	if label == "" {
		return link
	}
	r, size := utf8.DecodeRuneInString(label)
	return strings.ToUpper(string(r)) + strings.ToLower(label[size:])
}
