package storage

import "github.com/yiblet/clipped/internal/snapshot"

const (
	// DefaultInlineThreshold is the payload size above which entries are
	// spilled to disk, and the largest payload kept inline when a spill fails.
	DefaultInlineThreshold int64 = 1 << 20

	DefaultPreviewSize = 200
	DefaultPDFWidth    = 800
	DefaultPDFHeight   = 1040
)

// Policy decides where payloads are placed and how previews are sized.
type Policy struct {
	// InlineThreshold applies to every category without an override.
	InlineThreshold int64

	// Thresholds overrides InlineThreshold per category. A zero threshold
	// spills every non-empty payload of that category.
	Thresholds map[snapshot.Category]int64

	// PreviewSize bounds image previews to PreviewSize×PreviewSize.
	PreviewSize int

	// PDFWidth and PDFHeight are the dimensions of rendered PDF previews.
	PDFWidth  int
	PDFHeight int
}

// DefaultPolicy returns a policy with a 1 MiB threshold for every category.
func DefaultPolicy() Policy {
	return Policy{
		InlineThreshold: DefaultInlineThreshold,
		PreviewSize:     DefaultPreviewSize,
		PDFWidth:        DefaultPDFWidth,
		PDFHeight:       DefaultPDFHeight,
	}
}

// Threshold returns the spill threshold for a category.
func (p Policy) Threshold(c snapshot.Category) int64 {
	if v, ok := p.Thresholds[c]; ok {
		return v
	}
	return p.InlineThreshold
}

// ShouldSpill reports whether a payload of size bytes goes to disk.
func (p Policy) ShouldSpill(c snapshot.Category, size int64) bool {
	return size > p.Threshold(c)
}

// CanInline reports whether a payload may stay inline after a failed spill.
func (p Policy) CanInline(size int64) bool {
	return size <= p.InlineThreshold
}

func (p Policy) withDefaults() Policy {
	if p.InlineThreshold <= 0 {
		p.InlineThreshold = DefaultInlineThreshold
	}
	if p.PreviewSize <= 0 {
		p.PreviewSize = DefaultPreviewSize
	}
	if p.PDFWidth <= 0 {
		p.PDFWidth = DefaultPDFWidth
	}
	if p.PDFHeight <= 0 {
		p.PDFHeight = DefaultPDFHeight
	}
	return p
}
