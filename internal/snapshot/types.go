package snapshot

import (
	"fmt"
	"strings"
)

// Category is the closed set of content categories a snapshot can carry.
type Category string

const (
	CategoryText    Category = "text"
	CategoryImage   Category = "image"
	CategoryPDF     Category = "pdf"
	CategoryFile    Category = "file"
	CategoryLink    Category = "link"
	CategoryHTML    Category = "html"
	CategoryUnknown Category = "unknown"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryText,
	CategoryImage,
	CategoryPDF,
	CategoryFile,
	CategoryLink,
	CategoryHTML,
	CategoryUnknown,
}

// ParseCategory converts a stored category name back into a Category.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Extension returns the file extension used for spilled payloads. Image
// files hold whichever format won classification (PNG, TIFF or JPEG).
func (c Category) Extension() string {
	switch c {
	case CategoryText:
		return "txt"
	case CategoryImage:
		return "img"
	case CategoryPDF:
		return "pdf"
	case CategoryHTML:
		return "html"
	default:
		return "data"
	}
}

// IsTextual reports whether the payload of this category is UTF-8 text.
func (c Category) IsTextual() bool {
	switch c {
	case CategoryText, CategoryLink, CategoryHTML, CategoryFile:
		return true
	default:
		return false
	}
}

// Representation is an opaque clipboard representation identifier. The
// namespace is open; the constants below are the ones clipped recognizes.
type Representation string

const (
	TypeString  Representation = "public.utf8-plain-text"
	TypeURL     Representation = "public.url"
	TypeFileURL Representation = "public.file-url"
	TypePNG     Representation = "public.png"
	TypeTIFF    Representation = "public.tiff"
	TypeJPEG    Representation = "public.jpeg"
	TypePDF     Representation = "com.adobe.pdf"
	TypeHTML    Representation = "public.html"
	TypeRTF     Representation = "public.rtf"
)

// IsImage reports whether r is a recognized raster image representation.
func (r Representation) IsImage() bool {
	switch r {
	case TypePNG, TypeTIFF, TypeJPEG:
		return true
	}
	return false
}

// IsKnown reports whether r is one of the recognized well-known identifiers.
func (r Representation) IsKnown() bool {
	switch r {
	case TypeString, TypeURL, TypeFileURL, TypePNG, TypeTIFF, TypeJPEG, TypePDF, TypeHTML, TypeRTF:
		return true
	}
	return false
}

// TrailingName returns the last path component of the identifier, which is
// the most descriptive part of both MIME-style ("application/x-foo") and
// reverse-DNS ("com.example.foo") identifiers.
func (r Representation) TrailingName() string {
	s := strings.TrimRight(string(r), "/.")
	if i := strings.LastIndexAny(s, "/."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func (r Representation) String() string {
	return string(r)
}
