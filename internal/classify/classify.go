// Package classify maps the representations offered by the clipboard to a
// single content category and the payload that represents it.
package classify

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yiblet/clipped/internal/snapshot"
)

// ErrNoMatch is returned when no offered representation yields a usable category.
var ErrNoMatch = errors.New("no representation yielded a usable category")

// Source is the read side of a clipboard: the offered representations in
// preference order and accessors for their payloads.
type Source interface {
	Types() []snapshot.Representation
	String(t snapshot.Representation) (string, error)
	Data(t snapshot.Representation) ([]byte, error)
}

// Result is the classification of one clipboard change.
type Result struct {
	// Category is the derived content category.
	Category snapshot.Category

	// SourceType is the representation that won.
	SourceType snapshot.Representation

	// Data is the raw payload of the winning representation.
	Data []byte

	// Content is the human-readable summary stored on the snapshot.
	Content string
}

// Classifier resolves clipboard representations into a Result.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	html   *converter.Converter
	logger *slog.Logger
}

// New creates a Classifier.
func New(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		html: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		logger: logger,
	}
}

// rank orders representations from highest to lowest precedence.
func rank(t snapshot.Representation) int {
	switch {
	case t == snapshot.TypeURL:
		return 0
	case t == snapshot.TypeString:
		return 1
	case t == snapshot.TypeRTF:
		return 2
	case t == snapshot.TypeHTML:
		return 3
	case t.IsImage():
		return 4
	case t == snapshot.TypePDF:
		return 5
	case t == snapshot.TypeFileURL:
		return 6
	default:
		return 7
	}
}

// Classify picks the highest-precedence representation that yields a
// non-empty result. Representations of equal precedence keep the order the
// source reported them in. Remaining representations are ignored.
func (c *Classifier) Classify(src Source) (*Result, error) {
	types := slices.Clone(src.Types())
	slices.SortStableFunc(types, func(a, b snapshot.Representation) int {
		return rank(a) - rank(b)
	})

	for _, t := range types {
		res, err := c.classifyOne(src, t)
		if err != nil {
			c.logger.Debug("representation skipped", "type", t, "err", err)
			continue
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, ErrNoMatch
}

func (c *Classifier) classifyOne(src Source, t snapshot.Representation) (*Result, error) {
	switch {
	case t == snapshot.TypeURL:
		s, err := src.String(t)
		if err != nil || strings.TrimSpace(s) == "" {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryLink, SourceType: t, Data: []byte(s), Content: s}, nil

	case t == snapshot.TypeString:
		s, err := src.String(t)
		if err != nil || s == "" {
			return nil, err
		}
		category := snapshot.CategoryText
		if IsLink(s) {
			category = snapshot.CategoryLink
		}
		return &Result{Category: category, SourceType: t, Data: []byte(s), Content: s}, nil

	case t == snapshot.TypeRTF:
		data, err := src.Data(t)
		if err != nil || len(data) == 0 {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryText, SourceType: t, Data: data, Content: rtfText(data)}, nil

	case t == snapshot.TypeHTML:
		data, err := src.Data(t)
		if err != nil || len(data) == 0 {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryHTML, SourceType: t, Data: data, Content: c.htmlText(data)}, nil

	case t.IsImage():
		data, err := src.Data(t)
		if err != nil || len(data) == 0 {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryImage, SourceType: t, Data: data, Content: imageSummary(data)}, nil

	case t == snapshot.TypePDF:
		data, err := src.Data(t)
		if err != nil || len(data) == 0 {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryPDF, SourceType: t, Data: data, Content: "PDF Document"}, nil

	case t == snapshot.TypeFileURL:
		s, err := src.String(t)
		if err != nil || strings.TrimSpace(s) == "" {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryFile, SourceType: t, Data: []byte(s), Content: fileName(s)}, nil

	default:
		data, err := src.Data(t)
		if err != nil || len(data) == 0 {
			return nil, err
		}
		return &Result{Category: snapshot.CategoryUnknown, SourceType: t, Data: data, Content: cases.Title(language.Und).String(t.TrailingName())}, nil
	}
}

// linkPattern is a permissive host+TLD match: optional scheme, optional
// "www.", one or more labels, a final alphabetic label of two or more
// letters, optional trailing dot and optional path.
var linkPattern = regexp.MustCompile(`^((https?)://)?(www\.)?([^\s./]+\.)+[A-Za-z]{2,}\.?(/.*)?$`)

// IsLink reports whether s looks like a web link. It is a heuristic, not
// RFC 3986 validation.
func IsLink(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "..") || strings.ContainsAny(s, " \t\n\r") {
		return false
	}
	return linkPattern.MatchString(s)
}

// imageSummary describes an image by its pixel dimensions.
func imageSummary(data []byte) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "Image"
	}
	return fmt.Sprintf("Image (%d×%d)", cfg.Width, cfg.Height)
}

// fileName returns the base name of a file reference, which is usually a
// file:// URL but may be a bare path.
func fileName(ref string) string {
	ref = strings.TrimSpace(ref)
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		ref = u.Path
	}
	name := path.Base(strings.TrimRight(ref, "/"))
	if name == "." || name == "/" {
		return ref
	}
	return name
}

func (c *Classifier) htmlText(data []byte) string {
	md, err := c.html.ConvertString(string(data))
	if err != nil || strings.TrimSpace(md) == "" {
		return "HTML Document"
	}
	return strings.TrimSpace(md)
}

var (
	rtfControl = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?|\\[^a-zA-Z]|[{}]`)
	rtfBlank   = regexp.MustCompile(`\n{3,}`)
)

// rtfText strips control words and groups from an RTF document. Font and
// color tables leak through as text; good enough for a summary.
func rtfText(data []byte) string {
	text := rtfControl.ReplaceAllString(string(data), "")
	text = rtfBlank.ReplaceAllString(strings.TrimSpace(text), "\n\n")
	if text == "" {
		return "Rich Text Document"
	}
	return text
}
