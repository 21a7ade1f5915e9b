// Package sysboard implements clipboard.Board on top of the system clipboard.
// It uses golang.design/x/clipboard when a display is available and falls back
// to pbcopy/pbpaste or xclip/xsel for text-only access otherwise.
package sysboard

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.design/x/clipboard"
	_ "golang.org/x/image/tiff"

	cb "github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/snapshot"
)

// backend reads and writes the two formats every platform supports.
type backend interface {
	name() string
	readText() []byte
	readImage() []byte
	writeText(data []byte) error
	writeImage(data []byte) error
}

// SystemClipboard implements clipboard.Board. Portable clipboard APIs expose
// no change counter, so one is derived by digesting the current contents on
// every ChangeCount call and bumping the counter when the digest moves.
type SystemClipboard struct {
	backend backend

	mu     sync.Mutex
	count  int64
	digest uint64
	primed bool
}

// New creates a SystemClipboard, preferring the native backend.
func New(logger *slog.Logger) *SystemClipboard {
	if logger == nil {
		logger = slog.Default()
	}

	var b backend
	if err := clipboard.Init(); err != nil {
		logger.Warn("native clipboard unavailable, falling back to commands", "err", err)
		b = &commandBackend{}
	} else {
		b = &nativeBackend{}
	}
	logger.Debug("clipboard backend selected", "backend", b.name())

	return &SystemClipboard{backend: b}
}

// IsSupported returns true if clipboard operations are supported on this system.
func (s *SystemClipboard) IsSupported() bool {
	if cmd, ok := s.backend.(*commandBackend); ok {
		return cmd.available()
	}
	return true
}

// ChangeCount implements clipboard.Board.
func (s *SystemClipboard) ChangeCount() int64 {
	text := s.backend.readText()
	img := s.backend.readImage()

	d := xxhash.New()
	d.Write(text)
	d.Write([]byte{0})
	d.Write(img)
	sum := d.Sum64()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.primed {
		s.primed = true
		s.digest = sum
		return s.count
	}
	if sum != s.digest {
		s.digest = sum
		s.count++
	}
	return s.count
}

// Types implements clipboard.Board.
func (s *SystemClipboard) Types() []snapshot.Representation {
	var types []snapshot.Representation
	if len(s.backend.readImage()) > 0 {
		types = append(types, snapshot.TypePNG)
	}
	if len(s.backend.readText()) > 0 {
		types = append(types, snapshot.TypeString)
	}
	return types
}

// String implements clipboard.Board.
func (s *SystemClipboard) String(t snapshot.Representation) (string, error) {
	data, err := s.Data(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Data implements clipboard.Board.
func (s *SystemClipboard) Data(t snapshot.Representation) ([]byte, error) {
	var data []byte
	switch {
	case t == snapshot.TypePNG:
		data = s.backend.readImage()
	case t == snapshot.TypeString:
		data = s.backend.readText()
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", t, cb.ErrNotOffered)
	}
	return data, nil
}

// Write implements clipboard.Board. Text-family representations are written
// as plain text; raster images are normalized to PNG.
func (s *SystemClipboard) Write(t snapshot.Representation, data []byte) error {
	switch {
	case t == snapshot.TypePNG:
		return s.backend.writeImage(data)
	case t.IsImage():
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", t, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
		return s.backend.writeImage(buf.Bytes())
	case t == snapshot.TypeString, t == snapshot.TypeURL, t == snapshot.TypeFileURL,
		t == snapshot.TypeHTML, t == snapshot.TypeRTF:
		return s.backend.writeText(data)
	default:
		return fmt.Errorf("%s: %w", t, cb.ErrUnsupported)
	}
}

// nativeBackend wraps golang.design/x/clipboard.
type nativeBackend struct{}

func (nativeBackend) name() string      { return "native" }
func (nativeBackend) readText() []byte  { return clipboard.Read(clipboard.FmtText) }
func (nativeBackend) readImage() []byte { return clipboard.Read(clipboard.FmtImage) }

func (nativeBackend) writeText(data []byte) error {
	clipboard.Write(clipboard.FmtText, data)
	return nil
}

func (nativeBackend) writeImage(data []byte) error {
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}
