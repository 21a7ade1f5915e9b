package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/yiblet/clipped/internal/snapshot"
)

func setupEngine(t *testing.T, policy Policy) *Engine {
	t.Helper()
	return NewEngine(NewFSWithRoot(t.TempDir()), policy, nil)
}

// noisePNG encodes a w×h image of random pixels, which PNG cannot compress.
func noisePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// minimalPDF builds a one-page PDF with a correct cross-reference table.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT\n/F1 24 Tf\n72 712 Td\n(%s) Tj\nET\n", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func decodeConfig(t *testing.T, data []byte) image.Config {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("preview is not a decodable image: %v", err)
	}
	return cfg
}

func TestPlace_InlineUnderThreshold(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	data := []byte("hello world")
	p, err := engine.Place(data, "id-1", snapshot.CategoryText)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if p.Spilled() {
		t.Errorf("small payload should stay inline, got %s", p.FilePath)
	}
	if !bytes.Equal(p.PreviewData, data) {
		t.Errorf("inline data = %q, want %q", p.PreviewData, data)
	}

	entries, _ := os.ReadDir(engine.Dir())
	if len(entries) != 0 {
		t.Errorf("inline placement wrote %d files", len(entries))
	}
}

func TestPlaceLoad_RoundTrip(t *testing.T) {
	policy := DefaultPolicy()
	policy.InlineThreshold = 64
	engine := setupEngine(t, policy)

	tests := []struct {
		name     string
		data     []byte
		category snapshot.Category
		spilled  bool
	}{
		{"under threshold", bytes.Repeat([]byte("a"), 64), snapshot.CategoryText, false},
		{"over threshold", bytes.Repeat([]byte("b"), 65), snapshot.CategoryText, true},
		{"binary over threshold", bytes.Repeat([]byte{0, 1, 2, 3}, 100), snapshot.CategoryUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := snapshot.NewID()
			p, err := engine.Place(tt.data, id, tt.category)
			if err != nil {
				t.Fatalf("Place() error = %v", err)
			}
			if p.Spilled() != tt.spilled {
				t.Fatalf("Spilled() = %v, want %v", p.Spilled(), tt.spilled)
			}

			s := &snapshot.Snapshot{
				ID:          id,
				Category:    tt.category,
				PreviewData: p.PreviewData,
				FilePath:    p.FilePath,
			}
			got, err := engine.Open(s).Full()
			if err != nil {
				t.Fatalf("Full() error = %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(tt.data))
			}
		})
	}
}

func TestPlace_FileNaming(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds = map[snapshot.Category]int64{
		snapshot.CategoryText:    0,
		snapshot.CategoryHTML:    0,
		snapshot.CategoryUnknown: 0,
	}
	engine := setupEngine(t, policy)

	tests := []struct {
		category snapshot.Category
		want     string
	}{
		{snapshot.CategoryText, "a.txt"},
		{snapshot.CategoryHTML, "b.html"},
		{snapshot.CategoryUnknown, "c.data"},
	}
	for i, tt := range tests {
		id := string(rune('a' + i))
		p, err := engine.Place([]byte("x"), id, tt.category)
		if err != nil {
			t.Fatalf("Place() error = %v", err)
		}
		if p.FileName != tt.want {
			t.Errorf("FileName = %q, want %q", p.FileName, tt.want)
		}
		if p.FilePath != filepath.Join(engine.Dir(), tt.want) {
			t.Errorf("FilePath = %q", p.FilePath)
		}
		if p.FileSize != 1 {
			t.Errorf("FileSize = %d, want 1", p.FileSize)
		}
	}
}

func TestLoad_Idempotent(t *testing.T) {
	policy := DefaultPolicy()
	policy.InlineThreshold = 4
	engine := setupEngine(t, policy)

	data := []byte("spilled payload")
	if _, err := engine.Place(data, "same", snapshot.CategoryText); err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	path := filepath.Join(engine.Dir(), "same.txt")
	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	first, err := engine.Load("same", snapshot.CategoryText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second, err := engine.Load("same", snapshot.CategoryText)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(first, second) || !bytes.Equal(first, data) {
		t.Errorf("Load() not idempotent: %q vs %q", first, second)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Error("Load() modified the spilled file")
	}
}

func TestLoad_Missing(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	_, err := engine.Load("nope", snapshot.CategoryImage)
	if !errors.Is(err, ErrContentUnavailable) {
		t.Errorf("expected ErrContentUnavailable, got %v", err)
	}
}

func TestPlace_ImageKeepsSourceBytes(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds = map[snapshot.Category]int64{snapshot.CategoryImage: 0}
	engine := setupEngine(t, policy)

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	data := buf.Bytes()

	p, err := engine.Place(data, "photo", snapshot.CategoryImage)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if p.FileName != "photo.img" {
		t.Errorf("FileName = %q, want photo.img", p.FileName)
	}

	loaded, err := engine.Load("photo", snapshot.CategoryImage)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(loaded, data) {
		t.Error("spilled image should hold the original jpeg bytes")
	}
	if cfg := decodeConfig(t, p.PreviewData); cfg.Width != 40 || cfg.Height != 20 {
		t.Errorf("preview = %dx%d, want 40x20", cfg.Width, cfg.Height)
	}
}

func TestPlace_LargeImage(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	data := noisePNG(t, 800, 700)
	if int64(len(data)) <= DefaultInlineThreshold {
		t.Fatalf("test image too small: %d bytes", len(data))
	}

	p, err := engine.Place(data, "big", snapshot.CategoryImage)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if !p.Spilled() {
		t.Fatal("large image should be spilled")
	}
	if p.FileSize != int64(len(data)) {
		t.Errorf("FileSize = %d, want %d", p.FileSize, len(data))
	}
	if p.FileName != "big.img" {
		t.Errorf("FileName = %q, want big.img", p.FileName)
	}

	cfg := decodeConfig(t, p.PreviewData)
	if cfg.Width > 200 || cfg.Height > 200 {
		t.Errorf("preview %dx%d exceeds 200x200", cfg.Width, cfg.Height)
	}
	if cfg.Width != 200 || cfg.Height != 175 {
		t.Errorf("preview %dx%d does not keep aspect ratio", cfg.Width, cfg.Height)
	}
}

func TestPreview_NoUpscale(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	preview, err := engine.Preview(solidPNG(t, 40, 30), snapshot.CategoryImage)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	cfg := decodeConfig(t, preview)
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("small image resized to %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPreview_Failure(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds = map[snapshot.Category]int64{snapshot.CategoryImage: 0}
	engine := setupEngine(t, policy)

	if _, err := engine.Preview([]byte("not an image"), snapshot.CategoryImage); !errors.Is(err, ErrPreview) {
		t.Errorf("expected ErrPreview, got %v", err)
	}

	p, err := engine.Place([]byte("not an image"), "broken", snapshot.CategoryImage)
	if err != nil {
		t.Fatalf("Place() should tolerate preview failure: %v", err)
	}
	if !p.Spilled() || p.PreviewData != nil {
		t.Errorf("expected spilled payload without preview, got %+v", p)
	}
}

func TestPreview_PDF(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	preview, err := engine.Preview(minimalPDF("Hello PDF"), snapshot.CategoryPDF)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	cfg := decodeConfig(t, preview)
	if cfg.Width != DefaultPDFWidth || cfg.Height != DefaultPDFHeight {
		t.Errorf("pdf preview is %dx%d, want %dx%d", cfg.Width, cfg.Height, DefaultPDFWidth, DefaultPDFHeight)
	}

	img, err := png.Decode(bytes.NewReader(preview))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	inked := false
	for y := 0; y < 200 && !inked; y++ {
		for x := 0; x < cfg.Width; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Error("expected page text to be drawn near the top of the preview")
	}
}

func TestPlace_WriteFailureFallback(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0644); err != nil {
		t.Fatalf("failed to create blocker: %v", err)
	}

	policy := DefaultPolicy()
	policy.InlineThreshold = 16
	policy.Thresholds = map[snapshot.Category]int64{snapshot.CategoryText: 0}
	engine := NewEngine(NewFSWithRoot(filepath.Join(blocker, "payloads")), policy, nil)

	small := []byte("fits inline")
	p, err := engine.Place(small, "small", snapshot.CategoryText)
	if err != nil {
		t.Fatalf("Place() should fall back to inline: %v", err)
	}
	if p.Spilled() || !bytes.Equal(p.PreviewData, small) {
		t.Errorf("expected inline fallback, got %+v", p)
	}

	large := bytes.Repeat([]byte("x"), 17)
	if _, err := engine.Place(large, "large", snapshot.CategoryText); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed, got %v", err)
	}
}

func TestURL(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds = map[snapshot.Category]int64{snapshot.CategoryPDF: 0}
	engine := setupEngine(t, policy)

	if _, ok := engine.URL("doc", snapshot.CategoryPDF); ok {
		t.Error("URL() reported a file that does not exist")
	}

	p, err := engine.Place([]byte("%PDF-not-really"), "doc", snapshot.CategoryPDF)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	path, ok := engine.URL("doc", snapshot.CategoryPDF)
	if !ok || path != p.FilePath {
		t.Errorf("URL() = %q, %v; want %q, true", path, ok, p.FilePath)
	}
}

func TestRemoveAndRemoveAll(t *testing.T) {
	policy := DefaultPolicy()
	policy.Thresholds = map[snapshot.Category]int64{snapshot.CategoryText: 0}
	engine := setupEngine(t, policy)

	for _, id := range []string{"one", "two", "three"} {
		if _, err := engine.Place([]byte(id), id, snapshot.CategoryText); err != nil {
			t.Fatalf("Place(%s) error = %v", id, err)
		}
	}

	if err := engine.Remove("one", snapshot.CategoryText); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := engine.Remove("one", snapshot.CategoryText); err != nil {
		t.Errorf("second Remove() should be a no-op, got %v", err)
	}
	if _, err := engine.Load("one", snapshot.CategoryText); !errors.Is(err, ErrContentUnavailable) {
		t.Errorf("expected removed payload to be unavailable, got %v", err)
	}

	files, err := engine.Spilled()
	if err != nil {
		t.Fatalf("Spilled() error = %v", err)
	}
	if len(files) != 2 || files["two"][0] != "two.txt" {
		t.Errorf("Spilled() = %v", files)
	}

	if err := engine.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	entries, _ := os.ReadDir(engine.Dir())
	if len(entries) != 0 {
		t.Errorf("RemoveAll() left %d files", len(entries))
	}
}

func TestPayload_Tiers(t *testing.T) {
	engine := setupEngine(t, DefaultPolicy())

	textOnly := &snapshot.Snapshot{ID: "t", Content: "hello", Category: snapshot.CategoryText}
	got, err := engine.Open(textOnly).Full()
	if err != nil || string(got) != "hello" {
		t.Errorf("Full() = %q, %v; want content", got, err)
	}
	if engine.Open(textOnly).Preview() != nil {
		t.Error("Preview() should be nil without preview data")
	}

	missing := &snapshot.Snapshot{
		ID:          "gone",
		Category:    snapshot.CategoryImage,
		PreviewData: []byte("thumb"),
		FilePath:    filepath.Join(engine.Dir(), "gone.img"),
	}
	payload := engine.Open(missing)
	if string(payload.Preview()) != "thumb" {
		t.Errorf("Preview() = %q, want thumb", payload.Preview())
	}
	if _, err := payload.Full(); !errors.Is(err, ErrContentUnavailable) {
		t.Errorf("expected ErrContentUnavailable for missing spill, got %v", err)
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, bound  int
		wantW, wantH int
	}{
		{800, 600, 200, 200, 150},
		{600, 800, 200, 150, 200},
		{100, 50, 200, 100, 50},
		{4000, 1, 200, 200, 1},
		{0, 10, 200, 0, 0},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.bound)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %d, %d; want %d, %d", tt.w, tt.h, tt.bound, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestWrapLines(t *testing.T) {
	lines := wrapLines("the quick brown fox\njumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if len(lines) != len(want) {
		t.Fatalf("wrapLines() = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
