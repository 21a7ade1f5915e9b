package classify

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/clipboard/mockboard"
	"github.com/yiblet/clipped/internal/snapshot"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestIsLink(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://www.example.com/page", true},
		{"http://example.com", true},
		{"example.com", true},
		{"www.example.co.uk/path?q=1", true},
		{"sub.domain.example.org.", true},
		{"  https://example.com  ", true},
		{"hello world", false},
		{"hello", false},
		{"a..b.com", false},
		{"example.c", false},
		{"1.2.3", false},
		{"https://example.com/a b", false},
		{"localhost:8080", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsLink(tt.input); got != tt.want {
				t.Errorf("IsLink(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassify_StringLinkHeuristic(t *testing.T) {
	c := New(nil)
	inputs := []string{
		"https://www.example.com/page",
		"example.org",
		"hello world",
		"no-dots-here",
		"two..dots.com",
		"final.x",
	}

	for _, s := range inputs {
		board := mockboard.New()
		board.SetString(snapshot.TypeString, s)

		res, err := c.Classify(board)
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", s, err)
		}
		if IsLink(s) && res.Category != snapshot.CategoryLink {
			t.Errorf("Classify(%q) = %s, want link", s, res.Category)
		}
		if !IsLink(s) && res.Category == snapshot.CategoryLink {
			t.Errorf("Classify(%q) = link for a non-link", s)
		}
	}
}

func TestClassify_PlainText(t *testing.T) {
	board := mockboard.New()
	board.SetString(snapshot.TypeString, "hello world")

	res, err := New(nil).Classify(board)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Category != snapshot.CategoryText {
		t.Errorf("expected text, got %s", res.Category)
	}
	if res.Content != "hello world" {
		t.Errorf("expected content %q, got %q", "hello world", res.Content)
	}
	if res.SourceType != snapshot.TypeString {
		t.Errorf("expected source type %s, got %s", snapshot.TypeString, res.SourceType)
	}
}

func TestClassify_Link(t *testing.T) {
	board := mockboard.New()
	board.SetString(snapshot.TypeString, "https://www.example.com/page")

	res, err := New(nil).Classify(board)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Category != snapshot.CategoryLink {
		t.Errorf("expected link, got %s", res.Category)
	}
	if res.Content != "https://www.example.com/page" {
		t.Errorf("unexpected content %q", res.Content)
	}
}

func TestClassify_Precedence(t *testing.T) {
	pngData := encodePNG(t, 3, 2)

	tests := []struct {
		name         string
		items        []clipboard.Item
		wantCategory snapshot.Category
		wantType     snapshot.Representation
		wantContent  string
	}{
		{
			name: "url beats string",
			items: []clipboard.Item{
				{Type: snapshot.TypeString, Data: []byte("just text")},
				{Type: snapshot.TypeURL, Data: []byte("https://example.com")},
			},
			wantCategory: snapshot.CategoryLink,
			wantType:     snapshot.TypeURL,
			wantContent:  "https://example.com",
		},
		{
			name: "string beats image",
			items: []clipboard.Item{
				{Type: snapshot.TypePNG, Data: pngData},
				{Type: snapshot.TypeString, Data: []byte("caption")},
			},
			wantCategory: snapshot.CategoryText,
			wantType:     snapshot.TypeString,
			wantContent:  "caption",
		},
		{
			name: "image beats pdf",
			items: []clipboard.Item{
				{Type: snapshot.TypePDF, Data: []byte("%PDF-1.4")},
				{Type: snapshot.TypePNG, Data: pngData},
			},
			wantCategory: snapshot.CategoryImage,
			wantType:     snapshot.TypePNG,
			wantContent:  "Image (3×2)",
		},
		{
			name: "empty string falls through",
			items: []clipboard.Item{
				{Type: snapshot.TypeString, Data: nil},
				{Type: snapshot.TypePDF, Data: []byte("%PDF-1.4")},
			},
			wantCategory: snapshot.CategoryPDF,
			wantType:     snapshot.TypePDF,
			wantContent:  "PDF Document",
		},
		{
			name: "pdf beats file reference",
			items: []clipboard.Item{
				{Type: snapshot.TypeFileURL, Data: []byte("file:///tmp/a.pdf")},
				{Type: snapshot.TypePDF, Data: []byte("%PDF-1.4")},
			},
			wantCategory: snapshot.CategoryPDF,
			wantType:     snapshot.TypePDF,
			wantContent:  "PDF Document",
		},
		{
			name: "file reference",
			items: []clipboard.Item{
				{Type: "com.apple.notes", Data: []byte("x")},
				{Type: snapshot.TypeFileURL, Data: []byte("file:///Users/me/report.pdf")},
			},
			wantCategory: snapshot.CategoryFile,
			wantType:     snapshot.TypeFileURL,
			wantContent:  "report.pdf",
		},
		{
			name: "unknown representation",
			items: []clipboard.Item{
				{Type: "com.apple.notes", Data: []byte("x")},
			},
			wantCategory: snapshot.CategoryUnknown,
			wantType:     "com.apple.notes",
			wantContent:  "Notes",
		},
		{
			name: "equal rank keeps reported order",
			items: []clipboard.Item{
				{Type: snapshot.TypeTIFF, Data: []byte("not really a tiff")},
				{Type: snapshot.TypePNG, Data: pngData},
			},
			wantCategory: snapshot.CategoryImage,
			wantType:     snapshot.TypeTIFF,
			wantContent:  "Image",
		},
	}

	c := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := mockboard.New()
			board.Set(tt.items...)

			res, err := c.Classify(board)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if res.Category != tt.wantCategory {
				t.Errorf("category = %s, want %s", res.Category, tt.wantCategory)
			}
			if res.SourceType != tt.wantType {
				t.Errorf("source type = %s, want %s", res.SourceType, tt.wantType)
			}
			if res.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", res.Content, tt.wantContent)
			}
		})
	}
}

func TestClassify_HTML(t *testing.T) {
	board := mockboard.New()
	board.SetString(snapshot.TypeHTML, "<p>Hello <b>world</b></p>")

	res, err := New(nil).Classify(board)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Category != snapshot.CategoryHTML {
		t.Errorf("expected html, got %s", res.Category)
	}
	if !strings.Contains(res.Content, "world") || strings.Contains(res.Content, "<p>") {
		t.Errorf("expected markdown summary, got %q", res.Content)
	}
	if string(res.Data) != "<p>Hello <b>world</b></p>" {
		t.Errorf("raw html not preserved: %q", res.Data)
	}
}

func TestClassify_RTF(t *testing.T) {
	board := mockboard.New()
	board.SetString(snapshot.TypeRTF, `{\rtf1\ansi\deff0 {\fonttbl {\f0 Helvetica;}}\f0\pard Hello RTF\par}`)

	res, err := New(nil).Classify(board)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Category != snapshot.CategoryText {
		t.Errorf("expected text, got %s", res.Category)
	}
	if !strings.Contains(res.Content, "Hello RTF") {
		t.Errorf("expected stripped text, got %q", res.Content)
	}
	if strings.Contains(res.Content, `\rtf1`) {
		t.Errorf("control words leaked: %q", res.Content)
	}
}

func TestClassify_NoMatch(t *testing.T) {
	c := New(nil)

	board := mockboard.New()
	if _, err := c.Classify(board); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch for empty clipboard, got %v", err)
	}

	board.Set(
		clipboard.Item{Type: snapshot.TypeString, Data: nil},
		clipboard.Item{Type: snapshot.TypePNG, Data: []byte{}},
	)
	if _, err := c.Classify(board); !errors.Is(err, ErrNoMatch) {
		t.Errorf("expected ErrNoMatch for empty payloads, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"file:///Users/me/report.pdf", "report.pdf"},
		{"file:///Users/me/My%20Folder/", "My Folder"},
		{"/tmp/notes.txt", "notes.txt"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := fileName(tt.ref); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
