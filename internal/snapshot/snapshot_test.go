package snapshot

import (
	"strings"
	"testing"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestCategory_Extension(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryText, "txt"},
		{CategoryImage, "img"},
		{CategoryPDF, "pdf"},
		{CategoryHTML, "html"},
		{CategoryLink, "data"},
		{CategoryFile, "data"},
		{CategoryUnknown, "data"},
	}

	for _, tt := range tests {
		if got := tt.category.Extension(); got != tt.want {
			t.Errorf("%s.Extension() = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil {
			t.Fatalf("ParseCategory(%q) error = %v", c, err)
		}
		if got != c {
			t.Errorf("ParseCategory(%q) = %q", c, got)
		}
	}

	if _, err := ParseCategory("video"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRepresentation_TrailingName(t *testing.T) {
	tests := []struct {
		rep  Representation
		want string
	}{
		{"application/x-custom", "x-custom"},
		{"com.example.widget", "widget"},
		{"dyn.ah62d4rv4gu8y", "ah62d4rv4gu8y"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := tt.rep.TrailingName(); got != tt.want {
			t.Errorf("TrailingName(%q) = %q, want %q", tt.rep, got, tt.want)
		}
	}
}

func TestSnapshot_Preview(t *testing.T) {
	long := strings.Repeat("a", 80)

	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"short text", Snapshot{Category: CategoryText, Content: "hello\nworld"}, "hello world"},
		{"long text", Snapshot{Category: CategoryText, Content: long}, strings.Repeat("a", 50) + "..."},
		{"image", Snapshot{Category: CategoryImage, Content: "Image (10×10)"}, "[Image] Image (10×10)"},
		{"link", Snapshot{Category: CategoryLink, Content: "https://www.example.com/page"}, "Link to Example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.Preview(); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLinkLabel(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/page": "Example",
		"http://github.com":            "Github",
		"docs.go.dev":                  "Docs",
	}
	for in, want := range tests {
		if got := LinkLabel(in); got != want {
			t.Errorf("LinkLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnapshot_Spilled(t *testing.T) {
	s := &Snapshot{}
	if s.Spilled() || s.HasPreview() {
		t.Error("empty snapshot should be neither spilled nor previewed")
	}

	s = &Snapshot{FilePath: "/tmp/x.png", PreviewData: []byte{1}}
	if !s.Spilled() || !s.HasPreview() {
		t.Error("expected spilled snapshot with preview")
	}
}
