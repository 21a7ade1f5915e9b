package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/clipped/internal/snapshot"
)

type styles struct {
	index    lipgloss.Style
	id       lipgloss.Style
	when     lipgloss.Style
	size     lipgloss.Style
	category map[snapshot.Category]lipgloss.Style
	fallback lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	badge := func(color string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(color)).Width(9)
	}
	return styles{
		index: r.NewStyle().Bold(true).Width(4).Align(lipgloss.Right),
		id:    r.NewStyle().Foreground(lipgloss.Color("8")),
		when:  r.NewStyle().Foreground(lipgloss.Color("8")),
		size:  r.NewStyle().Foreground(lipgloss.Color("3")),
		category: map[snapshot.Category]lipgloss.Style{
			snapshot.CategoryText:  badge("7"),
			snapshot.CategoryLink:  badge("12"),
			snapshot.CategoryHTML:  badge("13"),
			snapshot.CategoryImage: badge("10"),
			snapshot.CategoryPDF:   badge("9"),
			snapshot.CategoryFile:  badge("11"),
		},
		fallback: badge("8"),
	}
}

// row renders one history entry as a single line.
func (st styles) row(s *snapshot.Snapshot, index int, fullID bool) string {
	category, ok := st.category[s.Category]
	if !ok {
		category = st.fallback
	}

	parts := []string{
		st.index.Render(fmt.Sprintf("%d", index)),
		category.Render(string(s.Category)),
		st.when.Render(relativeTime(s.Timestamp, time.Now())),
	}
	if fullID {
		parts = append(parts, st.id.Render(s.ID))
	}
	parts = append(parts, s.Preview())
	if s.Spilled() {
		parts = append(parts, st.size.Render(formatSize(s.FileSize)))
	}
	return strings.Join(parts, "  ")
}

// relativeTime formats t relative to now for listings.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
