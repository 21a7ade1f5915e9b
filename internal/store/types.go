package store

import (
	"fmt"
	"regexp"

	"github.com/yiblet/clipped/internal/snapshot"
)

// Match is an exact-match query used for deduplication.
type Match struct {
	// Content must equal the snapshot content exactly.
	Content string

	// SourceType must equal the snapshot representation exactly.
	SourceType snapshot.Representation

	// Checksum refines the match when both sides carry one. An empty
	// checksum on either side matches any checksum.
	Checksum string
}

// MatchFor builds the dedup query for a snapshot.
func MatchFor(s *snapshot.Snapshot) *Match {
	return &Match{
		Content:    s.Content,
		SourceType: s.SourceType,
		Checksum:   s.Checksum,
	}
}

// Matches reports whether s satisfies the query.
func (m *Match) Matches(s *snapshot.Snapshot) bool {
	if s.Content != m.Content || s.SourceType != m.SourceType {
		return false
	}
	return m.Checksum == "" || s.Checksum == "" || s.Checksum == m.Checksum
}

// SearchQuery contains parameters for searching snapshots.
type SearchQuery struct {
	// Pattern is the regex pattern to search content for.
	Pattern string

	// Category restricts results to one category when non-empty.
	Category snapshot.Category

	// Limit is the maximum number of results to return.
	// A value of 0 means no limit.
	Limit int

	// CaseSensitive indicates whether the search is case-sensitive.
	CaseSensitive bool
}

// Empty reports whether the query selects nothing: no pattern and no
// category.
func (q *SearchQuery) Empty() bool {
	return q.Pattern == "" && q.Category == ""
}

// Compile compiles the query pattern. An empty pattern matches any content.
func (q *SearchQuery) Compile() (*regexp.Regexp, error) {
	pattern := q.Pattern
	if !q.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	return re, nil
}
