// Package mockboard provides an in-memory clipboard.Board for tests and demos.
package mockboard

import (
	"fmt"
	"slices"
	"sync"

	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/snapshot"
)

// MockClipboard implements clipboard.Board in memory. Every Set or Write
// bumps the change counter, like a real pasteboard.
type MockClipboard struct {
	mu          sync.Mutex
	items       []clipboard.Item
	changeCount int64
	writes      int
	reads       int
}

// New creates an empty MockClipboard.
func New() *MockClipboard {
	return &MockClipboard{}
}

// Set replaces the clipboard contents as an external application would.
func (m *MockClipboard) Set(items ...clipboard.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = slices.Clone(items)
	m.changeCount++
}

// SetString is shorthand for Set with a single text representation.
func (m *MockClipboard) SetString(t snapshot.Representation, s string) {
	m.Set(clipboard.Item{Type: t, Data: []byte(s)})
}

// ChangeCount implements clipboard.Board.
func (m *MockClipboard) ChangeCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changeCount
}

// Types implements clipboard.Board.
func (m *MockClipboard) Types() []snapshot.Representation {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]snapshot.Representation, len(m.items))
	for i, it := range m.items {
		types[i] = it.Type
	}
	return types
}

// String implements clipboard.Board.
func (m *MockClipboard) String(t snapshot.Representation) (string, error) {
	data, err := m.Data(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Data implements clipboard.Board.
func (m *MockClipboard) Data(t snapshot.Representation) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	for _, it := range m.items {
		if it.Type == t {
			return slices.Clone(it.Data), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", t, clipboard.ErrNotOffered)
}

// Write implements clipboard.Board.
func (m *MockClipboard) Write(t snapshot.Representation, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = []clipboard.Item{{Type: t, Data: slices.Clone(data)}}
	m.changeCount++
	m.writes++
	return nil
}

// Writes returns how many times Write was called (for testing).
func (m *MockClipboard) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Reads returns how many payload reads were made (for testing).
func (m *MockClipboard) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Items returns a copy of the current contents (for testing).
func (m *MockClipboard) Items() []clipboard.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items)
}

// IsSupported always returns true for the mock clipboard.
func (m *MockClipboard) IsSupported() bool {
	return true
}
