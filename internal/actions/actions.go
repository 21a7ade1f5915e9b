// Package actions implements the operator-facing clipboard operations: copy a
// recorded snapshot back to the clipboard, add, delete and clear entries, and
// hand text entries to an external summarizer or tagger.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/yiblet/clipped/internal/capture"
	"github.com/yiblet/clipped/internal/classify"
	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/history"
	"github.com/yiblet/clipped/internal/monitor"
	"github.com/yiblet/clipped/internal/snapshot"
)

var (
	// ErrEmpty is returned by AddItem for blank input.
	ErrEmpty = errors.New("empty content")

	// ErrNotText is returned when an assist call targets a non-text snapshot.
	ErrNotText = errors.New("snapshot is not text")

	// ErrNoAssist is returned when no summarizer or tagger is configured.
	ErrNoAssist = errors.New("assist service not configured")
)

// Summarizer condenses text into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Tagger derives descriptive tags from text.
type Tagger interface {
	Tags(ctx context.Context, text string) ([]string, error)
}

// Actions bundles the operations that act on the history and the clipboard.
type Actions struct {
	repo       *history.Repository
	board      clipboard.Board
	monitor    *monitor.Monitor
	classifier *classify.Classifier
	builder    *capture.Builder
	summarizer Summarizer
	tagger     Tagger
	logger     *slog.Logger

	// copyMu holds the observer stopped for the whole of one write.
	copyMu sync.Mutex
}

// Option configures Actions.
type Option func(*Actions)

// WithMonitor sets the observer that is paused around clipboard writes.
func WithMonitor(m *monitor.Monitor) Option {
	return func(a *Actions) {
		a.monitor = m
	}
}

// WithSummarizer sets the summarizer used by Summarize.
func WithSummarizer(s Summarizer) Option {
	return func(a *Actions) {
		a.summarizer = s
	}
}

// WithTagger sets the tagger used by Tags.
func WithTagger(t Tagger) Option {
	return func(a *Actions) {
		a.tagger = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Actions) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates Actions over repo and board. The classifier and builder must be
// the ones the observer uses so manual and automatic entries dedup alike.
func New(repo *history.Repository, board clipboard.Board, classifier *classify.Classifier, builder *capture.Builder, opts ...Option) *Actions {
	a := &Actions{
		repo:       repo,
		board:      board,
		classifier: classifier,
		builder:    builder,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CopyToClipboard writes the snapshot's full payload back to the clipboard
// under its original representation. The observer is stopped for the write
// and restarted afterwards, so the write is never captured as a new entry.
func (a *Actions) CopyToClipboard(ctx context.Context, s *snapshot.Snapshot) error {
	data, err := a.repo.Engine().Open(s).Full()
	if err != nil {
		return fmt.Errorf("failed to load snapshot %s: %w", s.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.copyMu.Lock()
	defer a.copyMu.Unlock()

	wasRunning := false
	if a.monitor != nil {
		wasRunning = a.monitor.Stop()
	}

	writeErr := a.board.Write(s.SourceType, data)

	if wasRunning {
		if err := a.monitor.Resume(); err != nil {
			a.logger.Warn("failed to restart monitor", "err", err)
		}
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write clipboard: %w", writeErr)
	}
	a.logger.Info("copied to clipboard", "id", s.ID, "source_type", s.SourceType, "size", len(data))
	return nil
}

// CopyByID looks up a snapshot and copies it to the clipboard.
func (a *Actions) CopyByID(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	s, err := a.repo.Get(id)
	if err != nil {
		return nil, err
	}
	return s, a.CopyToClipboard(ctx, s)
}

// AddItem records content as if it had been copied as plain text. It returns
// the recorded snapshot and whether a new record was created; a duplicate
// resolves to the existing snapshot.
func (a *Actions) AddItem(content string) (*snapshot.Snapshot, bool, error) {
	if strings.TrimSpace(content) == "" {
		return nil, false, ErrEmpty
	}
	res, err := a.classifier.Classify(textSource(content))
	if err != nil {
		return nil, false, err
	}

	candidate, err := a.builder.Build(res)
	if err != nil {
		return nil, false, err
	}

	s, inserted, err := a.repo.InsertUnlessDuplicate(candidate)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		a.logger.Info("added", "id", s.ID, "category", s.Category)
	}
	return s, inserted, nil
}

// DeleteItem removes one snapshot and its spilled payload.
func (a *Actions) DeleteItem(id string) error {
	return a.repo.Delete(id)
}

// ClearHistory removes every snapshot and every spilled payload.
func (a *Actions) ClearHistory() error {
	return a.repo.Clear()
}

// Summarize returns a summary of a text snapshot's full content.
func (a *Actions) Summarize(ctx context.Context, s *snapshot.Snapshot) (string, error) {
	if a.summarizer == nil {
		return "", ErrNoAssist
	}
	text, err := a.fullText(s)
	if err != nil {
		return "", err
	}
	summary, err := a.summarizer.Summarize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", s.ID, err)
	}
	return summary, nil
}

// Tags returns tags for a text snapshot's full content.
func (a *Actions) Tags(ctx context.Context, s *snapshot.Snapshot) ([]string, error) {
	if a.tagger == nil {
		return nil, ErrNoAssist
	}
	text, err := a.fullText(s)
	if err != nil {
		return nil, err
	}
	tags, err := a.tagger.Tags(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to tag %s: %w", s.ID, err)
	}
	return tags, nil
}

func (a *Actions) fullText(s *snapshot.Snapshot) (string, error) {
	if !s.Category.IsTextual() {
		return "", fmt.Errorf("%s (%s): %w", s.ID, s.Category, ErrNotText)
	}
	data, err := a.repo.Engine().Open(s).Full()
	if err != nil {
		return "", fmt.Errorf("failed to load snapshot %s: %w", s.ID, err)
	}
	return string(data), nil
}

// textSource offers a single plain-text representation.
type textSource string

func (t textSource) Types() []snapshot.Representation {
	return []snapshot.Representation{snapshot.TypeString}
}

func (t textSource) String(r snapshot.Representation) (string, error) {
	if r != snapshot.TypeString {
		return "", fmt.Errorf("%s: %w", r, clipboard.ErrNotOffered)
	}
	return string(t), nil
}

func (t textSource) Data(r snapshot.Representation) ([]byte, error) {
	if r != snapshot.TypeString {
		return nil, fmt.Errorf("%s: %w", r, clipboard.ErrNotOffered)
	}
	return []byte(t), nil
}

var _ classify.Source = textSource("")
