// Package monitor watches the clipboard change counter and records every new
// clipboard entry in the history.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yiblet/clipped/internal/capture"
	"github.com/yiblet/clipped/internal/classify"
	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/history"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/store"
)

// DefaultInterval is the polling interval.
const DefaultInterval = time.Second

// ErrRunning is returned by Start when the monitor is already running.
var ErrRunning = errors.New("monitor already running")

// State is the observer's position in the capture pipeline.
type State int32

const (
	Idle State = iota
	Detecting
	Classifying
	Persisting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Detecting:
		return "detecting"
	case Classifying:
		return "classifying"
	case Persisting:
		return "persisting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Result describes one processed clipboard change.
type Result struct {
	// Snapshot is the recorded snapshot, or the existing one for a duplicate.
	Snapshot *snapshot.Snapshot

	// Inserted is false when the change duplicated an existing record.
	Inserted bool
}

// Stats counts what the monitor has done since it was created.
type Stats struct {
	Ticks      int64
	Changes    int64
	Captures   int64
	Duplicates int64
	Misses     int64
	Failures   int64
}

// Monitor polls a clipboard.Board on a fixed interval. A single ticker
// goroutine reads the change counter and hands changes to a single worker
// through a one-slot queue; while the worker is busy, ticks are skipped, so
// counter reads never overlap with processing.
type Monitor struct {
	board      clipboard.Board
	classifier *classify.Classifier
	builder    *capture.Builder
	repo       *history.Repository
	interval   time.Duration
	logger     *slog.Logger
	onCapture  func(*snapshot.Snapshot)

	lastChange atomic.Int64
	state      atomic.Int32
	busy       atomic.Bool
	procMu     sync.Mutex

	ticks, changes, captures, duplicates, misses, failures atomic.Int64

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithOnCapture registers a hook called after every inserted snapshot.
// The hook runs on the worker goroutine and must not block.
func WithOnCapture(fn func(*snapshot.Snapshot)) Option {
	return func(m *Monitor) {
		m.onCapture = fn
	}
}

// New creates a stopped Monitor.
func New(board clipboard.Board, classifier *classify.Classifier, builder *capture.Builder, repo *history.Repository, opts ...Option) *Monitor {
	m := &Monitor{
		board:      board,
		classifier: classifier,
		builder:    builder,
		repo:       repo,
		interval:   DefaultInterval,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastChange.Store(board.ChangeCount())
	return m
}

// Start begins polling. The current change counter becomes the baseline, so
// whatever is on the clipboard at Start, including a write made while the
// monitor was stopped, is not captured.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.runningLocked() {
		return ErrRunning
	}

	m.lastChange.Store(m.board.ChangeCount())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	jobs := make(chan int64, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.pollLoop(runCtx, jobs)
	}()
	go func() {
		defer wg.Done()
		m.work(jobs)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	m.parent = ctx
	m.cancel = cancel
	m.done = done
	m.logger.Debug("monitor started", "interval", m.interval)
	return nil
}

// Resume restarts a stopped monitor under the context it was last started
// with.
func (m *Monitor) Resume() error {
	m.mu.Lock()
	parent := m.parent
	m.mu.Unlock()

	if parent == nil {
		parent = context.Background()
	}
	return m.Start(parent)
}

// Stop stops polling and waits for an in-flight change to finish processing.
// It reports whether the monitor was running. Stop is safe to call at any
// point in the pipeline and from any goroutine except an OnCapture hook.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return false
	}
	wasRunning := m.runningLocked()

	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	if wasRunning {
		m.logger.Debug("monitor stopped")
	}
	return wasRunning
}

// Running reports whether the monitor is polling.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runningLocked()
}

func (m *Monitor) runningLocked() bool {
	if m.cancel == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// State returns the current pipeline state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Stats returns a copy of the monitor counters.
func (m *Monitor) Stats() Stats {
	return Stats{
		Ticks:      m.ticks.Load(),
		Changes:    m.changes.Load(),
		Captures:   m.captures.Load(),
		Duplicates: m.duplicates.Load(),
		Misses:     m.misses.Load(),
		Failures:   m.failures.Load(),
	}
}

func (m *Monitor) pollLoop(ctx context.Context, jobs chan<- int64) {
	defer close(jobs)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(jobs)
		}
	}
}

// poll reads the change counter and queues a job when it moved. The counter
// is recorded before the job runs, so a slow job is never queued twice.
func (m *Monitor) poll(jobs chan<- int64) {
	m.ticks.Add(1)
	if !m.busy.CompareAndSwap(false, true) {
		return
	}

	count := m.board.ChangeCount()
	if count == m.lastChange.Load() {
		m.busy.Store(false)
		return
	}
	m.lastChange.Store(count)

	// The worker clears busy only after draining its job, so the slot is free.
	jobs <- count
}

func (m *Monitor) work(jobs <-chan int64) {
	for count := range jobs {
		if _, err := m.process(); err != nil {
			m.logger.Debug("change not captured", "change_count", count, "err", err)
		}
		m.busy.Store(false)
	}
}

// Tick runs one poll synchronously: it reads the change counter and, if it
// moved, captures the clipboard. It returns nil, nil when nothing changed or
// when another capture is in flight.
func (m *Monitor) Tick() (*Result, error) {
	m.ticks.Add(1)
	if !m.busy.CompareAndSwap(false, true) {
		return nil, nil
	}
	defer m.busy.Store(false)

	count := m.board.ChangeCount()
	if count == m.lastChange.Load() {
		return nil, nil
	}
	m.lastChange.Store(count)
	return m.process()
}

// CaptureNow captures the current clipboard contents regardless of the
// change counter.
func (m *Monitor) CaptureNow() (*Result, error) {
	m.lastChange.Store(m.board.ChangeCount())
	return m.process()
}

// process runs the capture pipeline once. Failures are counted and logged;
// they never stop the monitor.
func (m *Monitor) process() (*Result, error) {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	defer m.state.Store(int32(Idle))

	m.changes.Add(1)
	m.state.Store(int32(Detecting))

	if !m.board.IsSupported() {
		m.failures.Add(1)
		return nil, fmt.Errorf("failed to read clipboard: %w", clipboard.ErrUnsupported)
	}

	m.state.Store(int32(Classifying))
	res, err := m.classifier.Classify(m.board)
	if err != nil {
		m.misses.Add(1)
		return nil, err
	}

	m.state.Store(int32(Persisting))

	// Skip placement when the payload is already recorded.
	existing, err := m.repo.FindMatch(&store.Match{
		Content:    res.Content,
		SourceType: res.SourceType,
		Checksum:   capture.Checksum(res.Data),
	})
	if err == nil {
		m.duplicates.Add(1)
		m.logger.Debug("duplicate skipped", "id", existing.ID, "category", existing.Category)
		return &Result{Snapshot: existing}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		m.failures.Add(1)
		m.logger.Warn("dedup lookup failed", "err", err)
		return nil, err
	}

	candidate, err := m.builder.Build(res)
	if err != nil {
		m.failures.Add(1)
		m.logger.Error("capture dropped", "category", res.Category, "size", len(res.Data), "err", err)
		return nil, err
	}

	snap, inserted, err := m.repo.InsertUnlessDuplicate(candidate)
	if err != nil {
		m.failures.Add(1)
		m.logger.Error("failed to record snapshot", "id", candidate.ID, "err", err)
		return nil, err
	}
	if !inserted {
		m.duplicates.Add(1)
		return &Result{Snapshot: snap}, nil
	}

	m.captures.Add(1)
	m.logger.Info("captured",
		"id", snap.ID,
		"category", snap.Category,
		"source_type", snap.SourceType,
		"size", len(res.Data),
		"spilled", snap.Spilled(),
	)
	if m.onCapture != nil {
		m.onCapture(snap)
	}
	return &Result{Snapshot: snap, Inserted: true}, nil
}
