package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/yiblet/clipped/internal/actions"
	"github.com/yiblet/clipped/internal/capture"
	"github.com/yiblet/clipped/internal/classify"
	"github.com/yiblet/clipped/internal/clipboard"
	"github.com/yiblet/clipped/internal/clipboard/sysboard"
	"github.com/yiblet/clipped/internal/config"
	"github.com/yiblet/clipped/internal/history"
	"github.com/yiblet/clipped/internal/logging"
	"github.com/yiblet/clipped/internal/monitor"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/storage"
	"github.com/yiblet/clipped/internal/store"
	"github.com/yiblet/clipped/internal/store/dbstore"
)

// CLI handles the command-line interface
type CLI struct {
	config        *config.Config
	configManager *config.ConfigManager
	repo          *history.Repository
	engine        *storage.Engine
	classifier    *classify.Classifier
	builder       *capture.Builder
	logger        *slog.Logger

	newBoard func() clipboard.Board
	board    clipboard.Board

	in     io.Reader
	out    io.Writer
	styles styles
}

// NewWithArgs creates a CLI from the config file and flag overrides, backed
// by the SQLite history in the data directory and the system clipboard.
func NewWithArgs(args *Args) (*CLI, error) {
	if args == nil {
		args = &Args{}
	}

	var cm *config.ConfigManager
	if args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, err
		}
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if args.DataDir != nil {
		cfg.DataDir = *args.DataDir
	}
	if args.LogLevel != nil {
		cfg.LogLevel = *args.LogLevel
	}
	if args.LogFormat != nil {
		cfg.LogFormat = *args.LogFormat
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(format, level)

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	pfs, err := storage.NewFS(dataDir)
	if err != nil {
		return nil, err
	}

	sqliteStore, err := dbstore.NewSQLiteStore(filepath.Join(dataDir, config.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create database store: %w", err)
	}

	engine := storage.NewEngine(pfs, cfg.Policy(), logger)
	return newCLI(cfg, cm, sqliteStore, engine, func() clipboard.Board {
		return sysboard.New(logger)
	}, logger), nil
}

func newCLI(cfg *config.Config, cm *config.ConfigManager, s store.SnapshotStore, engine *storage.Engine, newBoard func() clipboard.Board, logger *slog.Logger) *CLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLI{
		config:        cfg,
		configManager: cm,
		repo:          history.New(s, engine, cfg.HistoryLimit, logger),
		engine:        engine,
		classifier:    classify.New(logger),
		builder:       capture.NewBuilder(engine, logger),
		logger:        logger,
		newBoard:      newBoard,
		in:            os.Stdin,
		out:           os.Stdout,
		styles:        newStyles(lipgloss.NewRenderer(os.Stdout)),
	}
}

// Close releases the history database.
func (c *CLI) Close() error {
	return c.repo.Close()
}

// openBoard opens the clipboard on first use; most commands never touch it.
func (c *CLI) openBoard() clipboard.Board {
	if c.board == nil {
		c.board = c.newBoard()
	}
	return c.board
}

func (c *CLI) newMonitor(opts ...monitor.Option) *monitor.Monitor {
	opts = append([]monitor.Option{
		monitor.WithInterval(c.config.Interval()),
		monitor.WithLogger(c.logger),
	}, opts...)
	return monitor.New(c.openBoard(), c.classifier, c.builder, c.repo, opts...)
}

func (c *CLI) newActions(m *monitor.Monitor) *actions.Actions {
	opts := []actions.Option{actions.WithLogger(c.logger)}
	if m != nil {
		opts = append(opts, actions.WithMonitor(m))
	}
	return actions.New(c.repo, c.openBoard(), c.classifier, c.builder, opts...)
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(ctx context.Context, args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	switch {
	case args.Watch != nil:
		return c.executeWatch(ctx, args.Watch)
	case args.Capture != nil:
		return c.executeCapture(args.Capture)
	case args.List != nil:
		return c.executeList(args.List)
	case args.Show != nil:
		return c.executeShow(args.Show)
	case args.Path != nil:
		return c.executePath(args.Path)
	case args.Copy != nil:
		return c.executeCopy(ctx, args.Copy)
	case args.Add != nil:
		return c.executeAdd(args.Add)
	case args.Delete != nil:
		return c.executeDelete(args.Delete)
	case args.Clear != nil:
		return c.executeClear(args.Clear)
	case args.Config != nil:
		return c.executeConfig(args.Config)
	default:
		return c.executeList(&ListCmd{Limit: 20})
	}
}

// executeWatch handles the 'clipped watch' command
func (c *CLI) executeWatch(ctx context.Context, cmd *WatchCmd) error {
	interval := c.config.Interval()
	if cmd.Interval != nil {
		d, err := time.ParseDuration(*cmd.Interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid interval: %s", *cmd.Interval)
		}
		interval = d
	}

	if !c.openBoard().IsSupported() {
		return fmt.Errorf("failed to open clipboard: %w", clipboard.ErrUnsupported)
	}

	if _, err := c.repo.PruneOrphans(); err != nil {
		c.logger.Warn("failed to prune orphaned payloads", "err", err)
	}

	m := c.newMonitor(monitor.WithInterval(interval))
	if err := m.Start(ctx); err != nil {
		return err
	}
	c.logger.Info("watching clipboard", "interval", interval, "data_dir", c.engine.Dir())

	<-ctx.Done()
	m.Stop()

	stats := m.Stats()
	c.logger.Info("stopped watching",
		"captures", stats.Captures,
		"duplicates", stats.Duplicates,
		"misses", stats.Misses,
		"failures", stats.Failures,
	)
	return nil
}

// executeCapture handles the 'clipped capture' command
func (c *CLI) executeCapture(_ *CaptureCmd) error {
	res, err := c.newMonitor().CaptureNow()
	if err != nil {
		if errors.Is(err, classify.ErrNoMatch) {
			return fmt.Errorf("nothing to capture: clipboard is empty or unsupported")
		}
		return fmt.Errorf("failed to capture clipboard: %w", err)
	}

	if res.Inserted {
		fmt.Fprintf(c.out, "Captured: %s\n", res.Snapshot.Preview())
	} else {
		fmt.Fprintf(c.out, "Already recorded: %s\n", res.Snapshot.Preview())
	}
	return nil
}

// executeList handles the 'clipped list' command
func (c *CLI) executeList(cmd *ListCmd) error {
	var (
		snaps []*snapshot.Snapshot
		err   error
	)
	if cmd.Search != nil || cmd.Category != nil {
		q := &store.SearchQuery{
			CaseSensitive: cmd.CaseSensitive,
			Limit:         cmd.Limit,
		}
		if cmd.Search != nil {
			q.Pattern = *cmd.Search
		}
		if cmd.Category != nil {
			q.Category = snapshot.Category(*cmd.Category)
		}
		snaps, err = c.repo.Search(q)
	} else {
		snaps, err = c.repo.Recent(cmd.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(c.out, "History is empty!")
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, "To record entries:")
		fmt.Fprintln(c.out, "  clipped watch")
		fmt.Fprintln(c.out, "  clipped capture")
		fmt.Fprintln(c.out, `  clipped add "Hello World"`)
		return nil
	}

	index := c.indexOf()
	for _, s := range snaps {
		fmt.Fprintln(c.out, c.styles.row(s, index[s.ID], cmd.IDs))
	}
	return nil
}

// indexOf maps ids to their position in the newest-first history.
func (c *CLI) indexOf() map[string]int {
	index := make(map[string]int)
	all, err := c.repo.Recent(0)
	if err != nil {
		return index
	}
	for i, s := range all {
		index[s.ID] = i
	}
	return index
}

// executeShow handles the 'clipped show' command
func (c *CLI) executeShow(cmd *ShowCmd) error {
	s, err := c.resolve(cmd.Ref)
	if err != nil {
		return err
	}

	data, err := c.engine.Open(s).Full()
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if cmd.Output != nil {
		if err := os.WriteFile(*cmd.Output, data, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(c.out, "Written to %s: %s\n", *cmd.Output, s.Preview())
		return nil
	}

	_, err = c.out.Write(data)
	return err
}

// executePath handles the 'clipped path' command
func (c *CLI) executePath(cmd *PathCmd) error {
	s, err := c.resolve(cmd.Ref)
	if err != nil {
		return err
	}
	if !s.Spilled() {
		return fmt.Errorf("entry %s is stored inline", s.ID)
	}
	path, ok := c.engine.URL(s.ID, s.Category)
	if !ok {
		return fmt.Errorf("entry %s: %w", s.ID, storage.ErrContentUnavailable)
	}
	fmt.Fprintln(c.out, path)
	return nil
}

// executeCopy handles the 'clipped copy' command
func (c *CLI) executeCopy(ctx context.Context, cmd *CopyCmd) error {
	s, err := c.resolve(cmd.Ref)
	if err != nil {
		return err
	}
	if err := c.newActions(nil).CopyToClipboard(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Copied to clipboard: %s\n", s.Preview())
	return nil
}

// executeAdd handles the 'clipped add' command
func (c *CLI) executeAdd(cmd *AddCmd) error {
	var text string
	if cmd.Text != nil {
		text = *cmd.Text
	} else {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		text = string(data)
	}

	s, inserted, err := c.newActions(nil).AddItem(text)
	if err != nil {
		if errors.Is(err, actions.ErrEmpty) {
			return fmt.Errorf("no input provided")
		}
		return fmt.Errorf("failed to add entry: %w", err)
	}

	if inserted {
		fmt.Fprintf(c.out, "Added: %s\n", s.Preview())
	} else {
		fmt.Fprintf(c.out, "Already recorded: %s\n", s.Preview())
	}
	return nil
}

// executeDelete handles the 'clipped delete' command
func (c *CLI) executeDelete(cmd *DeleteCmd) error {
	// Resolve every ref first; indexes shift as entries are removed.
	targets := make([]*snapshot.Snapshot, 0, len(cmd.Refs))
	for _, ref := range cmd.Refs {
		s, err := c.resolve(ref)
		if err != nil {
			return err
		}
		targets = append(targets, s)
	}

	for _, s := range targets {
		if err := c.repo.Delete(s.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to delete %s: %w", s.ID, err)
		}
		fmt.Fprintf(c.out, "Deleted: %s\n", s.Preview())
	}
	return nil
}

// executeClear handles the 'clipped clear' command
func (c *CLI) executeClear(cmd *ClearCmd) error {
	count, err := c.repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(c.out, "History is already empty.")
		return nil
	}

	if !cmd.Force {
		fmt.Fprintf(c.out, "This will delete %d item(s) from history. Continue? [y/N]: ", count)
		response, _ := bufio.NewReader(c.in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.out, "Cancelled.")
			return nil
		}
	}

	if err := c.repo.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintf(c.out, "Cleared %d item(s) from history.\n", count)
	return nil
}

// executeConfig handles the 'clipped config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		value, err := c.configManager.Get(cmd.Get.Key)
		if err != nil {
			return fmt.Errorf("failed to get config value: %w", err)
		}
		fmt.Fprintln(c.out, value)
		return nil
	case cmd.Set != nil:
		if err := c.configManager.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return fmt.Errorf("failed to set config value: %w", err)
		}
		fmt.Fprintf(c.out, "Set %s = %s\n", cmd.Set.Key, cmd.Set.Value)
		return nil
	case cmd.List != nil:
		values, err := c.configManager.List()
		if err != nil {
			return fmt.Errorf("failed to list config values: %w", err)
		}
		fmt.Fprintf(c.out, "Current configuration (%s):\n", c.configManager.GetConfigPath())
		for _, key := range slices.Sorted(maps.Keys(values)) {
			fmt.Fprintf(c.out, "  %s = %s\n", key, values[key])
		}
		return nil
	default:
		return fmt.Errorf("no config subcommand specified")
	}
}

// resolve finds an entry by history index (0 = newest), full id, or unique
// id prefix.
func (c *CLI) resolve(ref string) (*snapshot.Snapshot, error) {
	ref = strings.TrimSpace(ref)

	if idx, err := strconv.Atoi(ref); err == nil && len(ref) < 8 {
		if idx < 0 {
			return nil, fmt.Errorf("index must be non-negative")
		}
		all, err := c.repo.Recent(0)
		if err != nil {
			return nil, err
		}
		if idx >= len(all) {
			return nil, fmt.Errorf("no entry at index %d (history has %d)", idx, len(all))
		}
		return all[idx], nil
	}

	s, err := c.repo.Get(ref)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	all, err := c.repo.Recent(0)
	if err != nil {
		return nil, err
	}
	var match *snapshot.Snapshot
	for _, s := range all {
		if !strings.HasPrefix(s.ID, ref) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("ambiguous id prefix: %s", ref)
		}
		match = s
	}
	if match == nil {
		return nil, fmt.Errorf("entry %s: %w", ref, store.ErrNotFound)
	}
	return match, nil
}
