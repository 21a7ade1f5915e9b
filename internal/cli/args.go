package cli

import (
	"fmt"
	"slices"

	"github.com/yiblet/clipped/internal/config"
	"github.com/yiblet/clipped/internal/logging"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/store"
)

// Args represents the top-level command structure
type Args struct {
	ConfigPath *string `arg:"--config" help:"Path to the config file (default ~/.config/clipped/config.yaml)"`
	DataDir    *string `arg:"--data-dir" help:"Override the data directory"`
	LogLevel   *string `arg:"--log-level" help:"Log level: debug, info, warn, error"`
	LogFormat  *string `arg:"--log-format" help:"Log format: auto, text, json"`

	Watch   *WatchCmd   `arg:"subcommand:watch" help:"Record clipboard changes until interrupted"`
	Capture *CaptureCmd `arg:"subcommand:capture" help:"Record the current clipboard contents once"`
	List    *ListCmd    `arg:"subcommand:list" help:"List recorded entries, newest first"`
	Show    *ShowCmd    `arg:"subcommand:show" help:"Print the full content of an entry"`
	Path    *PathCmd    `arg:"subcommand:path" help:"Print the on-disk path of a spilled entry"`
	Copy    *CopyCmd    `arg:"subcommand:copy" help:"Copy an entry back to the clipboard"`
	Add     *AddCmd     `arg:"subcommand:add" help:"Record text without touching the clipboard"`
	Delete  *DeleteCmd  `arg:"subcommand:delete" help:"Delete entries"`
	Clear   *ClearCmd   `arg:"subcommand:clear" help:"Delete every entry"`
	Config  *ConfigCmd  `arg:"subcommand:config" help:"Manage configuration"`
}

// WatchCmd represents the 'clipped watch' command
type WatchCmd struct {
	Interval *string `arg:"-i,--interval" help:"Polling interval, e.g. 500ms (default from config)"`
}

// CaptureCmd represents the 'clipped capture' command
type CaptureCmd struct{}

// ListCmd represents the 'clipped list' command
type ListCmd struct {
	Limit         int     `arg:"-n,--limit" default:"20" help:"Maximum number of entries (0 = all)"`
	Search        *string `arg:"-s,--search" help:"Only entries whose content matches this regex"`
	Category      *string `arg:"-c,--category" help:"Only entries of this category"`
	CaseSensitive bool    `arg:"--case-sensitive" help:"Match the search pattern case-sensitively"`
	IDs           bool    `arg:"--ids" help:"Show full entry ids"`
}

// ShowCmd represents the 'clipped show' command
type ShowCmd struct {
	Ref    string  `arg:"positional,required" placeholder:"REF" help:"Entry index (0=newest), id or id prefix"`
	Output *string `arg:"-o,--output" help:"Write to this file instead of stdout"`
}

// PathCmd represents the 'clipped path' command
type PathCmd struct {
	Ref string `arg:"positional,required" placeholder:"REF" help:"Entry index (0=newest), id or id prefix"`
}

// CopyCmd represents the 'clipped copy' command
type CopyCmd struct {
	Ref string `arg:"positional,required" placeholder:"REF" help:"Entry index (0=newest), id or id prefix"`
}

// AddCmd represents the 'clipped add' command
type AddCmd struct {
	Text *string `arg:"positional" help:"Text to record (reads stdin if omitted)"`
}

// DeleteCmd represents the 'clipped delete' command
type DeleteCmd struct {
	Refs []string `arg:"positional,required" placeholder:"REF" help:"Entries to delete"`
}

// ClearCmd represents the 'clipped clear' command
type ClearCmd struct {
	Force bool `arg:"-f,--force" help:"Skip the confirmation prompt"`
}

// ConfigCmd represents the 'clipped config' command
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents the 'clipped config get' command
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents the 'clipped config set' command
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents the 'clipped config list' command
type ConfigListCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "clipped - clipboard history recorder"
}

// Version returns the program version
func (Args) Version() string {
	return "clipped 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  clipped watch                     # Record clipboard changes until Ctrl+C
  clipped capture                   # Record what is on the clipboard now
  clipped list -n 10                # Ten newest entries
  clipped list -s 'https?://' -c link
  clipped show 0                    # Full content of the newest entry
  clipped show 3 -o out.png         # Save an entry to a file
  clipped copy 2                    # Put an entry back on the clipboard
  echo "note" | clipped add         # Record text from stdin
  clipped config set history-limit 1000`
}

// HasCommand reports whether a subcommand was given.
func (args *Args) HasCommand() bool {
	return args.Watch != nil || args.Capture != nil || args.List != nil ||
		args.Show != nil || args.Path != nil || args.Copy != nil ||
		args.Add != nil || args.Delete != nil || args.Clear != nil ||
		args.Config != nil
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.LogLevel != nil {
		if _, err := logging.ParseLevel(*args.LogLevel); err != nil {
			return err
		}
	}
	if args.LogFormat != nil {
		if _, err := logging.ParseFormat(*args.LogFormat); err != nil {
			return err
		}
	}

	switch {
	case args.List != nil:
		return args.List.Validate()
	case args.Delete != nil:
		return args.Delete.Validate()
	case args.Config != nil:
		return args.Config.Validate()
	}
	return nil
}

// Validate validates list command arguments
func (l *ListCmd) Validate() error {
	if l.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if l.Category != nil {
		if _, err := snapshot.ParseCategory(*l.Category); err != nil {
			return err
		}
	}
	if l.Search != nil {
		q := store.SearchQuery{Pattern: *l.Search, CaseSensitive: l.CaseSensitive}
		if _, err := q.Compile(); err != nil {
			return fmt.Errorf("invalid search pattern: %w", err)
		}
	}
	return nil
}

// Validate validates delete command arguments
func (d *DeleteCmd) Validate() error {
	if len(d.Refs) == 0 {
		return fmt.Errorf("at least one entry is required")
	}
	return nil
}

// Validate validates config command arguments
func (c *ConfigCmd) Validate() error {
	count := 0
	if c.Get != nil {
		count++
		if !slices.Contains(config.Keys, c.Get.Key) {
			return fmt.Errorf("unknown configuration key: %s", c.Get.Key)
		}
	}
	if c.Set != nil {
		count++
		if !slices.Contains(config.Keys, c.Set.Key) {
			return fmt.Errorf("unknown configuration key: %s", c.Set.Key)
		}
	}
	if c.List != nil {
		count++
	}

	switch count {
	case 0:
		return fmt.Errorf("no config subcommand specified")
	case 1:
		return nil
	default:
		return fmt.Errorf("only one config subcommand may be specified")
	}
}
