package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/clipped/internal/history"
	"github.com/yiblet/clipped/internal/logging"
	"github.com/yiblet/clipped/internal/monitor"
	"github.com/yiblet/clipped/internal/snapshot"
	"github.com/yiblet/clipped/internal/storage"
)

// DatabaseFile is the name of the history database inside the data directory.
const DatabaseFile = "clipped.db"

// Config represents the clipped configuration
type Config struct {
	DataDir          string           `yaml:"data_dir,omitempty"`
	PollInterval     string           `yaml:"poll_interval"`
	HistoryLimit     int              `yaml:"history_limit"`
	InlineThreshold  int64            `yaml:"inline_threshold"`
	SpillThresholds  map[string]int64 `yaml:"spill_thresholds,omitempty"`
	PreviewSize      int              `yaml:"preview_size"`
	PDFPreviewWidth  int              `yaml:"pdf_preview_width"`
	PDFPreviewHeight int              `yaml:"pdf_preview_height"`
	LogLevel         string           `yaml:"log_level"`
	LogFormat        string           `yaml:"log_format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:     monitor.DefaultInterval.String(),
		HistoryLimit:     history.DefaultHistoryLimit,
		InlineThreshold:  storage.DefaultInlineThreshold,
		PreviewSize:      storage.DefaultPreviewSize,
		PDFPreviewWidth:  storage.DefaultPDFWidth,
		PDFPreviewHeight: storage.DefaultPDFHeight,
		LogLevel:         "info",
		LogFormat:        string(logging.FormatAuto),
	}
}

// Interval returns the parsed poll interval.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return monitor.DefaultInterval
	}
	return d
}

// Policy returns the storage policy described by the configuration.
func (c *Config) Policy() storage.Policy {
	p := storage.DefaultPolicy()
	if c.InlineThreshold > 0 {
		p.InlineThreshold = c.InlineThreshold
	}
	if c.PreviewSize > 0 {
		p.PreviewSize = c.PreviewSize
	}
	if c.PDFPreviewWidth > 0 {
		p.PDFWidth = c.PDFPreviewWidth
	}
	if c.PDFPreviewHeight > 0 {
		p.PDFHeight = c.PDFPreviewHeight
	}
	if len(c.SpillThresholds) > 0 {
		p.Thresholds = make(map[snapshot.Category]int64, len(c.SpillThresholds))
		for name, v := range c.SpillThresholds {
			p.Thresholds[snapshot.Category(name)] = v
		}
	}
	return p
}

// ResolveDataDir returns the absolute data directory. An empty data_dir is
// the default location; a relative one is resolved against the home directory.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir == "" {
		return storage.DefaultDataDir()
	}
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, c.DataDir), nil
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() (*ConfigManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".config", "clipped", "config.yaml")
	return &ConfigManager{
		configPath: configPath,
	}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns default if file doesn't exist
func (cm *ConfigManager) Load() (*Config, error) {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Missing keys keep their defaults.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cm.validateAndSetDefaults(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := cm.validateAndSetDefaults(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateAndSetDefaults validates configuration and sets defaults for missing fields
func (cm *ConfigManager) validateAndSetDefaults(config *Config) error {
	def := DefaultConfig()

	if config.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be greater than 0")
	}
	if config.HistoryLimit > history.MaxHistoryLimit {
		return fmt.Errorf("history_limit cannot exceed %d items", history.MaxHistoryLimit)
	}

	if config.PollInterval == "" {
		config.PollInterval = def.PollInterval
	}
	d, err := time.ParseDuration(config.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval %q: %w", config.PollInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	if config.InlineThreshold <= 0 {
		config.InlineThreshold = def.InlineThreshold
	}
	for name, v := range config.SpillThresholds {
		if _, err := snapshot.ParseCategory(name); err != nil {
			return fmt.Errorf("invalid spill_thresholds key: %w", err)
		}
		if v < 0 {
			return fmt.Errorf("spill threshold for %s cannot be negative", name)
		}
	}

	if config.PreviewSize <= 0 {
		config.PreviewSize = def.PreviewSize
	}
	if config.PDFPreviewWidth <= 0 {
		config.PDFPreviewWidth = def.PDFPreviewWidth
	}
	if config.PDFPreviewHeight <= 0 {
		config.PDFPreviewHeight = def.PDFPreviewHeight
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(config.LogFormat); err != nil {
		return err
	}

	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// Keys lists the configuration keys accepted by Get and Update.
var Keys = []string{
	"data-dir",
	"poll-interval",
	"history-limit",
	"inline-threshold",
	"spill-thresholds",
	"preview-size",
	"pdf-preview-width",
	"pdf-preview-height",
	"log-level",
	"log-format",
}

// Update modifies a specific configuration value
func (cm *ConfigManager) Update(key, value string) error {
	config, err := cm.Load()
	if err != nil {
		return err
	}

	switch key {
	case "data-dir":
		config.DataDir = value
	case "poll-interval":
		config.PollInterval = value
	case "history-limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for history-limit: %s", value)
		}
		config.HistoryLimit = n
	case "inline-threshold":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for inline-threshold: %s", value)
		}
		config.InlineThreshold = n
	case "spill-thresholds":
		thresholds, err := parseThresholds(value)
		if err != nil {
			return err
		}
		config.SpillThresholds = thresholds
	case "preview-size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for preview-size: %s", value)
		}
		config.PreviewSize = n
	case "pdf-preview-width":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for pdf-preview-width: %s", value)
		}
		config.PDFPreviewWidth = n
	case "pdf-preview-height":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for pdf-preview-height: %s", value)
		}
		config.PDFPreviewHeight = n
	case "log-level":
		config.LogLevel = value
	case "log-format":
		config.LogFormat = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	config, err := cm.Load()
	if err != nil {
		return "", err
	}

	switch key {
	case "data-dir":
		if config.DataDir == "" {
			return "[default]", nil
		}
		return config.DataDir, nil
	case "poll-interval":
		return config.PollInterval, nil
	case "history-limit":
		return strconv.Itoa(config.HistoryLimit), nil
	case "inline-threshold":
		return strconv.FormatInt(config.InlineThreshold, 10), nil
	case "spill-thresholds":
		return formatThresholds(config.SpillThresholds), nil
	case "preview-size":
		return strconv.Itoa(config.PreviewSize), nil
	case "pdf-preview-width":
		return strconv.Itoa(config.PDFPreviewWidth), nil
	case "pdf-preview-height":
		return strconv.Itoa(config.PDFPreviewHeight), nil
	case "log-level":
		return config.LogLevel, nil
	case "log-format":
		return config.LogFormat, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	if _, err := cm.Load(); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, err := cm.Get(key)
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

// parseThresholds parses "image=0,text=4096". An empty string clears all
// overrides.
func parseThresholds(value string) (map[string]int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "[none]" {
		return nil, nil
	}

	result := make(map[string]int64)
	for pair := range strings.SplitSeq(value, ",") {
		name, size, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid spill threshold %q (want category=bytes)", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(size), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s threshold: %s", name, size)
		}
		result[strings.TrimSpace(name)] = n
	}
	return result, nil
}

func formatThresholds(thresholds map[string]int64) string {
	if len(thresholds) == 0 {
		return "[none]"
	}
	pairs := make([]string, 0, len(thresholds))
	for _, name := range slices.Sorted(maps.Keys(thresholds)) {
		pairs = append(pairs, fmt.Sprintf("%s=%d", name, thresholds[name]))
	}
	return strings.Join(pairs, ",")
}
