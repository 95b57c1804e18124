package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/tblogs/internal/logger"
	"gopkg.in/yaml.v3"
)

// Trainer target names, in processing order.
const (
	TargetLora   = "lora"
	TargetRouter = "router"
	TargetAll    = "all"
)

// TargetOrder is the fixed order targets are processed in.
var TargetOrder = []string{TargetLora, TargetRouter}

// TargetConfig describes one trainer's TensorBoard log tree
type TargetConfig struct {
	// Path is the base directory holding {dataset}/{run}/ subtrees
	Path string `yaml:"path"`

	// Label is the human-readable trainer name shown in headers
	Label string `yaml:"label"`

	// CommitCommand is run (argv form) once after deletions on this target
	// to persist the volume. Empty means no commit hook.
	CommitCommand []string `yaml:"commit_command"`
}

// Config represents tblogs configuration options
type Config struct {
	// LogLevel sets the diagnostic verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// OldAfter is the age beyond which a run is selected by "old"
	OldAfter time.Duration `yaml:"old_after"`

	// HistoryDB is the SQLite audit log of deletions. Empty disables it.
	HistoryDB string `yaml:"history_db"`

	// MetricsTextfile is a Prometheus textfile written after each session.
	// Empty disables metrics output.
	MetricsTextfile string `yaml:"metrics_textfile"`

	// LockDir holds per-target lock files
	LockDir string `yaml:"lock_dir"`

	// LogDir receives one diagnostic log file per clean session.
	// Empty disables session log files.
	LogDir string `yaml:"log_dir"`

	// Targets maps trainer name to its log tree
	Targets map[string]TargetConfig `yaml:"targets"`
}

// DefaultConfig returns a Config with the well-known trainer locations.
// home is the tblogs state directory used for the history database and locks.
func DefaultConfig(home string) *Config {
	return &Config{
		LogLevel:  "info",
		OldAfter:  7 * 24 * time.Hour,
		HistoryDB: filepath.Join(home, "history.db"),
		LockDir:   filepath.Join(home, "locks"),
		LogDir:    filepath.Join(home, "logs"),
		Targets: map[string]TargetConfig{
			TargetLora: {
				Path:  "/volume/tensorboard",
				Label: "LoRA Trainer",
			},
			TargetRouter: {
				Path:  "/moe-data/tb_logs",
				Label: "Router Trainer",
			},
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string, home string) (*Config, error) {
	cfg := DefaultConfig(home)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are written as strings ("168h") in YAML
	type yamlConfig struct {
		LogLevel        string                  `yaml:"log_level"`
		OldAfter        string                  `yaml:"old_after"`
		HistoryDB       *string                 `yaml:"history_db"`
		MetricsTextfile string                  `yaml:"metrics_textfile"`
		LockDir         string                  `yaml:"lock_dir"`
		LogDir          *string                 `yaml:"log_dir"`
		Targets         map[string]TargetConfig `yaml:"targets"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.OldAfter != "" {
		oldAfter, err := time.ParseDuration(yamlCfg.OldAfter)
		if err != nil {
			return nil, fmt.Errorf("invalid old_after format %q: %w", yamlCfg.OldAfter, err)
		}
		cfg.OldAfter = oldAfter
	}
	// history_db: "" explicitly disables the audit log
	if yamlCfg.HistoryDB != nil {
		cfg.HistoryDB = *yamlCfg.HistoryDB
	}
	if yamlCfg.MetricsTextfile != "" {
		cfg.MetricsTextfile = yamlCfg.MetricsTextfile
	}
	if yamlCfg.LockDir != "" {
		cfg.LockDir = yamlCfg.LockDir
	}
	if yamlCfg.LogDir != nil {
		cfg.LogDir = *yamlCfg.LogDir
	}

	// Merge targets field by field so a file can override just the path
	for name, override := range yamlCfg.Targets {
		target, known := cfg.Targets[name]
		if !known {
			return nil, fmt.Errorf("unknown target %q in config, must be one of: %s", name, strings.Join(TargetOrder, ", "))
		}
		if override.Path != "" {
			target.Path = override.Path
		}
		if override.Label != "" {
			target.Label = override.Label
		}
		if override.CommitCommand != nil {
			target.CommitCommand = override.CommitCommand
		}
		cfg.Targets[name] = target
	}

	return cfg, nil
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, oldAfter *time.Duration, historyDB *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if oldAfter != nil {
		c.OldAfter = *oldAfter
	}
	if historyDB != nil {
		c.HistoryDB = *historyDB
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.ValidLevels, ", "))
	}

	if c.OldAfter <= 0 {
		return fmt.Errorf("old_after must be > 0, got %v", c.OldAfter)
	}

	for _, name := range TargetOrder {
		target, ok := c.Targets[name]
		if !ok {
			return fmt.Errorf("target %q is not configured", name)
		}
		if strings.TrimSpace(target.Path) == "" {
			return fmt.Errorf("targets.%s.path cannot be empty", name)
		}
	}

	return nil
}

// Target returns the named target's configuration.
func (c *Config) Target(name string) (TargetConfig, bool) {
	t, ok := c.Targets[name]
	return t, ok
}

// ResolveTargets expands a trainer argument into target names in fixed order.
// Returns an error naming the allowed set for anything else.
func ResolveTargets(trainer string) ([]string, error) {
	switch trainer {
	case TargetLora, TargetRouter:
		return []string{trainer}, nil
	case TargetAll:
		return append([]string(nil), TargetOrder...), nil
	default:
		return nil, fmt.Errorf("Invalid trainer: %s. Use 'lora', 'router', or 'all'", trainer)
	}
}
