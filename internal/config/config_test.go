package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/state")

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 7*24*time.Hour, cfg.OldAfter)
	assert.Equal(t, filepath.Join("/state", "history.db"), cfg.HistoryDB)
	assert.Equal(t, filepath.Join("/state", "locks"), cfg.LockDir)
	assert.Equal(t, filepath.Join("/state", "logs"), cfg.LogDir)
	assert.Empty(t, cfg.MetricsTextfile)

	lora, ok := cfg.Target(TargetLora)
	require.True(t, ok)
	assert.Equal(t, "/volume/tensorboard", lora.Path)
	assert.Equal(t, "LoRA Trainer", lora.Label)

	router, ok := cfg.Target(TargetRouter)
	require.True(t, ok)
	assert.Equal(t, "/moe-data/tb_logs", router.Path)
	assert.Equal(t, "Router Trainer", router.Label)

	assert.NoError(t, cfg.Validate())
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
old_after: 72h
metrics_textfile: /var/lib/node_exporter/tblogs.prom
targets:
  lora:
    path: /mnt/lora/tensorboard
    commit_command: ["modal", "volume", "commit"]
  router:
    label: MoE Router
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadConfig(configPath, tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 72*time.Hour, cfg.OldAfter)
	assert.Equal(t, "/var/lib/node_exporter/tblogs.prom", cfg.MetricsTextfile)
	assert.Equal(t, filepath.Join(tmpDir, "history.db"), cfg.HistoryDB)

	lora := cfg.Targets[TargetLora]
	assert.Equal(t, "/mnt/lora/tensorboard", lora.Path)
	assert.Equal(t, "LoRA Trainer", lora.Label, "label keeps its default")
	assert.Equal(t, []string{"modal", "volume", "commit"}, lora.CommitCommand)

	router := cfg.Targets[TargetRouter]
	assert.Equal(t, "/moe-data/tb_logs", router.Path, "path keeps its default")
	assert.Equal(t, "MoE Router", router.Label)
	assert.Empty(t, router.CommitCommand)

	assert.NoError(t, cfg.Validate())
}

// TestLoadConfigMissingFile verifies defaults are returned when the file is absent
func TestLoadConfigMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(tmpDir, "nope.yaml"), tmpDir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(tmpDir), cfg)
}

func TestLoadConfigDisablesHistory(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("history_db: \"\"\nlog_dir: \"\"\n"), 0644))

	cfg, err := LoadConfig(configPath, tmpDir)
	require.NoError(t, err)
	assert.Empty(t, cfg.HistoryDB)
	assert.Empty(t, cfg.LogDir)
	assert.Equal(t, filepath.Join(tmpDir, "locks"), cfg.LockDir)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "malformed yaml", content: "log_level: [unclosed", wantErr: "failed to parse config file"},
		{name: "bad duration", content: "old_after: soon\n", wantErr: "invalid old_after format"},
		{name: "unknown target", content: "targets:\n  vision:\n    path: /x\n", wantErr: "unknown target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0644))

			_, err := LoadConfig(configPath, tmpDir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log_level"},
		{name: "zero old_after", mutate: func(c *Config) { c.OldAfter = 0 }, wantErr: "old_after must be > 0"},
		{name: "empty target path", mutate: func(c *Config) {
			target := c.Targets[TargetRouter]
			target.Path = "  "
			c.Targets[TargetRouter] = target
		}, wantErr: "targets.router.path cannot be empty"},
		{name: "missing target", mutate: func(c *Config) { delete(c.Targets, TargetLora) }, wantErr: `target "lora" is not configured`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(t.TempDir())
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())

	// nil flags leave values untouched
	cfg.MergeWithFlags(nil, nil, nil)
	assert.Equal(t, "info", cfg.LogLevel)

	level := "warn"
	oldAfter := 48 * time.Hour
	history := "/tmp/h.db"
	cfg.MergeWithFlags(&level, &oldAfter, &history)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 48*time.Hour, cfg.OldAfter)
	assert.Equal(t, "/tmp/h.db", cfg.HistoryDB)
}

func TestResolveTargets(t *testing.T) {
	got, err := ResolveTargets("all")
	require.NoError(t, err)
	assert.Equal(t, []string{"lora", "router"}, got)

	got, err = ResolveTargets("router")
	require.NoError(t, err)
	assert.Equal(t, []string{"router"}, got)

	_, err = ResolveTargets("vision")
	require.Error(t, err)
	assert.Equal(t, "Invalid trainer: vision. Use 'lora', 'router', or 'all'", err.Error())
}

func TestGetHome(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state")
		t.Setenv(HomeEnv, dir)

		home, err := GetHome()
		require.NoError(t, err)
		assert.Equal(t, dir, home)
		assert.DirExists(t, dir)
	})

	t.Run("defaults under user home", func(t *testing.T) {
		userHome := t.TempDir()
		t.Setenv(HomeEnv, "")
		t.Setenv("HOME", userHome)

		home, err := GetHome()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(userHome, ".tblogs"), home)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	require.NoError(t, os.WriteFile(DefaultConfigPath(dir), []byte("log_level: error\n"), 0644))

	cfg, home, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, home)
	assert.Equal(t, "error", cfg.LogLevel)
}
