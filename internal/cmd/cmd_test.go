package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/tblogs/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	home      string
	lora      string
	router    string
	config    string
	historyDB string
	metrics   string
	run1      string
	run2      string
}

// setupTestEnv creates a lora tree with A/run1 (10 days old) and B/run2
// (1 hour old), an absent router tree, and a config pointing at both.
func setupTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		home:      filepath.Join(root, "home"),
		lora:      filepath.Join(root, "tensorboard"),
		router:    filepath.Join(root, "tb_logs"),
		config:    filepath.Join(root, "config.yaml"),
		historyDB: filepath.Join(root, "state", "history.db"),
		metrics:   filepath.Join(root, "state", "tblogs.prom"),
	}
	t.Setenv("TBLOGS_HOME", env.home)

	now := time.Now()
	env.run1 = writeTestRun(t, env.lora, "A", "run1", now.Add(-10*24*time.Hour))
	env.run2 = writeTestRun(t, env.lora, "B", "run2", now.Add(-time.Hour))

	cfg := fmt.Sprintf(`log_level: warn
history_db: %s
metrics_textfile: %s
lock_dir: %s
targets:
  lora:
    path: %s
  router:
    path: %s
%s`, env.historyDB, env.metrics, filepath.Join(root, "locks"), env.lora, env.router, extraConfig)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0644))
	return env
}

func writeTestRun(t *testing.T, base, dataset, run string, mtime time.Time) string {
	t.Helper()
	dir := filepath.Join(base, dataset, run)
	require.NoError(t, os.MkdirAll(dir, 0755))
	file := filepath.Join(dir, "events.out.tfevents.1700000000.host")
	require.NoError(t, os.WriteFile(file, make([]byte, 512), 0644))
	require.NoError(t, os.Chtimes(file, mtime, mtime))
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	out, _, err := execute(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "tblogs")
	assert.Contains(t, out, "TensorBoard")

	names := map[string]bool{}
	for _, c := range NewRootCommand().Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["clean"])
	assert.True(t, names["list"])
	assert.True(t, names["history"])
}

func TestCleanInvalidTrainer(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("TBLOGS_HOME", home)

	out, _, err := execute(t, "", "clean", "--trainer", "gpt")
	require.NoError(t, err)
	assert.Equal(t, "Invalid trainer: gpt. Use 'lora', 'router', or 'all'\n", out)
	assert.NoDirExists(t, home, "nothing should be touched for an invalid trainer")
}

func TestCleanOldEndToEnd(t *testing.T) {
	env := setupTestEnv(t, "")

	out, _, err := execute(t, "old\ny\n", "clean", "--config", env.config, "--no-color")
	require.NoError(t, err)

	assert.NoDirExists(t, env.run1)
	assert.DirExists(t, env.run2)

	assert.Contains(t, out, "== LoRA Trainer Logs ==")
	assert.Contains(t, out, "  - A/run1 (512 B)")
	assert.Contains(t, out, "Deleted: A/run1")
	assert.Contains(t, out, "No runs found for Router Trainer")
	assert.Contains(t, out, "Cleanup complete: 1 runs deleted")
	assert.Less(t, strings.Index(out, "LoRA Trainer Logs"), strings.Index(out, "Router Trainer Logs"))

	store, err := history.NewStore(env.historyDB)
	require.NoError(t, err)
	defer store.Close()
	entries, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run1", entries[0].RunName)
	assert.Equal(t, "lora", entries[0].Target)
	assert.True(t, entries[0].Success)

	metrics, err := os.ReadFile(env.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `tblogs_runs_deleted_total{target="lora"} 1`)

	sessionLog, err := os.ReadFile(filepath.Join(env.home, "logs", "latest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(sessionLog), "=== tblogs session log ===")
}

func TestCleanDeclinedKeepsEverything(t *testing.T) {
	env := setupTestEnv(t, "")

	out, _, err := execute(t, "all\nn\n", "clean", "--trainer", "lora", "--config", env.config)
	require.NoError(t, err)

	assert.DirExists(t, env.run1)
	assert.DirExists(t, env.run2)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, out, "No runs were deleted")
	assert.NotContains(t, out, "Router Trainer")
}

func TestCleanDryRunWithReport(t *testing.T) {
	env := setupTestEnv(t, "")
	reportPath := filepath.Join(t.TempDir(), "report.md")

	out, _, err := execute(t, "", "clean", "--trainer", "lora", "--config", env.config,
		"--select", "all", "--dry-run", "--report", reportPath)
	require.NoError(t, err)

	assert.DirExists(t, env.run1)
	assert.DirExists(t, env.run2)
	assert.Contains(t, out, "Dry run: 2 runs would be deleted")
	assert.Contains(t, out, "Report written to "+reportPath)
	assert.NoFileExists(t, env.historyDB, "dry runs are not recorded")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- Mode: dry run")
	assert.Contains(t, string(data), "| A/run1 |")
}

func TestCleanPresetSelectionWithYes(t *testing.T) {
	env := setupTestEnv(t, "")

	out, _, err := execute(t, "", "clean", "--trainer", "lora", "--config", env.config,
		"--select", "1", "--yes")
	require.NoError(t, err)

	assert.DirExists(t, env.run1)
	assert.NoDirExists(t, env.run2)
	assert.Contains(t, out, "Selection: 1")
	assert.Contains(t, out, "Cleanup complete: 1 runs deleted")
}

func TestCleanOldAfterFlag(t *testing.T) {
	env := setupTestEnv(t, "")

	_, _, err := execute(t, "", "clean", "--trainer", "lora", "--config", env.config,
		"--select", "old", "--old-after", "30m", "--yes")
	require.NoError(t, err)

	assert.NoDirExists(t, env.run1)
	assert.NoDirExists(t, env.run2)
}

func TestCleanCommitCommandRunsOnce(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "commits")
	env := setupTestEnv(t, "")
	cfg, err := os.ReadFile(env.config)
	require.NoError(t, err)
	cfg = bytes.Replace(cfg, []byte("  router:"), []byte(fmt.Sprintf(
		"    commit_command: [\"sh\", \"-c\", \"echo commit >> %s\"]\n  router:", marker)), 1)
	require.NoError(t, os.WriteFile(env.config, cfg, 0644))

	_, _, err = execute(t, "", "clean", "--trainer", "lora", "--config", env.config, "--select", "all", "--yes")
	require.NoError(t, err)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "commit\n", string(data))
}

func TestCleanInvalidConfig(t *testing.T) {
	env := setupTestEnv(t, "")
	_, _, err := execute(t, "", "clean", "--config", env.config, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.DirExists(t, env.run1)
}

func TestListCommand(t *testing.T) {
	env := setupTestEnv(t, "")

	out, _, err := execute(t, "", "list", "--config", env.config)
	require.NoError(t, err)

	assert.Contains(t, out, "TensorBoard Logs - LoRA Trainer")
	assert.Contains(t, out, "Run Name")
	assert.Contains(t, out, "run1")
	assert.Contains(t, out, "run2")
	assert.Contains(t, out, "Total: 2 runs, 1.0 KiB")
	assert.Contains(t, out, "Older than 7 days: 1 runs, 512 B")
	assert.Contains(t, out, "No runs found for Router Trainer")
	assert.DirExists(t, env.run1)
}

func TestListInvalidTrainer(t *testing.T) {
	t.Setenv("TBLOGS_HOME", t.TempDir())
	out, _, err := execute(t, "", "list", "--trainer", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid trainer: nope")
}

func TestHistoryCommand(t *testing.T) {
	t.Setenv("TBLOGS_HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "history.db")

	store, err := history.NewStore(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Record(ctx, &history.Entry{
		SessionID: "s1", Target: "lora", Path: "/v/A/run1", Dataset: "A", RunName: "run1",
		SizeBytes: 2048, Success: true, DeletedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, store.Record(ctx, &history.Entry{
		SessionID: "s1", Target: "router", Path: "/m/B/run2", Dataset: "B", RunName: "run2",
		SizeBytes: 1024, Error: "permission denied", DeletedAt: now,
	}))
	store.Close()

	out, _, err := execute(t, "", "history", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "When")
	assert.Contains(t, out, "A/run1")
	assert.Contains(t, out, "failed: permission denied")
	assert.Less(t, strings.Index(out, "B/run2"), strings.Index(out, "A/run1"), "newest first")

	out, _, err = execute(t, "", "history", "--db-path", dbPath, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "B/run2")
	assert.NotContains(t, out, "A/run1")

	out, _, err = execute(t, "", "history", "--db-path", dbPath, "--totals")
	require.NoError(t, err)
	assert.Contains(t, out, "Trainer")
	assert.Contains(t, out, "2.0 KiB")
}

func TestHistoryMissingDatabase(t *testing.T) {
	t.Setenv("TBLOGS_HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	out, _, err := execute(t, "", "history", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No history found at: "+dbPath+"\n", out)
}
