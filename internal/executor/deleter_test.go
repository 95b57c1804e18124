package executor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/tblogs/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRun(t *testing.T, root, dataset, run string) catalog.Record {
	t.Helper()
	path := filepath.Join(root, dataset, run)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "plugins"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "events.out.tfevents.1"), []byte("data"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "plugins", "events.out.tfevents.2"), []byte("more"), 0644))
	return catalog.Record{Path: path, Dataset: dataset, RunName: run, SizeBytes: 8}
}

func TestDeleteAll(t *testing.T) {
	root := t.TempDir()
	r1 := makeRun(t, root, "A", "run1")
	r2 := makeRun(t, root, "B", "run2")

	result := NewDeleter(root).Delete([]catalog.Record{r1, r2})

	assert.Equal(t, 2, result.Count())
	assert.Empty(t, result.Failures)
	assert.Equal(t, int64(16), result.DeletedBytes())
	assert.NoDirExists(t, r1.Path)
	assert.NoDirExists(t, r2.Path)
	// Dataset directories are left in place
	assert.DirExists(t, filepath.Join(root, "A"))
}

func TestDeleteMissingRunDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	r1 := makeRun(t, root, "A", "run1")
	gone := makeRun(t, root, "A", "gone")
	r3 := makeRun(t, root, "B", "run3")
	require.NoError(t, os.RemoveAll(gone.Path))

	result := NewDeleter(root).Delete([]catalog.Record{r1, gone, r3})

	assert.Equal(t, 2, result.Count())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, gone.Path, result.Failures[0].Record.Path)
	assert.True(t, errors.Is(result.Failures[0], ErrAlreadyRemoved))
	assert.Contains(t, result.Failures[0].Error(), gone.Path)
	assert.NoDirExists(t, r1.Path)
	assert.NoDirExists(t, r3.Path)
}

func TestDeleteRemoveErrorIsIsolated(t *testing.T) {
	root := t.TempDir()
	r1 := makeRun(t, root, "A", "run1")
	r2 := makeRun(t, root, "A", "run2")
	r3 := makeRun(t, root, "A", "run3")

	boom := errors.New("permission denied")
	d := NewDeleter(root)
	d.Remove = func(path string) error {
		if path == r2.Path {
			return boom
		}
		return os.RemoveAll(path)
	}

	var observed []string
	d.Observer = func(record catalog.Record, err error) {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		observed = append(observed, record.RunName+":"+status)
	}

	result := d.Delete([]catalog.Record{r1, r2, r3})

	assert.Equal(t, 2, result.Count())
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0], boom)
	assert.DirExists(t, r2.Path)
	assert.Equal(t, []string{"run1:ok", "run2:failed", "run3:ok"}, observed)
}

func TestDeleteRefusesPathsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := makeRun(t, t.TempDir(), "X", "elsewhere")

	tests := []struct {
		name   string
		record catalog.Record
	}{
		{name: "other tree", record: outside},
		{name: "root itself", record: catalog.Record{Path: root}},
		{name: "parent escape", record: catalog.Record{Path: filepath.Join(root, "..")}},
		{name: "empty path", record: catalog.Record{Path: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewDeleter(root).Delete([]catalog.Record{tt.record})
			assert.Zero(t, result.Count())
			require.Len(t, result.Failures, 1)
			assert.ErrorIs(t, result.Failures[0], ErrOutsideRoot)
		})
	}
	assert.DirExists(t, outside.Path)
}

func TestDeleteRejectsFiles(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "A", "stray")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0755))
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	result := NewDeleter(root).Delete([]catalog.Record{{Path: file}})
	assert.Zero(t, result.Count())
	require.Len(t, result.Failures, 1)
	assert.FileExists(t, file)
}

func TestDeleteEmptySelection(t *testing.T) {
	result := NewDeleter(t.TempDir()).Delete(nil)
	assert.Zero(t, result.Count())
	assert.Empty(t, result.Failures)
}
