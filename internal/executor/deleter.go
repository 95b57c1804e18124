// Package executor removes confirmed runs from disk.
//
// Every run is deleted independently: a failure on one run is recorded and
// the remaining runs are still attempted. A run that fails halfway through
// is left as the filesystem left it; there is no rollback.
package executor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/tblogs/internal/catalog"
)

var (
	// ErrAlreadyRemoved is reported when a selected run no longer exists.
	ErrAlreadyRemoved = errors.New("run directory no longer exists")
	// ErrOutsideRoot is reported when a run path is not inside the target root.
	ErrOutsideRoot = errors.New("run path is outside the target root")
)

// Failure pairs a run with the reason it could not be deleted.
type Failure struct {
	Record catalog.Record
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("failed to delete %s: %v", f.Record.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Result accumulates deletion outcomes in input order.
type Result struct {
	Deleted  []catalog.Record
	Failures []Failure
}

// Count returns the number of runs removed.
func (r Result) Count() int {
	return len(r.Deleted)
}

// DeletedBytes sums the scanned size of removed runs.
func (r Result) DeletedBytes() int64 {
	return catalog.SumBytes(r.Deleted)
}

// Observer is notified after each run is attempted.
type Observer func(record catalog.Record, err error)

// Deleter performs recursive per-run deletion.
type Deleter struct {
	// Root, when set, must strictly contain every path handed to Delete.
	Root string
	// Remove deletes a directory tree. Defaults to os.RemoveAll.
	Remove func(path string) error
	// Observer, when set, is called once per run in order.
	Observer Observer
}

// NewDeleter creates a Deleter restricted to root.
func NewDeleter(root string) *Deleter {
	return &Deleter{Root: root, Remove: os.RemoveAll}
}

// Delete removes every record and never stops at the first error.
// The caller is responsible for obtaining confirmation beforehand.
func (d *Deleter) Delete(records []catalog.Record) Result {
	var result Result
	for _, record := range records {
		err := d.deleteOne(record.Path)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Record: record, Err: err})
		} else {
			result.Deleted = append(result.Deleted, record)
		}
		if d.Observer != nil {
			d.Observer(record, err)
		}
	}
	return result
}

func (d *Deleter) deleteOne(path string) error {
	if err := d.checkContained(path); err != nil {
		return err
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrAlreadyRemoved
		}
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}

	remove := d.Remove
	if remove == nil {
		remove = os.RemoveAll
	}
	if err := remove(path); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (d *Deleter) checkContained(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	if d.Root == "" {
		return nil
	}

	root, err := filepath.Abs(d.Root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}
