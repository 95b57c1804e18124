package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SummaryOptions configures how a directory tree is summarized
type SummaryOptions struct {
	// CountPrefix counts regular files whose name starts with this prefix
	// (e.g., "events.out.tfevents."). Empty disables counting.
	CountPrefix string
	// ExcludeDirs is a list of directory names to skip entirely
	ExcludeDirs []string
}

// TreeSummary contains the aggregate of all regular files under a directory
type TreeSummary struct {
	// Files is the number of regular files seen
	Files int
	// Bytes is the total size of all regular files
	Bytes int64
	// Matched is the number of regular files whose name carries CountPrefix
	Matched int
	// LatestModTime is the newest modification time across regular files.
	// Zero when the tree holds no regular files.
	LatestModTime time.Time
	// Errors contains non-fatal errors for entries that could not be read
	Errors []error
}

// SummarizeTree walks dir recursively and aggregates regular files.
// Symlinks, sockets, devices and other special files are skipped.
// Entries that cannot be read are recorded in Errors and the walk continues.
// An error is returned only when dir itself cannot be accessed.
func SummarizeTree(dir string, opts SummaryOptions) (*TreeSummary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	summary := &TreeSummary{
		Errors: make([]error, 0),
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			summary.Errors = append(summary.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil // Continue walking
		}

		if d.IsDir() {
			if path != dir && excludeMap[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		// Only regular files contribute; WalkDir never follows symlinks
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("error reading %s: %w", path, err))
			return nil
		}

		summary.Files++
		summary.Bytes += fi.Size()
		if fi.ModTime().After(summary.LatestModTime) {
			summary.LatestModTime = fi.ModTime()
		}
		if opts.CountPrefix != "" && strings.HasPrefix(d.Name(), opts.CountPrefix) {
			summary.Matched++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return summary, nil
}

// ListDirs returns the immediate subdirectories of dir in directory order.
// Non-directory entries, including symlinks to directories, are skipped.
func ListDirs(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	dirs := make([]os.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry)
		}
	}
	return dirs, nil
}
