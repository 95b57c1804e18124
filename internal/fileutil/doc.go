// Package fileutil provides error-tolerant directory traversal used to
// summarize run directories.
//
// # Main Components
//
// SummarizeTree walks a directory recursively and returns a TreeSummary:
//   - Files, Bytes: count and total size of regular files
//   - Matched: regular files whose name starts with SummaryOptions.CountPrefix
//   - LatestModTime: newest modification time (zero for an empty tree)
//   - Errors: non-fatal errors for entries that could not be read
//
// ListDirs returns the immediate subdirectories of a directory.
//
// # Usage
//
//	summary, err := fileutil.SummarizeTree(runDir, fileutil.SummaryOptions{
//	    CountPrefix: "events.out.tfevents.",
//	})
//	if err != nil {
//	    // the run directory itself is unreadable
//	}
//	for _, e := range summary.Errors {
//	    log.Printf("warning: %v", e)
//	}
//
// Symlinks and special files are never followed or counted. Failures on a
// single entry are collected and the walk continues.
package fileutil
