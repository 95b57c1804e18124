package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/harrison/tblogs/internal/fileutil"
)

// EventFilePrefix is the naming prefix TensorBoard uses for event logs.
const EventFilePrefix = "events.out.tfevents."

// Logger receives scan warnings.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// ScanResult holds the runs found under a base path in traversal order,
// plus warnings for entries that were skipped.
type ScanResult struct {
	Records  []Record
	Warnings []error
}

// Catalog sorts the scanned records into a Catalog.
func (r *ScanResult) Catalog() *Catalog {
	return New(r.Records)
}

// Scanner walks a base/{dataset}/{run}/ hierarchy.
type Scanner struct {
	// Now supplies the scan time used for runs without files.
	// Defaults to time.Now.
	Now    func() time.Time
	Logger Logger
}

// NewScanner creates a Scanner that logs to logger (nil discards warnings).
func NewScanner(logger Logger) *Scanner {
	return &Scanner{Now: time.Now, Logger: logger}
}

// Scan reads every run under basePath. A missing basePath yields an empty
// result. Unreadable datasets or runs are skipped and reported as warnings;
// unreadable entries inside a run are reported but the run is kept.
func (s *Scanner) Scan(basePath string) *ScanResult {
	result := &ScanResult{}
	scanTime := s.now()

	datasets, err := fileutil.ListDirs(basePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn(result, fmt.Errorf("read base path %s: %w", basePath, err))
		}
		return result
	}

	for _, dataset := range datasets {
		datasetPath := filepath.Join(basePath, dataset.Name())
		runs, err := fileutil.ListDirs(datasetPath)
		if err != nil {
			s.warn(result, fmt.Errorf("read dataset %s: %w", datasetPath, err))
			continue
		}

		for _, run := range runs {
			runPath := filepath.Join(datasetPath, run.Name())
			summary, err := fileutil.SummarizeTree(runPath, fileutil.SummaryOptions{
				CountPrefix: EventFilePrefix,
			})
			if err != nil {
				s.warn(result, fmt.Errorf("read run %s: %w", runPath, err))
				continue
			}
			for _, entryErr := range summary.Errors {
				s.warn(result, entryErr)
			}

			modified := summary.LatestModTime
			if summary.Files == 0 {
				modified = scanTime
			}

			absPath, err := filepath.Abs(runPath)
			if err != nil {
				absPath = runPath
			}

			result.Records = append(result.Records, Record{
				Path:       absPath,
				Dataset:    dataset.Name(),
				RunName:    run.Name(),
				SizeBytes:  summary.Bytes,
				EventCount: summary.Matched,
				ModifiedAt: modified,
			})
		}
	}

	if s.Logger != nil {
		s.Logger.LogDebug(fmt.Sprintf("scanned %s: %d runs, %d warnings", basePath, len(result.Records), len(result.Warnings)))
	}

	return result
}

func (s *Scanner) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Scanner) warn(result *ScanResult, err error) {
	result.Warnings = append(result.Warnings, err)
	if s.Logger != nil {
		s.Logger.LogWarn(err.Error())
	}
}
