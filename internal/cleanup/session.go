// Package cleanup drives one interactive retention session:
// scan → show → select → confirm → delete → commit, once per trainer target.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/tblogs/internal/catalog"
	"github.com/harrison/tblogs/internal/display"
	"github.com/harrison/tblogs/internal/executor"
	"github.com/harrison/tblogs/internal/filelock"
	"github.com/harrison/tblogs/internal/history"
	"github.com/harrison/tblogs/internal/metrics"
	"github.com/harrison/tblogs/internal/selection"
	"github.com/harrison/tblogs/internal/volume"
)

// Logger receives diagnostics.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Recorder stores one deletion attempt.
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) error
}

// Target is one trainer's log tree and the volume it lives on.
type Target struct {
	Name   string
	Label  string
	Path   string
	Volume volume.Volume
}

// Options control how a session obtains selection and consent.
type Options struct {
	// Selection, when non-nil, replaces the selection prompt for every target.
	Selection *string
	// AssumeYes skips the confirmation prompt. The plan is still printed.
	AssumeYes bool
	// DryRun prints the plan and deletes nothing.
	DryRun bool
	// OldAfter is the threshold for the "old" keyword.
	OldAfter time.Duration
	// LockDir holds per-target lock files. Empty disables locking.
	LockDir string
}

// Status is how a target's cycle ended.
type Status string

const (
	StatusLocked       Status = "locked"
	StatusEmpty        Status = "empty"
	StatusNoneSelected Status = "none-selected"
	StatusCancelled    Status = "cancelled"
	StatusDryRun       Status = "dry-run"
	StatusDeleted      Status = "deleted"
)

// TargetSummary records what happened on one target.
type TargetSummary struct {
	Name         string
	Label        string
	Path         string
	Status       Status
	Scanned      int
	ScannedBytes int64
	Warnings     []error
	Selected     []catalog.Record
	Result       executor.Result
	Committed    bool
	CommitErr    error
}

// Summary aggregates a whole session.
type Summary struct {
	SessionID  string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Targets    []TargetSummary
}

// TotalDeleted returns the number of runs removed across targets.
func (s *Summary) TotalDeleted() int {
	total := 0
	for _, t := range s.Targets {
		total += t.Result.Count()
	}
	return total
}

// TotalDeletedBytes returns the scanned size of removed runs across targets.
func (s *Summary) TotalDeletedBytes() int64 {
	var total int64
	for _, t := range s.Targets {
		total += t.Result.DeletedBytes()
	}
	return total
}

// TotalFailures returns the number of runs that could not be removed.
func (s *Summary) TotalFailures() int {
	total := 0
	for _, t := range s.Targets {
		total += len(t.Result.Failures)
	}
	return total
}

// Session holds the collaborators for one invocation.
type Session struct {
	ID       string
	Printer  *display.Printer
	Prompter Prompter
	Logger   Logger
	Scanner  *catalog.Scanner
	History  Recorder         // optional
	Metrics  *metrics.Metrics // optional
	Options  Options
	Now      func() time.Time
	// Remove overrides how run directories are deleted. Defaults to os.RemoveAll.
	Remove func(path string) error
}

// NewSession wires a session with a fresh ID.
func NewSession(printer *display.Printer, prompter Prompter, logger Logger, opts Options) *Session {
	return &Session{
		ID:       uuid.New().String(),
		Printer:  printer,
		Prompter: prompter,
		Logger:   logger,
		Scanner:  catalog.NewScanner(logger),
		Options:  opts,
		Now:      time.Now,
	}
}

// Run processes targets sequentially in the order given.
// Only input errors abort the session; everything else is reported and the
// next target is processed.
func (s *Session) Run(ctx context.Context, targets []Target) (*Summary, error) {
	summary := &Summary{
		SessionID: s.ID,
		StartedAt: s.now(),
		DryRun:    s.Options.DryRun,
	}

	s.Printer.Title("TensorBoard Log Cleanup Tool")

	for _, target := range targets {
		ts, err := s.runTarget(ctx, target)
		summary.Targets = append(summary.Targets, ts)
		s.Printer.Blank()
		if err != nil {
			summary.FinishedAt = s.now()
			return summary, err
		}
	}

	summary.FinishedAt = s.now()
	s.Printer.Summary(summary.TotalDeleted())
	if s.Metrics != nil {
		s.Metrics.MarkSessionEnd()
	}
	return summary, nil
}

func (s *Session) runTarget(ctx context.Context, target Target) (TargetSummary, error) {
	ts := TargetSummary{Name: target.Name, Label: target.Label, Path: target.Path}
	s.Printer.Section(target.Label)

	if s.Options.LockDir != "" {
		lock, err := filelock.TryLockTarget(s.Options.LockDir, target.Name)
		switch {
		case err != nil:
			// Advisory only; an unwritable lock dir must not block cleanup
			s.Logger.LogWarn(fmt.Sprintf("could not lock target %s: %v", target.Name, err))
		case lock == nil:
			s.Printer.Warning(display.LockHeld(target.Label, filelock.LockPath(s.Options.LockDir, target.Name)))
			ts.Status = StatusLocked
			return ts, nil
		default:
			defer func() {
				if err := lock.Unlock(); err != nil {
					s.Logger.LogWarn(err.Error())
				}
			}()
		}
	}

	scan := s.Scanner.Scan(target.Path)
	cat := scan.Catalog()
	ts.Scanned = cat.Len()
	ts.ScannedBytes = cat.TotalBytes()
	ts.Warnings = scan.Warnings
	if s.Metrics != nil {
		s.Metrics.RecordScan(target.Name, ts.Scanned, ts.ScannedBytes, len(scan.Warnings))
	}

	s.Printer.Catalog(target.Label, cat)
	if len(scan.Warnings) > 0 {
		s.Printer.Warning(display.WarnSkippedEntries(scan.Warnings))
	}
	if cat.Len() == 0 {
		ts.Status = StatusEmpty
		return ts, nil
	}

	expr, err := s.selectionFor(target)
	if err != nil {
		return ts, err
	}

	parser := &selection.Parser{OldThreshold: s.Options.OldAfter, Now: s.now}
	sel := parser.Parse(expr, cat)
	s.Printer.TokenErrors(sel.Errors)

	ts.Selected = cat.Select(sel.Indices)
	if s.Metrics != nil {
		s.Metrics.RecordSelection(target.Name, len(ts.Selected))
	}
	if len(ts.Selected) == 0 {
		s.Printer.NoneSelected()
		ts.Status = StatusNoneSelected
		return ts, nil
	}

	s.Printer.Plan(ts.Selected)

	if s.Options.DryRun {
		s.Printer.DryRun(ts.Selected)
		ts.Status = StatusDryRun
		return ts, nil
	}

	if s.Options.AssumeYes {
		s.Logger.LogInfo(fmt.Sprintf("deleting %d runs from %s without prompting (--yes)", len(ts.Selected), target.Name))
	} else {
		ok, err := s.Prompter.Confirm("Are you sure?")
		if err != nil {
			return ts, err
		}
		if !ok {
			s.Printer.Cancelled()
			ts.Status = StatusCancelled
			return ts, nil
		}
	}

	deleter := executor.NewDeleter(target.Path)
	deleter.Observer = s.Printer.DeletionOutcome
	if s.Remove != nil {
		deleter.Remove = s.Remove
	}
	ts.Result = deleter.Delete(ts.Selected)
	ts.Status = StatusDeleted
	s.Printer.TargetResult(ts.Result)

	s.recordHistory(ctx, target.Name, ts.Result)
	if s.Metrics != nil {
		s.Metrics.RecordDeletion(target.Name, ts.Result.Count(), ts.Result.DeletedBytes(), len(ts.Result.Failures))
	}

	// One commit per target, and only when something changed
	if ts.Result.Count() > 0 && target.Volume != nil {
		err := target.Volume.Commit(ctx)
		if s.Metrics != nil {
			s.Metrics.RecordCommit(target.Name, err)
		}
		if err != nil {
			ts.CommitErr = err
			s.Printer.Error(fmt.Sprintf("Failed to commit %s volume: %v", target.Label, err))
			s.Logger.LogError(err.Error())
		} else {
			ts.Committed = true
			s.Logger.LogDebug(fmt.Sprintf("committed volume for %s", target.Name))
		}
	}

	return ts, nil
}

func (s *Session) selectionFor(target Target) (string, error) {
	if s.Options.Selection != nil {
		expr := *s.Options.Selection
		s.Printer.Prompt("Selection:")
		fmt.Fprintln(s.Printer.Writer(), expr)
		s.Logger.LogDebug(fmt.Sprintf("using preset selection %q for %s", expr, target.Name))
		return expr, nil
	}

	s.Printer.SelectionHelp(s.oldAfter())
	expr, err := s.Prompter.Ask("Selection")
	if err != nil {
		return "", fmt.Errorf("read selection: %w", err)
	}
	return expr, nil
}

func (s *Session) recordHistory(ctx context.Context, target string, result executor.Result) {
	if s.History == nil {
		return
	}

	now := s.now()
	entries := make([]*history.Entry, 0, result.Count()+len(result.Failures))
	for _, r := range result.Deleted {
		entries = append(entries, s.entry(target, r, nil, now))
	}
	for _, f := range result.Failures {
		entries = append(entries, s.entry(target, f.Record, f.Err, now))
	}

	var errs []error
	for _, e := range entries {
		if err := s.History.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		s.Logger.LogWarn(fmt.Sprintf("history: %v", errors.Join(errs...)))
	}
}

func (s *Session) entry(target string, r catalog.Record, err error, at time.Time) *history.Entry {
	e := &history.Entry{
		SessionID:  s.ID,
		Target:     target,
		Path:       r.Path,
		Dataset:    r.Dataset,
		RunName:    r.RunName,
		SizeBytes:  r.SizeBytes,
		EventCount: r.EventCount,
		ModifiedAt: r.ModifiedAt,
		Success:    err == nil,
		DeletedAt:  at,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func (s *Session) oldAfter() time.Duration {
	if s.Options.OldAfter <= 0 {
		return selection.DefaultOldThreshold
	}
	return s.Options.OldAfter
}

func (s *Session) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
