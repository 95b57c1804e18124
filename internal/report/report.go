// Package report renders a finished cleanup session as Markdown, or as HTML
// converted from that Markdown, for archiving next to the log volume.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrison/tblogs/internal/catalog"
	"github.com/harrison/tblogs/internal/cleanup"
	"github.com/harrison/tblogs/internal/filelock"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Markdown renders the session summary.
func Markdown(s *cleanup.Summary) []byte {
	var b bytes.Buffer

	b.WriteString("# TensorBoard Log Cleanup Report\n\n")
	fmt.Fprintf(&b, "- Session: `%s`\n", s.SessionID)
	fmt.Fprintf(&b, "- Started: %s\n", s.StartedAt.Format(timeLayout))
	fmt.Fprintf(&b, "- Finished: %s\n", s.FinishedAt.Format(timeLayout))
	if s.DryRun {
		b.WriteString("- Mode: dry run\n")
	} else {
		b.WriteString("- Mode: delete\n")
	}
	b.WriteString("\n")

	for _, t := range s.Targets {
		writeTarget(&b, t)
	}

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Runs deleted: %d\n", s.TotalDeleted())
	fmt.Fprintf(&b, "- Space reclaimed: %s\n", humanize.IBytes(uint64(s.TotalDeletedBytes())))
	fmt.Fprintf(&b, "- Failures: %d\n", s.TotalFailures())

	return b.Bytes()
}

func writeTarget(b *bytes.Buffer, t cleanup.TargetSummary) {
	fmt.Fprintf(b, "## %s (`%s`)\n\n", t.Label, t.Name)
	fmt.Fprintf(b, "- Path: `%s`\n", t.Path)
	fmt.Fprintf(b, "- Status: %s\n", t.Status)
	if t.Status != cleanup.StatusLocked {
		fmt.Fprintf(b, "- Scanned: %d runs, %s\n", t.Scanned, humanize.IBytes(uint64(max(t.ScannedBytes, 0))))
	}
	if len(t.Warnings) > 0 {
		fmt.Fprintf(b, "- Skipped entries: %d\n", len(t.Warnings))
	}
	switch {
	case t.CommitErr != nil:
		fmt.Fprintf(b, "- Volume commit: failed (%s)\n", escape(t.CommitErr.Error()))
	case t.Committed:
		b.WriteString("- Volume commit: ok\n")
	}
	b.WriteString("\n")

	if len(t.Selected) == 0 {
		return
	}

	failures := make(map[string]error, len(t.Result.Failures))
	for _, f := range t.Result.Failures {
		failures[f.Record.Path] = f.Err
	}

	b.WriteString("| Run | Size | Events | Last Modified | Outcome |\n")
	b.WriteString("|---|---:|---:|---|---|\n")
	for _, r := range t.Selected {
		fmt.Fprintf(b, "| %s | %s | %d | %s | %s |\n",
			escape(r.DisplayName()),
			humanize.IBytes(uint64(max(r.SizeBytes, 0))),
			r.EventCount,
			r.ModifiedAt.Format("2006-01-02 15:04"),
			escape(outcome(t.Status, r, failures)))
	}
	b.WriteString("\n")
}

func outcome(status cleanup.Status, r catalog.Record, failures map[string]error) string {
	switch status {
	case cleanup.StatusDryRun:
		return "would delete"
	case cleanup.StatusCancelled:
		return "kept (cancelled)"
	case cleanup.StatusDeleted:
		if err, ok := failures[r.Path]; ok {
			return "failed: " + err.Error()
		}
		return "deleted"
	default:
		return "kept"
	}
}

// escape keeps cell text from breaking the table layout.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// HTML renders the Markdown report as a standalone HTML document.
func HTML(s *cleanup.Summary) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(Markdown(s), &body); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>TensorBoard Log Cleanup %s</title>\n", s.StartedAt.Format(time.DateOnly))
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}

// Write renders the report to path, as HTML when the extension is .html or
// .htm and Markdown otherwise. The file is replaced atomically.
func Write(path string, s *cleanup.Summary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data, err = HTML(s)
		if err != nil {
			return err
		}
	default:
		data = Markdown(s)
	}

	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
