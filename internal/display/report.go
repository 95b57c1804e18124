package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/harrison/tblogs/internal/catalog"
	"github.com/harrison/tblogs/internal/executor"
)

// Band is a recency bucket used only for emphasis.
type Band int

const (
	// BandFresh is modified within the last day
	BandFresh Band = iota
	// BandRecent is modified between one and seven days ago
	BandRecent
	// BandStale is modified more than seven days ago
	BandStale
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// BandFor classifies a modification time relative to now.
func BandFor(modified, now time.Time) Band {
	age := now.Sub(modified)
	switch {
	case age <= day:
		return BandFresh
	case age <= week:
		return BandRecent
	default:
		return BandStale
	}
}

func (b Band) String() string {
	switch b {
	case BandFresh:
		return "fresh"
	case BandRecent:
		return "recent"
	default:
		return "stale"
	}
}

// FormatSize renders a byte count in IEC units (e.g., "1.5 MiB").
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// Printer renders the cleanup session to a terminal or any writer.
type Printer struct {
	out   io.Writer
	color bool
	now   func() time.Time
}

// NewPrinter creates a Printer. colorOutput enables ANSI colors.
func NewPrinter(out io.Writer, colorOutput bool) *Printer {
	return &Printer{out: out, color: colorOutput, now: time.Now}
}

// WithClock overrides the reference time used for recency bands.
func (p *Printer) WithClock(now func() time.Time) *Printer {
	p.now = now
	return p
}

// Writer returns the underlying writer, so prompts share the same stream.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if p.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Printer) bandColor(b Band) color.Attribute {
	switch b {
	case BandFresh:
		return color.FgGreen
	case BandRecent:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// Title prints the tool banner.
func (p *Printer) Title(s string) {
	p.println(p.paint(s, color.Bold))
	p.println("")
}

// Section prints a per-target header.
func (p *Printer) Section(label string) {
	p.println(p.paint(fmt.Sprintf("== %s Logs ==", label), color.Bold, color.FgCyan))
}

// Catalog prints every run with its index, then the aggregate line.
func (p *Printer) Catalog(label string, cat *catalog.Catalog) {
	if cat.Len() == 0 {
		p.println(p.paint("No runs found for "+label, color.FgYellow))
		return
	}

	p.println(p.paint("TensorBoard Logs - "+label, color.Bold))

	now := p.now()
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDataset\tRun Name\tSize\tEvents\tLast Modified")
	for i, r := range cat.Records() {
		modified := p.paint(r.ModifiedAt.Format("2006-01-02 15:04"), p.bandColor(BandFor(r.ModifiedAt, now)))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", i, r.Dataset, r.RunName, FormatSize(r.SizeBytes), r.EventCount, modified)
	}
	tw.Flush()

	p.println("")
	p.println(fmt.Sprintf("Total: %d runs, %s", cat.Len(), FormatSize(cat.TotalBytes())))
	p.println("")
}

// SelectionHelp explains the selection grammar.
func (p *Printer) SelectionHelp(oldAfter time.Duration) {
	p.println(p.paint("Select runs to delete:", color.Bold))
	p.println("  - Enter numbers separated by spaces (e.g., '0 2 5')")
	p.println("  - Enter a range (e.g., '0-5')")
	p.println("  - Enter 'all' to select all")
	p.println(fmt.Sprintf("  - Enter 'old' to select runs older than %s", FormatAge(oldAfter)))
	p.println("  - Press Enter to cancel")
	p.println("")
}

// FormatAge renders a threshold in whole days when it is a day multiple.
func FormatAge(d time.Duration) string {
	if d > 0 && d%day == 0 {
		days := int(d / day)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}

// TokenErrors prints one line per malformed selection token.
func (p *Printer) TokenErrors(errs []error) {
	for _, err := range errs {
		p.println(p.paint(err.Error(), color.FgRed))
	}
}

// NoneSelected reports an empty selection.
func (p *Printer) NoneSelected() {
	p.println(p.paint("No runs selected", color.FgYellow))
}

// Plan restates exactly what will be deleted.
func (p *Printer) Plan(records []catalog.Record) {
	p.println("")
	p.println(p.paint("The following runs will be PERMANENTLY deleted:", color.Bold, color.FgRed))
	for _, r := range records {
		p.println(fmt.Sprintf("  - %s (%s)", r.DisplayName(), FormatSize(r.SizeBytes)))
	}
	p.println("")
	p.println(fmt.Sprintf("Total: %d runs, %s", len(records), FormatSize(catalog.SumBytes(records))))
	p.println("")
}

// Cancelled reports a declined confirmation.
func (p *Printer) Cancelled() {
	p.println(p.paint("Cancelled", color.FgYellow))
}

// DryRun reports that nothing was deleted on purpose.
func (p *Printer) DryRun(records []catalog.Record) {
	p.println(p.paint(fmt.Sprintf("Dry run: %d runs would be deleted, nothing was removed", len(records)), color.FgYellow))
}

// DeletionOutcome prints the per-run result as it happens.
func (p *Printer) DeletionOutcome(record catalog.Record, err error) {
	if err != nil {
		p.println(p.paint(fmt.Sprintf("Failed to delete %s: %v", record.Path, err), color.FgRed))
		return
	}
	p.println(p.paint("Deleted: "+record.DisplayName(), color.FgGreen))
}

// TargetResult prints the count for one target when anything failed.
func (p *Printer) TargetResult(result executor.Result) {
	if len(result.Failures) == 0 {
		return
	}
	p.println(p.paint(fmt.Sprintf("%d deleted, %d failed", result.Count(), len(result.Failures)), color.FgYellow))
}

// Error prints a non-fatal error line.
func (p *Printer) Error(msg string) {
	p.println(p.paint(msg, color.FgRed))
}

// Summary prints the final count across all targets.
func (p *Printer) Summary(totalDeleted int) {
	if totalDeleted > 0 {
		p.println(p.paint(fmt.Sprintf("Cleanup complete: %d runs deleted", totalDeleted), color.Bold, color.FgGreen))
		return
	}
	p.println(p.paint("No runs were deleted", color.FgYellow))
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	p.println("")
}

// Prompt writes a prompt without a trailing newline.
func (p *Printer) Prompt(label string) {
	fmt.Fprint(p.out, strings.TrimRight(label, " ")+" ")
}
