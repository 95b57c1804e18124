package display

import (
	"fmt"
	"io"
	"strings"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related paths (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow when colorOutput is set
func (w Warning) Display(out io.Writer, colorOutput bool) {
	var b strings.Builder

	if colorOutput {
		b.WriteString("\x1b[33m")
	}
	b.WriteString("Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected path:\n")
		} else {
			b.WriteString("Affected paths:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	if colorOutput {
		b.WriteString("\x1b[0m")
	}

	fmt.Fprint(out, b.String())
}

// WarnSkippedEntries builds the warning shown after a scan that had to skip
// unreadable entries.
func WarnSkippedEntries(errs []error) Warning {
	files := make([]string, 0, len(errs))
	for _, err := range errs {
		files = append(files, err.Error())
	}

	title := "1 entry could not be read and was skipped"
	if len(errs) != 1 {
		title = fmt.Sprintf("%d entries could not be read and were skipped", len(errs))
	}

	return Warning{
		Title:      title,
		Files:      files,
		Suggestion: "Check permissions on the log volume; skipped runs are not listed above",
	}
}

// LockHeld builds the warning shown when another session owns a target.
func LockHeld(label, lockPath string) Warning {
	return Warning{
		Title:      fmt.Sprintf("Another cleanup is already running for %s", label),
		Files:      []string{lockPath},
		Suggestion: "Wait for it to finish, then run again",
	}
}

// Display the Printer's warning in its color mode.
func (p *Printer) Warning(w Warning) {
	w.Display(p.out, p.color)
}
