// Package display renders the interactive cleanup session.
//
// A Printer writes every user-facing line: the run catalog table, the
// selection help, parse errors, the deletion plan, per-run outcomes and the
// final summary. Diagnostics that are not part of the conversation with the
// user go through the logger package instead.
//
//	p := display.NewPrinter(os.Stdout, true)
//	p.Section("LoRA Trainer")
//	p.Catalog("LoRA Trainer", cat)
//	p.SelectionHelp(7 * 24 * time.Hour)
//
// Last-modified timestamps are colored by recency band: green up to one day,
// yellow up to seven days, red beyond. Bands only affect emphasis.
//
// All output goes through an io.Writer, and colors can be switched off, so
// tests compare plain text.
package display
