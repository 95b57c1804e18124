package cleanup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter reads answers from the user. Both calls block until a full line
// (or EOF) is available; there is no timeout.
type Prompter interface {
	// Ask returns the trimmed line typed after label. EOF yields "".
	Ask(label string) (string, error)
	// Confirm returns true only for an explicit "y" or "yes".
	Confirm(question string) (bool, error)
}

// LinePrompter prompts on out and reads lines from in.
type LinePrompter struct {
	out    io.Writer
	reader *bufio.Reader
}

// NewLinePrompter creates a prompter over the given streams.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{out: out, reader: bufio.NewReader(in)}
}

// Ask prints label and reads one line.
func (p *LinePrompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

// Confirm asks a yes/no question defaulting to no.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	response := strings.ToLower(line)
	return response == "y" || response == "yes", nil
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		// Closed input reads as an empty answer: cancel / decline
		fmt.Fprintln(p.out)
	}
	return strings.TrimSpace(line), nil
}
