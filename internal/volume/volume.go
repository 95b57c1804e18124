// Package volume models the storage volume that backs a trainer's log tree.
// Deletions are local until the volume is committed; the commit itself is
// delegated to an external command.
package volume

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Volume persists changes made under a mounted log tree.
type Volume interface {
	Commit(ctx context.Context) error
}

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes commands using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its output.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// CommandVolume commits by running a configured command.
type CommandVolume struct {
	Name    string
	Command []string
	Runner  CommandRunner
}

// New returns a Volume for a target. An empty command yields a volume whose
// Commit does nothing, for plain local disks.
func New(name string, command []string) Volume {
	if len(command) == 0 {
		return Local{}
	}
	return &CommandVolume{Name: name, Command: command, Runner: &ExecRunner{}}
}

// Commit runs the commit command once.
func (v *CommandVolume) Commit(ctx context.Context) error {
	runner := v.Runner
	if runner == nil {
		runner = &ExecRunner{}
	}
	if _, err := runner.Run(ctx, v.Command[0], v.Command[1:]...); err != nil {
		return fmt.Errorf("commit volume %s: %w", v.Name, err)
	}
	return nil
}

// Local is a volume with nothing to commit.
type Local struct{}

// Commit is a no-op.
func (Local) Commit(context.Context) error { return nil }
