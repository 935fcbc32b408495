// Package runner runs the external tools rhcephpkg drives: git, gbp,
// pbuilder and sudo.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// A Cmd is one external command invocation.
type Cmd struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is added to the inherited environment, as "KEY=value" pairs.
	Env  []string
	Name string
	Args []string
}

func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type Runner interface {
	// Run executes c with its output going to the terminal.
	Run(ctx context.Context, c Cmd) error
	// Output executes c and returns its standard output.
	Output(ctx context.Context, c Cmd) (string, error)
}

// An Error is a command that exited non-zero or could not be started.
type Error struct {
	Cmd    Cmd
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status of the failed command, or -1 if it
// never ran.
func (e *Error) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// Exec runs commands as child processes.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (x *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func (x *Exec) Run(ctx context.Context, c Cmd) error {
	log.Infof("+ %s", c)
	cmd := x.command(ctx, c)
	cmd.Stdin = os.Stdin
	cmd.Stdout = x.Stdout
	cmd.Stderr = x.Stderr
	if err := cmd.Run(); err != nil {
		return &Error{Cmd: c, Err: err}
	}
	return nil
}

func (x *Exec) Output(ctx context.Context, c Cmd) (string, error) {
	log.Debugf("+ %s", c)
	var stderr bytes.Buffer
	cmd := x.command(ctx, c)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return string(out), &Error{Cmd: c, Stderr: stderr.String(), Err: err}
	}
	return string(out), nil
}
