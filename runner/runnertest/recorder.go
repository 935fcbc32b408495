// Package runnertest provides a fake runner.Runner that records every
// command instead of executing it.
package runnertest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rhcephpkg/rhcephpkg/runner"
)

// A Recorder answers commands from canned responses keyed by the command
// line (name and args joined by spaces). Unknown commands succeed with
// empty output.
type Recorder struct {
	mu      sync.Mutex
	Calls   []runner.Cmd
	outputs map[string][]string
	errs    map[string]error
	hooks   map[string]func(runner.Cmd)
}

func New() *Recorder {
	return &Recorder{
		outputs: make(map[string][]string),
		errs:    make(map[string]error),
		hooks:   make(map[string]func(runner.Cmd)),
	}
}

// SetOutput queues out as the output for the next call of line. The last
// queued output is repeated once the queue runs dry.
func (r *Recorder) SetOutput(line, out string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[line] = append(r.outputs[line], out)
}

// Fail makes line exit with status 1.
func (r *Recorder) Fail(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[line] = errors.New("exit status 1")
}

// OnRun calls fn whenever line runs, before answering it. Tests use this
// to mimic the side effects of tools like "gbp pq export".
func (r *Recorder) OnRun(line string, fn func(runner.Cmd)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[line] = fn
}

func (r *Recorder) Run(ctx context.Context, c runner.Cmd) error {
	_, err := r.Output(ctx, c)
	return err
}

func (r *Recorder) Output(ctx context.Context, c runner.Cmd) (string, error) {
	line := c.String()
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	hook := r.hooks[line]
	r.mu.Unlock()
	if hook != nil {
		hook(c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.errs[line]; ok {
		return "", &runner.Error{Cmd: c, Err: err}
	}
	queue := r.outputs[line]
	if len(queue) == 0 {
		return "", nil
	}
	out := queue[0]
	if len(queue) > 1 {
		r.outputs[line] = queue[1:]
	}
	return out, nil
}

// Lines returns every recorded command line in order.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether line was executed.
func (r *Recorder) Ran(line string) bool {
	for _, l := range r.Lines() {
		if l == line {
			return true
		}
	}
	return false
}

// Matching returns recorded command lines that start with prefix.
func (r *Recorder) Matching(prefix string) []string {
	var out []string
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}
