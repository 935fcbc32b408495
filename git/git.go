// Package git wraps the git command line for a single working tree.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhcephpkg/rhcephpkg/runner"
)

// A Repo is a git working tree driven through a runner.Runner.
type Repo struct {
	Dir    string
	Runner runner.Runner
}

func New(dir string, r runner.Runner) *Repo {
	return &Repo{Dir: dir, Runner: r}
}

func (r *Repo) cmd(args ...string) runner.Cmd {
	return runner.Cmd{Dir: r.Dir, Name: "git", Args: args}
}

func (r *Repo) run(ctx context.Context, args ...string) error {
	return r.Runner.Run(ctx, r.cmd(args...))
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	return r.Runner.Output(ctx, r.cmd(args...))
}

func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RevParse resolves ref to a full commit sha.
func (r *Repo) RevParse(ctx context.Context, ref string) (string, error) {
	out, err := r.output(ctx, "rev-parse", ref)
	if err != nil {
		return "", fmt.Errorf("rev-parse %s: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

// RefExists reports whether ref names anything in the repository.
func (r *Repo) RefExists(ctx context.Context, ref string) bool {
	_, err := r.output(ctx, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

func (r *Repo) Checkout(ctx context.Context, branch string) error {
	return r.run(ctx, "checkout", branch)
}

// RemoteBranches lists the branches of remote, without the "<remote>/"
// prefix and without the symbolic HEAD.
func (r *Repo) RemoteBranches(ctx context.Context, remote string) ([]string, error) {
	out, err := r.output(ctx, "branch", "-r", "--list", remote+"/*")
	if err != nil {
		return nil, fmt.Errorf("list %s branches: %w", remote, err)
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, " -> ") {
			continue
		}
		branches = append(branches, strings.TrimPrefix(line, remote+"/"))
	}
	return branches, nil
}

// EnsureLocalBranch creates a local branch tracking origin/<name> unless
// one already exists.
func (r *Repo) EnsureLocalBranch(ctx context.Context, name string) error {
	if r.RefExists(ctx, "refs/heads/"+name) {
		return nil
	}
	return r.run(ctx, "branch", "--track", name, "origin/"+name)
}

func (r *Repo) Add(ctx context.Context, args ...string) error {
	return r.run(ctx, append([]string{"add"}, args...)...)
}

// StatusPorcelain returns "git status --porcelain" output for paths.
func (r *Repo) StatusPorcelain(ctx context.Context, paths ...string) (string, error) {
	return r.output(ctx, append([]string{"status", "--porcelain"}, paths...)...)
}

// A NameStatus is one record of "git diff --name-status".
type NameStatus struct {
	Code string
	Path string
}

// DiffIndex compares the index and working tree under path against ref.
func (r *Repo) DiffIndex(ctx context.Context, ref, path string) ([]NameStatus, error) {
	out, err := r.output(ctx, "diff-index", "--name-status", ref, "--", path)
	if err != nil {
		return nil, fmt.Errorf("diff-index %s: %w", path, err)
	}
	return ParseNameStatus(out), nil
}

// ParseNameStatus reads tab-separated name-status output. Renames and
// copies report their new path.
func ParseNameStatus(out string) []NameStatus {
	var records []NameStatus
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		records = append(records, NameStatus{Code: fields[0], Path: fields[len(fields)-1]})
	}
	return records
}

// ShowFile returns the contents of path as of ref.
func (r *Repo) ShowFile(ctx context.Context, ref, path string) (string, error) {
	out, err := r.output(ctx, "show", ref+":"+path)
	if err != nil {
		return "", fmt.Errorf("show %s:%s: %w", ref, path, err)
	}
	return out, nil
}

// Commit records paths with message.
func (r *Repo) Commit(ctx context.Context, message string, paths ...string) error {
	args := append([]string{"commit"}, paths...)
	return r.run(ctx, append(args, "-m", message)...)
}

// LastCommitMessage returns the full message of HEAD.
func (r *Repo) LastCommitMessage(ctx context.Context) (string, error) {
	return r.output(ctx, "log", "-1", "--pretty=%B")
}

func (r *Repo) Show(ctx context.Context) error {
	return r.run(ctx, "show")
}

// ShowLastCommitFiles prints the last commit with the files it touched.
func (r *Repo) ShowLastCommitFiles(ctx context.Context) error {
	return r.run(ctx, "--no-pager", "log", "--name-status", "HEAD~1..")
}

// ConfigGet returns a git config value, or "" if it is unset.
func (r *Repo) ConfigGet(ctx context.Context, key string) string {
	out, err := r.output(ctx, "config", "--get", key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Describe returns the nearest tag matching pattern.
func (r *Repo) Describe(ctx context.Context, pattern string) (string, error) {
	out, err := r.output(ctx, "describe", "--match", pattern, "--abbrev=0")
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", pattern, err)
	}
	return strings.TrimSpace(out), nil
}

// RemoteExists checks that url is a reachable git repository.
func (r *Repo) RemoteExists(ctx context.Context, url string) bool {
	_, err := r.output(ctx, "ls-remote", "--exit-code", url)
	return err == nil
}

// Clone clones url into a new directory under r.Dir.
func (r *Repo) Clone(ctx context.Context, url string) error {
	return r.run(ctx, "clone", url)
}

// AddRemote adds and fetches a remote.
func (r *Repo) AddRemote(ctx context.Context, name, url string) error {
	return r.run(ctx, "remote", "add", "-f", name, url)
}

func (r *Repo) Fetch(ctx context.Context, remote string, refspecs ...string) error {
	return r.run(ctx, append([]string{"fetch", remote}, refspecs...)...)
}

func (r *Repo) MergeFastForward(ctx context.Context, ref string) error {
	return r.run(ctx, "merge", "--ff-only", ref)
}

func (r *Repo) ResetHard(ctx context.Context, ref string) error {
	return r.run(ctx, "reset", "--hard", ref)
}
