// Package commands implements the rhcephpkg subcommands. Each command
// runs against the dist-git working tree of an Env.
package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
	"github.com/rhcephpkg/rhcephpkg/bugzilla"
	"github.com/rhcephpkg/rhcephpkg/chacra"
	"github.com/rhcephpkg/rhcephpkg/config"
	"github.com/rhcephpkg/rhcephpkg/git"
	"github.com/rhcephpkg/rhcephpkg/jenkins"
	"github.com/rhcephpkg/rhcephpkg/runner"
)

// JobName is the Jenkins job that builds dist-git branches.
const JobName = "build-package"

const (
	changelogPath = "debian/changelog"
	rulesPath     = "debian/rules"
	patchesDir    = "debian/patches"
	gbpConfPath   = "debian/gbp.conf"
)

// Env is everything a command needs from the outside world.
type Env struct {
	Dir    string
	Runner runner.Runner
	Git    *git.Repo
	Config *config.Config
	Out    io.Writer
	Clock  clockwork.Clock
	// HTTP overrides the client built from Config.
	HTTP *http.Client
}

func NewEnv(dir string, r runner.Runner, cfg *config.Config) *Env {
	return &Env{
		Dir:    dir,
		Runner: r,
		Git:    git.New(dir, r),
		Config: cfg,
		Out:    os.Stdout,
		Clock:  clockwork.NewRealClock(),
	}
}

func (e *Env) path(rel string) string {
	return filepath.Join(e.Dir, rel)
}

func (e *Env) cmd(name string, args ...string) runner.Cmd {
	return runner.Cmd{Dir: e.Dir, Name: name, Args: args}
}

func (e *Env) httpClient() (*http.Client, error) {
	if e.HTTP != nil {
		return e.HTTP, nil
	}
	return e.Config.HTTPClient()
}

func (e *Env) Jenkins() (*jenkins.Client, error) {
	creds, err := e.Config.Jenkins()
	if err != nil {
		return nil, err
	}
	hc, err := e.httpClient()
	if err != nil {
		return nil, err
	}
	return jenkins.New(creds.URL, creds.User, creds.Token, hc), nil
}

// Backend returns the artifact store named by the chacra url. A file://
// url reads a local mirror instead of a server.
func (e *Env) Backend() (rhcephpkg.Backend, error) {
	u, err := e.Config.ChacraURL()
	if err != nil {
		return nil, err
	}
	if dir, ok := strings.CutPrefix(u, "file://"); ok {
		return rhcephpkg.NewFileBackend(dir), nil
	}
	hc, err := e.httpClient()
	if err != nil {
		return nil, err
	}
	return chacra.New(u, hc), nil
}

func (e *Env) Bugzilla() (*bugzilla.Client, error) {
	hc, err := e.httpClient()
	if err != nil {
		return nil, err
	}
	return bugzilla.New(e.Config.BugzillaURL(), e.Config.BugzillaAPIKey(), hc), nil
}

// Maintainer is the changelog signature: DEBFULLNAME and DEBEMAIL, else
// the git identity.
func (e *Env) Maintainer(ctx context.Context) (string, error) {
	if m := e.Config.Maintainer(); m != "" {
		return m, nil
	}
	name := e.Git.ConfigGet(ctx, "user.name")
	email := e.Git.ConfigGet(ctx, "user.email")
	if name == "" || email == "" {
		return "", fmt.Errorf("set DEBFULLNAME and DEBEMAIL, or git user.name and user.email")
	}
	log.Debugf("using git identity %s <%s>", name, email)
	return fmt.Sprintf("%s <%s>", name, email), nil
}

// debianBranch returns the current branch and the debian branch it
// belongs to.
func (e *Env) debianBranch(ctx context.Context) (current, debian string, err error) {
	current, err = e.Git.CurrentBranch(ctx)
	if err != nil {
		return "", "", err
	}
	return current, rhcephpkg.DebianBranchFor(current), nil
}
