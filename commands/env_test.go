package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/rhcephpkg/rhcephpkg/config"
	"github.com/rhcephpkg/rhcephpkg/git"
	"github.com/rhcephpkg/rhcephpkg/jenkins/jenkinstest"
	"github.com/rhcephpkg/rhcephpkg/runner/runnertest"
)

var testNow = time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC)

type testEnv struct {
	*Env
	rec   *runnertest.Recorder
	out   *bytes.Buffer
	clock *clockwork.FakeClock
}

type confOpts struct {
	jenkinsURL  string
	chacraURL   string
	bugzillaURL string
}

// newTestEnv returns an Env for a dist-git checkout called "ceph" in a
// temporary directory.
func newTestEnv(t *testing.T, opts confOpts) *testEnv {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "ceph")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "debian", "patches"), 0o755))

	conf := fmt.Sprintf(`[rhcephpkg]
user = %s
gitbaseurl = ssh://%%(user)s@git.example.com/ubuntu/%%(module)s
patchesbaseurl = ssh://%%(user)s@git.example.com/rhel/%%(module)s

[rhcephpkg.jenkins]
token = %s
url = %s

[rhcephpkg.chacra]
url = %s

[rhcephpkg.bugzilla]
url = %s
apikey = secret
`, jenkinstest.User, jenkinstest.Token, opts.jenkinsURL, opts.chacraURL, opts.bugzillaURL)
	confPath := filepath.Join(root, "rhcephpkg.conf")
	require.NoError(t, os.WriteFile(confPath, []byte(conf), 0o644))
	cfg, err := config.LoadFile(confPath, config.Env{FullName: "Ken Dreyer", Email: "kdreyer@example.com"})
	require.NoError(t, err)

	rec := runnertest.New()
	out := new(bytes.Buffer)
	fc := clockwork.NewFakeClockAt(testNow)
	return &testEnv{
		Env: &Env{
			Dir:    dir,
			Runner: rec,
			Git:    git.New(dir, rec),
			Config: cfg,
			Out:    out,
			Clock:  fc,
		},
		rec:   rec,
		out:   out,
		clock: fc,
	}
}

func (e *testEnv) onBranch(branch string) {
	e.rec.SetOutput("git rev-parse --abbrev-ref HEAD", branch+"\n")
}

func (e *testEnv) writeFile(t *testing.T, rel, contents string) {
	t.Helper()
	path := filepath.Join(e.Dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func (e *testEnv) readFile(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.Dir, rel))
	require.NoError(t, err)
	return string(b)
}
