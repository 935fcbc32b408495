package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rhcephpkg/rhcephpkg"
)

const testGbpConf = `[DEFAULT]
pristine-tar = True
debian-branch = ceph-3.0-ubuntu
upstream-branch = upstream/ceph-3.0-ubuntu

[import-orig]
merge-mode = replace
`

func TestNewVersion(t *testing.T) {
	env := newTestEnv(t, confOpts{})
	env.onBranch("ceph-3.0-ubuntu")
	env.writeFile(t, "debian/gbp.conf", testGbpConf)
	env.writeFile(t, "debian/changelog", testChangelog)
	env.rec.SetOutput("git describe --match upstream/* --abbrev=0", "upstream/12.2.4\n")

	n := &NewVersion{Env: env.Env, Bugs: "rhbz#1548067"}
	require.NoError(t, n.Run(context.Background()))

	require.True(t, env.rec.Ran("gbp import-orig --no-interactive --uscan"))
	require.True(t, env.rec.Ran("git rev-parse --verify --quiet refs/heads/upstream/ceph-3.0-ubuntu"))

	top, err := rhcephpkg.ParseTopEntry(env.readFile(t, "debian/changelog"))
	require.NoError(t, err)
	require.Equal(t, "12.2.4-2redhat1", top.Version)
	require.Equal(t, "xenial", top.Distribution)
	require.Equal(t, []string{"Imported Upstream version 12.2.4 (rhbz#1548067)"}, top.Changes)

	var commit []string
	for _, c := range env.rec.Calls {
		if len(c.Args) > 0 && c.Args[0] == "commit" {
			commit = c.Args
		}
	}
	want := []string{"commit", "debian/changelog", "-m",
		"debian: 12.2.4-2redhat1\n\n  * Imported Upstream version 12.2.4 (rhbz#1548067)\n"}
	if diff := cmp.Diff(want, commit); diff != "" {
		t.Errorf("commit mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "git show", env.rec.Lines()[len(env.rec.Lines())-1])
}

func TestNewVersionTarball(t *testing.T) {
	env := newTestEnv(t, confOpts{})
	env.onBranch("ceph-3.0-ubuntu")
	env.writeFile(t, "debian/gbp.conf", testGbpConf)
	env.writeFile(t, "debian/changelog", testChangelog)
	env.rec.SetOutput("git describe --match upstream/* --abbrev=0", "upstream/12.2.4_rc1\n")

	require.NoError(t, (&NewVersion{Env: env.Env, Tarball: "../ceph_12.2.4.orig.tar.gz"}).Run(context.Background()))
	require.True(t, env.rec.Ran("gbp import-orig --no-interactive ../ceph_12.2.4.orig.tar.gz"))
	top, err := rhcephpkg.ParseTopEntry(env.readFile(t, "debian/changelog"))
	require.NoError(t, err)
	require.Equal(t, "12.2.4~rc1-2redhat1", top.Version)
	require.Equal(t, []string{"Imported Upstream version 12.2.4~rc1"}, top.Changes)
}

func TestNewVersionPreconditions(t *testing.T) {
	for name, tt := range map[string]struct {
		branch  string
		gbpConf string
		want    string
	}{
		"patch-queue branch": {
			branch:  "patch-queue/ceph-3.0-ubuntu",
			gbpConf: testGbpConf,
			want:    "Must run `new-version` on debian branch",
		},
		"no pristine-tar": {
			branch:  "ceph-3.0-ubuntu",
			gbpConf: "[DEFAULT]\nupstream-branch = upstream/ceph-3.0-ubuntu\n[import-orig]\nmerge-mode = replace\n",
			want:    `"pristine-tar" is "". Set to "True" in debian/gbp.conf.`,
		},
		"merge mode": {
			branch:  "ceph-3.0-ubuntu",
			gbpConf: "[DEFAULT]\npristine-tar = True\nmerge-mode = merge\nupstream-branch = upstream/ceph-3.0-ubuntu\n",
			want:    `"merge-mode" is "merge". Set to "replace" in debian/gbp.conf.`,
		},
		"shared upstream branch": {
			branch:  "ceph-3.0-ubuntu",
			gbpConf: "[DEFAULT]\npristine-tar = True\nupstream-branch = upstream\n[import-orig]\nmerge-mode = replace\n",
			want:    `"upstream-branch" is "upstream". Set to "upstream/ceph-3.0-ubuntu" in debian/gbp.conf.`,
		},
	} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, confOpts{})
			env.onBranch(tt.branch)
			env.writeFile(t, "debian/gbp.conf", tt.gbpConf)
			env.writeFile(t, "debian/changelog", testChangelog)

			err := (&NewVersion{Env: env.Env}).Run(context.Background())
			var perr *rhcephpkg.PreconditionError
			require.True(t, errors.As(err, &perr))
			require.Equal(t, tt.want, perr.Msg)
			require.Empty(t, env.rec.Matching("gbp"))
			require.Equal(t, testChangelog, env.readFile(t, "debian/changelog"))
		})
	}
}

func TestTagToVersion(t *testing.T) {
	v, err := tagToVersion("upstream/1%2.0_beta1")
	require.NoError(t, err)
	require.Equal(t, "1:2.0~beta1", v)

	_, err = tagToVersion("v12.2.4")
	require.Error(t, err)
}
