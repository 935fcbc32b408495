package commands

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergePatches(t *testing.T) {
	for _, tt := range []struct {
		name   string
		branch string
		force  bool
		want   []string
	}{{
		name:   "debian branch",
		branch: "ceph-2-ubuntu",
		want: []string{
			"git rev-parse --abbrev-ref HEAD",
			"git fetch patches",
			"git fetch . patches/ceph-2-rhel-patches:patch-queue/ceph-2-ubuntu",
		},
	}, {
		name:   "debian branch forced",
		branch: "ceph-2-ubuntu",
		force:  true,
		want: []string{
			"git rev-parse --abbrev-ref HEAD",
			"git fetch patches",
			"git fetch . +patches/ceph-2-rhel-patches:patch-queue/ceph-2-ubuntu",
		},
	}, {
		name:   "patch-queue branch",
		branch: "patch-queue/ceph-3.0-xenial-hotfix-bz123",
		want: []string{
			"git rev-parse --abbrev-ref HEAD",
			"git fetch patches",
			"git merge --ff-only patches/ceph-3.0-rhel-patches-hotfix-bz123",
		},
	}, {
		name:   "patch-queue branch forced",
		branch: "patch-queue/ceph-2-ubuntu",
		force:  true,
		want: []string{
			"git rev-parse --abbrev-ref HEAD",
			"git fetch patches",
			"git reset --hard patches/ceph-2-rhel-patches",
		},
	}} {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, confOpts{})
			env.onBranch(tt.branch)
			require.NoError(t, (&MergePatches{Env: env.Env, Force: tt.force}).Run(context.Background()))
			if diff := cmp.Diff(tt.want, env.rec.Lines()); diff != "" {
				t.Errorf("commands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergePatchesBadBranch(t *testing.T) {
	env := newTestEnv(t, confOpts{})
	env.onBranch("master")
	require.ErrorContains(t, (&MergePatches{Env: env.Env}).Run(context.Background()), `could not parse debian branch "master"`)
	require.Empty(t, env.rec.Matching("git fetch"))
}

const originBranches = `  origin/HEAD -> origin/ceph-2-ubuntu
  origin/ceph-2-ubuntu
  origin/ceph-2-xenial
  origin/ceph-3.0-ubuntu
  origin/ceph-2-ubuntu-hotfix-bz123
  origin/pristine-tar
`

func TestCheckoutFromPatches(t *testing.T) {
	for rhel, want := range map[string]string{
		"ceph-2-rhel-patches":               "ceph-2-xenial",
		"ceph-3.0-rhel-patches":             "ceph-3.0-ubuntu",
		"ceph-2-rhel-patches-hotfix-bz123": "ceph-2-ubuntu-hotfix-bz123",
	} {
		env := newTestEnv(t, confOpts{})
		env.rec.SetOutput("git branch -r --list origin/*", originBranches)
		require.NoError(t, (&CheckoutFromPatches{Env: env.Env}).Run(context.Background(), rhel))
		require.True(t, env.rec.Ran("git checkout "+want), rhel)
	}
}

func TestCheckoutFromPatchesNotFound(t *testing.T) {
	env := newTestEnv(t, confOpts{})
	env.rec.SetOutput("git branch -r --list origin/*", originBranches)
	err := (&CheckoutFromPatches{Env: env.Env}).Run(context.Background(), "ceph-4.0-rhel-patches")
	require.EqualError(t, err, "could not find debian branch for ceph-4.0-rhel-patches")
	require.Empty(t, env.rec.Matching("git checkout"))
}
