package commands

import (
	"context"

	"github.com/rhcephpkg/rhcephpkg"
)

// MergePatches brings the RHEL -patches branch from the "patches" remote
// into the local patch-queue branch.
type MergePatches struct {
	Env *Env
	// Force discards local patch-queue commits instead of requiring a
	// fast-forward.
	Force bool
}

func (m *MergePatches) Run(ctx context.Context) error {
	current, debian, err := m.Env.debianBranch(ctx)
	if err != nil {
		return err
	}
	rhel, err := rhcephpkg.DebianToRhelPatches(debian)
	if err != nil {
		return err
	}
	patchQueue := rhcephpkg.PatchQueueBranch(debian)
	if err := m.Env.Git.Fetch(ctx, "patches"); err != nil {
		return err
	}
	remote := "patches/" + rhel

	if current == patchQueue {
		if m.Force {
			return m.Env.Git.ResetHard(ctx, remote)
		}
		return m.Env.Git.MergeFastForward(ctx, remote)
	}
	// Update the patch-queue ref without checking it out.
	refspec := remote + ":" + patchQueue
	if m.Force {
		refspec = "+" + refspec
	}
	return m.Env.Git.Fetch(ctx, ".", refspec)
}
