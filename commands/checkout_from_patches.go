package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
)

// CheckoutFromPatches checks out the debian branch that goes with a RHEL
// -patches branch.
type CheckoutFromPatches struct {
	Env *Env
}

func (c *CheckoutFromPatches) Run(ctx context.Context, rhelPatches string) error {
	branches, err := c.Env.Git.RemoteBranches(ctx, "origin")
	if err != nil {
		return err
	}
	debian, ok := rhcephpkg.RhelPatchesToDebian(rhelPatches, branches)
	if !ok {
		return fmt.Errorf("could not find debian branch for %s", rhelPatches)
	}
	log.Infof("git checkout %s", debian)
	return c.Env.Git.Checkout(ctx, debian)
}
