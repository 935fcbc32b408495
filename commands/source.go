package commands

import (
	"context"
)

// Source builds a source package and tags the debian branch.
type Source struct {
	Env *Env
}

func (s *Source) Run(ctx context.Context) error {
	if err := setupPristineTar(ctx, s.Env.Git); err != nil {
		return err
	}
	return s.Env.Runner.Run(ctx, s.Env.cmd("gbp", "buildpackage", "--git-tag", "--git-retag", "-S", "-us", "-uc"))
}
