package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rhcephpkg/rhcephpkg"
)

// A MissingFlagError lists bugs that are not approved for a release.
type MissingFlagError struct {
	Flag string
	Bugs []string
}

func (e *MissingFlagError) Error() string {
	return fmt.Sprintf("%d bugs missing %s release flag", len(e.Bugs), e.Flag)
}

// Gitbz checks that every bug named in the last commit message carries
// the release flag of the current debian branch.
type Gitbz struct {
	Env *Env
}

func (g *Gitbz) Run(ctx context.Context) error {
	_, debian, err := g.Env.debianBranch(ctx)
	if err != nil {
		return err
	}
	flag, err := rhcephpkg.ReleaseFlag(debian)
	if err != nil {
		return err
	}
	msg, err := g.Env.Git.LastCommitMessage(ctx)
	if err != nil {
		return err
	}
	ids := rhcephpkg.FindBugRefs(msg)
	if len(ids) == 0 {
		return errors.New("no BZs found")
	}
	client, err := g.Env.Bugzilla()
	if err != nil {
		return err
	}
	bugs, err := client.Bugs(ctx, ids)
	if err != nil {
		return err
	}

	approved := make(map[string]bool)
	for _, bug := range bugs {
		f, ok := bug.Flag(flag)
		if !ok {
			continue
		}
		id := strconv.Itoa(bug.ID)
		approved[id] = true
		fmt.Fprintf(g.Env.Out, "rhbz#%s: %s%s\n", id, f.Name, f.Status)
	}
	var missing []string
	for _, id := range ids {
		if !approved[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	fmt.Fprintf(g.Env.Out, "Missing %s release flag:\n", flag)
	for _, id := range missing {
		fmt.Fprintf(g.Env.Out, "rhbz#%s\n", id)
	}
	return &MissingFlagError{Flag: flag, Bugs: missing}
}
