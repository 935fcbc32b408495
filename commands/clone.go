package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
	"github.com/rhcephpkg/rhcephpkg/git"
)

// Clone checks out a package from dist-git into a new directory.
type Clone struct {
	Env *Env
}

// Run clones pkg. RPM-style "python-foo" names are cloned as "foo".
func (c *Clone) Run(ctx context.Context, pkg string) error {
	pkg = strings.TrimPrefix(pkg, "python-")
	dest := filepath.Join(c.Env.Dir, pkg)
	if _, err := os.Stat(dest); err == nil {
		return rhcephpkg.Preconditionf("%s already exists in current working directory.", pkg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	url, err := c.Env.Config.GitURL(pkg)
	if err != nil {
		return err
	}
	if err := c.Env.Git.Clone(ctx, url); err != nil {
		return err
	}

	repo := git.New(dest, c.Env.Runner)
	patchesURL, err := c.findPatchesURL(ctx, repo, pkg)
	if err != nil {
		return err
	}
	if patchesURL != "" {
		if err := repo.AddRemote(ctx, "patches", patchesURL); err != nil {
			return err
		}
	}
	return setupPristineTar(ctx, repo)
}

// findPatchesURL returns the first reachable RHEL patches repository for
// pkg. Debian python packages drop the "python-" prefix their RPM
// counterparts use, so both names are tried.
func (c *Clone) findPatchesURL(ctx context.Context, repo *git.Repo, pkg string) (string, error) {
	for _, module := range []string{pkg, "python-" + pkg} {
		u, ok, err := c.Env.Config.PatchesURL(module)
		if err != nil {
			return "", err
		}
		if !ok {
			log.Info("no patchesbaseurl configured, skipping patches remote")
			return "", nil
		}
		if repo.RemoteExists(ctx, u) {
			return u, nil
		}
	}
	log.Warnf("no patches repository found for %s", pkg)
	return "", nil
}

// setupPristineTar creates the local pristine-tar branch gbp needs, when
// the remote has one.
func setupPristineTar(ctx context.Context, repo *git.Repo) error {
	if !repo.RefExists(ctx, "refs/remotes/origin/pristine-tar") {
		log.Debug("no origin/pristine-tar branch")
		return nil
	}
	return repo.EnsureLocalBranch(ctx, "pristine-tar")
}
