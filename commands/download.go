package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
)

// Download fetches every artifact of a build into the working directory.
type Download struct {
	Env *Env
}

// Run downloads build, given as "<package>_<version>".
func (d *Download) Run(ctx context.Context, build string) error {
	b, err := rhcephpkg.ParseBuild(build)
	if err != nil {
		return err
	}
	be, err := d.Env.Backend()
	if err != nil {
		return err
	}
	written, err := rhcephpkg.NewRepoFromBackend(be).Download(ctx, b, d.Env.Dir)
	if err != nil {
		return err
	}
	log.Infof("downloaded %d files of %s", len(written), b)
	return nil
}

// ListBuilds prints every build of a package, oldest first.
type ListBuilds struct {
	Env *Env
}

func (l *ListBuilds) Run(ctx context.Context, pkg string) error {
	be, err := l.Env.Backend()
	if err != nil {
		return err
	}
	builds, err := rhcephpkg.NewRepoFromBackend(be).Builds(ctx, pkg)
	if err != nil {
		return err
	}
	for _, b := range builds {
		fmt.Fprintln(l.Env.Out, b)
	}
	return nil
}
