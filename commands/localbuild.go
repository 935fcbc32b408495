package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
)

const defaultPbuilderCache = "/var/cache/pbuilder"

// Localbuild builds the package on this machine with gbp and pbuilder.
type Localbuild struct {
	Env *Env
	// Dist overrides the distribution guessed from the branch name.
	Dist string
	// CacheDir holds the pbuilder base tarballs.
	CacheDir string
	// Resources reports the logical CPU count and total RAM in bytes.
	Resources func(ctx context.Context) (cpus int, ram uint64, err error)
}

func hostResources(ctx context.Context) (int, uint64, error) {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("counting cpus: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reading memory size: %w", err)
	}
	return cpus, vm.Total, nil
}

// JobsArg returns a make "-jN" flag: one job per CPU, but no more than one
// per 4 GB of RAM (rounded up to whole GB), and at least one.
func JobsArg(cpus int, ram uint64) string {
	ramGB := math.Ceil(float64(ram) / (1 << 30))
	n := math.Max(math.Min(float64(cpus), ramGB/4), 1)
	return fmt.Sprintf("-j%d", int(n))
}

func (l *Localbuild) Run(ctx context.Context) error {
	dist := l.Dist
	if dist == "" {
		_, debian, err := l.Env.debianBranch(ctx)
		if err != nil {
			return err
		}
		if dist, err = rhcephpkg.DefaultDistro(debian); err != nil {
			return err
		}
	}
	resources := l.Resources
	if resources == nil {
		resources = hostResources
	}
	cpus, ram, err := resources(ctx)
	if err != nil {
		return err
	}
	cacheDir := l.CacheDir
	if cacheDir == "" {
		cacheDir = defaultPbuilderCache
	}
	cache := filepath.Join(cacheDir, fmt.Sprintf("base-%s-amd64.tgz", dist))
	if err := l.setupPbuilderCache(ctx, cache, dist); err != nil {
		return err
	}
	if err := setupPristineTar(ctx, l.Env.Git); err != nil {
		return err
	}
	log.Infof("building %s with pbuilder", rhcephpkg.PackageName(l.Env.Dir))
	cmd := l.Env.cmd("gbp", "buildpackage", "--git-dist="+dist, "--git-arch=amd64",
		"--git-verbose", "--git-pbuilder", JobsArg(cpus, ram), "-us", "-uc")
	cmd.Env = []string{"BUILDER=pbuilder"}
	return l.Env.Runner.Run(ctx, cmd)
}

// setupPbuilderCache creates the base tarball for dist. A zero-length
// tarball left behind by an interrupted create is removed first.
func (l *Localbuild) setupPbuilderCache(ctx context.Context, path, dist string) error {
	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.Size() > 0:
		return nil
	case err == nil:
		log.Infof("deleting 0 size %s", path)
		if err := l.Env.Runner.Run(ctx, l.Env.cmd("sudo", "rm", path)); err != nil {
			return err
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}
	return l.Env.Runner.Run(ctx, l.Env.cmd("sudo", "pbuilder", "create",
		"--debootstrapopts", "--variant=buildd", "--basetgz", path, "--distribution", dist))
}
