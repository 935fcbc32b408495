package commands

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
)

const (
	queuePollInterval = 2 * time.Second
	buildPollInterval = 10 * time.Second
)

// Build triggers a build of the current branch in Jenkins and watches it
// until it finishes.
type Build struct {
	Env *Env
}

func (b *Build) Run(ctx context.Context) error {
	branch, err := b.Env.Git.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if rhcephpkg.IsPatchQueue(branch) {
		log.Errorf("%s is a patch-queue branch", branch)
		return rhcephpkg.Preconditionf(`You can switch to the debian branch with "gbp pq switch"`)
	}
	pkg := rhcephpkg.PackageName(b.Env.Dir)
	client, err := b.Env.Jenkins()
	if err != nil {
		return err
	}
	log.Infof("building %s branch %s at %s/job/%s", pkg, branch, client.URL, JobName)
	params := map[string]string{"PKG_NAME": pkg, "BRANCH": branch}
	id, err := client.BuildJob(ctx, JobName, params, client.Token)
	if err != nil {
		return fmt.Errorf("triggering %s: %w", JobName, err)
	}

	var number int
	for {
		item, err := client.QueueItem(ctx, id)
		if err != nil {
			return err
		}
		if item.Executable != nil {
			number = item.Executable.Number
			break
		}
		if item.Cancelled {
			return fmt.Errorf("queue item %d was cancelled", id)
		}
		log.Infof("queue state: %s", item.Why)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.Env.Clock.After(queuePollInterval):
		}
	}
	log.Infof("build number %d", number)
	w := &WatchBuild{Env: b.Env}
	return w.Run(ctx, number)
}
