package commands

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Jenkins reports times in the zone of the build master.
const jenkinsTimeZone = "America/New_York"

const timeFormat = "2006-01-02 03:04:05 PM -0700"

// A BuildFailedError is a Jenkins build that finished without SUCCESS.
type BuildFailedError struct {
	Number int
	Result string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build %d result is %s", e.Number, e.Result)
}

// WatchBuild follows a running build-package job until it finishes.
type WatchBuild struct {
	Env *Env
}

func (w *WatchBuild) Run(ctx context.Context, number int) error {
	client, err := w.Env.Jenkins()
	if err != nil {
		return err
	}
	info, err := client.BuildInfo(ctx, JobName, number)
	if err != nil {
		return err
	}
	log.Infof("Watching %s", client.JobURL(JobName, number))
	pkg, ok := info.Parameter("PKG_NAME")
	if !ok {
		return fmt.Errorf("could not find PKG_NAME in build %d", number)
	}
	tz, err := time.LoadLocation(jenkinsTimeZone)
	if err != nil {
		log.Warnf("loading %s: %v", jenkinsTimeZone, err)
		tz = time.UTC
	}
	start := info.Started().In(tz)
	log.Infof("Started %s", start.Format(timeFormat))

	wasBuilding := info.Building
	for info.Building {
		elapsed := w.Env.Clock.Since(start)
		if elapsed < 0 {
			elapsed = 0
		}
		fmt.Fprintf(w.Env.Out, "\r%s building for %02d:%02d", pkg, int(elapsed.Minutes()), int(elapsed.Seconds())%60)
		select {
		case <-ctx.Done():
			fmt.Fprintln(w.Env.Out)
			log.Infof("continue watching with `rhcephpkg watch-build %d`", number)
			return ctx.Err()
		case <-w.Env.Clock.After(buildPollInterval):
		}
		if info, err = client.BuildInfo(ctx, JobName, number); err != nil {
			return err
		}
	}
	if wasBuilding {
		fmt.Fprintln(w.Env.Out)
	}
	log.Infof("Ended %s", info.Ended().In(tz).Format(timeFormat))
	if info.Result != "SUCCESS" {
		log.Error(info.Result)
		return &BuildFailedError{Number: number, Result: info.Result}
	}
	log.Info("result is SUCCESS")
	return nil
}
