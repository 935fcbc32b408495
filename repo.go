package rhcephpkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"pault.ag/go/debian/version"
)

// A Repo is a view of built packages stored in a Backend.
type Repo struct {
	be Backend
}

func NewRepoFromBackend(backend Backend) Repo {
	return Repo{be: backend}
}

// Builds lists every build of pkg, oldest first in dpkg version order.
func (r Repo) Builds(ctx context.Context, pkg string) ([]Build, error) {
	versions, err := r.be.GetVersions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	SortVersions(versions)
	builds := make([]Build, len(versions))
	for i, v := range versions {
		builds[i] = Build{Package: pkg, Version: v}
	}
	return builds, nil
}

// SortVersions orders Debian version strings the way dpkg does. Strings
// that are not valid versions sort after every valid one, lexically.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		a, aErr := version.Parse(versions[i])
		b, bErr := version.Parse(versions[j])
		switch {
		case aErr != nil && bErr != nil:
			return versions[i] < versions[j]
		case aErr != nil:
			return false
		case bErr != nil:
			return true
		}
		return version.Compare(a, b) < 0
	})
}

// Download fetches every file of build b into dir. Files that already
// exist are skipped without checking their contents. It returns the paths
// that were written.
func (r Repo) Download(ctx context.Context, b Build, dir string) ([]string, error) {
	files, err := r.be.GetFiles(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("listing files of %s: %w", b, err)
	}
	arches := maps.Keys(files)
	sort.Strings(arches)
	var written []string
	for _, arch := range arches {
		for _, name := range files[arch] {
			if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
				return written, fmt.Errorf("refusing to write suspicious file name %q", name)
			}
			dest := filepath.Join(dir, name)
			if _, err := os.Stat(dest); err == nil {
				log.WithFields(log.Fields{
					"file": name,
					"arch": arch,
				}).Info("Already downloaded, skipping")
				continue
			} else if !errors.Is(err, os.ErrNotExist) {
				return written, err
			}
			if err := r.fetch(ctx, b, arch, name, dest); err != nil {
				return written, err
			}
			written = append(written, dest)
		}
	}
	return written, nil
}

func (r Repo) fetch(ctx context.Context, b Build, arch, name, dest string) error {
	rd, err := r.be.Open(ctx, b, arch, name)
	if err != nil {
		return fmt.Errorf("fetching %s/%s: %w", arch, name, err)
	}
	defer rd.Close()
	var n int64
	err = WriteFileAtomic(dest, func(w io.Writer) error {
		n, err = io.Copy(w, rd)
		return err
	})
	if err != nil {
		return err
	}
	fields := log.Fields{
		"file": name,
		"arch": arch,
		"size": humanize.Bytes(uint64(n)),
	}
	if strings.HasSuffix(name, ".deb") {
		if info, err := ReadDebInfo(dest); err != nil {
			log.WithFields(fields).Warnf("Could not read control data: %v", err)
		} else {
			fields["package"] = info.Package
			fields["version"] = info.Version.String()
			fields["architecture"] = info.Architecture.String()
		}
	}
	log.WithFields(fields).Info("Downloaded")
	return nil
}
