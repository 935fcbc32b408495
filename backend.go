package rhcephpkg

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// A Backend is a store of built packages to search and download from, eg.
// a chacra server or a local mirror of one.
type Backend interface {
	// GetVersions lists every version built for a package.
	GetVersions(ctx context.Context, pkg string) ([]string, error)
	// GetFiles maps each architecture of a build to its file names.
	GetFiles(ctx context.Context, b Build) (map[string][]string, error)
	Open(ctx context.Context, b Build, arch, name string) (io.ReadCloser, error)
}

type ReaderAtCloser interface {
	io.ReaderAt
	io.ReadCloser
}

// A Build is one version of a package, written "<package>_<version>",
// eg. "ceph_10.2.0-2redhat1trusty".
type Build struct {
	Package string
	Version string
}

func ParseBuild(s string) (Build, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Build{}, fmt.Errorf("%q is not a <package>_<version> build name", s)
	}
	return Build{Package: parts[0], Version: parts[1]}, nil
}

func (b Build) String() string {
	return b.Package + "_" + b.Version
}
