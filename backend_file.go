package rhcephpkg

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// A FileBackend reads builds from a local directory laid out like chacra:
// <root>/<package>/<version>/<arch>/<file>.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) FileBackend {
	return FileBackend{path}
}

func (fb FileBackend) GetVersions(ctx context.Context, pkg string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fb.path, pkg))
	if err != nil {
		return nil, fmt.Errorf("list builds of %s: %w", pkg, err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	return versions, nil
}

func (fb FileBackend) GetFiles(ctx context.Context, b Build) (map[string][]string, error) {
	root := filepath.Join(fb.path, b.Package, b.Version)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("build %s: %w", b, err)
	}
	files := make(map[string][]string)
	fs.WalkDir(os.DirFS(root), ".", func(dirpath string, dir fs.DirEntry, err error) error {
		if err != nil {
			log.WithFields(log.Fields{
				"path":  dirpath,
				"error": err,
			}).Warn("Error scanning for build files")
			return nil
		}
		if dir.IsDir() {
			return nil
		}
		arch, name := filepath.Split(dirpath)
		arch = filepath.Clean(arch)
		if arch == "." || filepath.Dir(arch) != "." {
			return nil
		}
		files[arch] = append(files[arch], name)
		return nil
	})
	for arch := range files {
		sort.Strings(files[arch])
	}
	log.Debugf("got files: %v", files)
	return files, nil
}

func (fb FileBackend) Open(ctx context.Context, b Build, arch, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(fb.path, b.Package, b.Version, arch, name))
}
