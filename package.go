package rhcephpkg

import (
	"fmt"
	"os"

	"pault.ag/go/debian/deb"
	"pault.ag/go/debian/dependency"
	"pault.ag/go/debian/version"
)

// DebInfo is the identifying control data of a binary package.
type DebInfo struct {
	Package      string
	Version      version.Version
	Architecture dependency.Arch
}

func DebInfoFromReader(r ReaderAtCloser, filePath string) (*DebInfo, error) {
	debFile, err := deb.Load(r, filePath)
	if err != nil {
		return nil, fmt.Errorf("read deb: %w", err)
	}
	return &DebInfo{
		Package:      debFile.Control.Package,
		Version:      debFile.Control.Version,
		Architecture: debFile.Control.Architecture,
	}, nil
}

// ReadDebInfo loads the control data of the .deb at path.
func ReadDebInfo(path string) (*DebInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DebInfoFromReader(f, path)
}
