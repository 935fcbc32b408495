package rhcephpkg

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// PackageName is the name of the dist-git package checked out in dir,
// which is simply the directory's name.
func PackageName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return filepath.Base(abs)
}

// Md exits the program when err is set. Only for use in main.
func Md(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func Unwrap[T any](val T, err error) T {
	Md(err)
	return val
}
