package rhcephpkg

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/google/renameio/v2"
)

var (
	commitRe = regexp.MustCompile(`(?m)^export COMMIT=([0-9a-f]{40})[ \t]*$`)
	sha1Re   = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// RewriteFile replaces the file at path with the output of fn. The new
// contents go to a pending temp file next to path that is renamed over it
// only when fn and the write both succeed; on any failure the original is
// left in place and the temp file is removed.
func RewriteFile(path string, fn func(old []byte) ([]byte, error)) error {
	old, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	updated, err := fn(old)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(updated)
		return err
	})
}

// WriteFileAtomic streams write's output into path through a pending temp
// file. Existing permissions are kept when path already exists.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions(), renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer pf.Cleanup()
	if err := write(pf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ReadCommit returns the sha1 from the "export COMMIT=" line of a
// debian/rules file.
func ReadCommit(rules string) (string, bool) {
	m := commitRe.FindStringSubmatch(rules)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ReplaceCommit points every "export COMMIT=" line at sha.
func ReplaceCommit(rules, sha string) (string, error) {
	if !sha1Re.MatchString(sha) {
		return "", fmt.Errorf("%q is not a full sha1", sha)
	}
	return commitRe.ReplaceAllString(rules, "export COMMIT="+sha), nil
}

// RewriteRulesCommit updates the COMMIT pointer in the rules file at path.
// It reports false when the file has no such line and was left alone.
func RewriteRulesCommit(path, sha string) (bool, error) {
	found := false
	err := RewriteFile(path, func(old []byte) ([]byte, error) {
		if _, found = ReadCommit(string(old)); !found {
			return old, nil
		}
		s, err := ReplaceCommit(string(old), sha)
		return []byte(s), err
	})
	return found, err
}
