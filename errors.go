package rhcephpkg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedVersion = errors.New("malformed package version")
	ErrChangelogParse   = errors.New("could not parse changelog")
	// ErrNoChanges is returned when a patch export left debian/patches
	// untouched. It is an expected outcome, not a failure.
	ErrNoChanges = errors.New("no new patches")
)

// A PreconditionError means the repository is in the wrong state for the
// requested operation. Nothing has been mutated when it is returned.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string {
	return e.Msg
}

func Preconditionf(format string, args ...any) error {
	return &PreconditionError{Msg: fmt.Sprintf(format, args...)}
}

// MissingBugReferenceError lists every changelog change that lacks a
// bug tracker reference.
type MissingBugReferenceError struct {
	Changes []string
}

func (e *MissingBugReferenceError) Error() string {
	return fmt.Sprintf("no rhbz# reference in: %s", strings.Join(quoteAll(e.Changes), ", "))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
