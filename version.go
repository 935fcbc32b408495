package rhcephpkg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pault.ag/go/debian/version"
)

var (
	releaseRe = regexp.MustCompile(`^(.+)redhat(\d+)$`)
	numberRe  = regexp.MustCompile(`^\d+$`)
)

// A PackageVersion is a Debian version of the form
// <upstream>-<release>redhat<n>, eg. "10.2.5-28.2.bz1464099redhat1".
type PackageVersion struct {
	Upstream string
	// Dot-separated tokens, eg. "0", "0.1" or "28.2.bz1464099".
	Release        string
	RedhatRevision int
}

func ParsePackageVersion(text string) (PackageVersion, error) {
	if strings.Count(text, "-") != 1 {
		return PackageVersion{}, fmt.Errorf("%w: %q needs exactly one \"-\"", ErrMalformedVersion, text)
	}
	if _, err := version.Parse(text); err != nil {
		return PackageVersion{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, text, err)
	}
	upstream, revision, _ := strings.Cut(text, "-")
	m := releaseRe.FindStringSubmatch(revision)
	if m == nil || upstream == "" {
		return PackageVersion{}, fmt.Errorf("%w: %q has no redhat<n> suffix", ErrMalformedVersion, text)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return PackageVersion{}, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, text, err)
	}
	return PackageVersion{Upstream: upstream, Release: m[1], RedhatRevision: n}, nil
}

func (v PackageVersion) String() string {
	return fmt.Sprintf("%s-%sredhat%d", v.Upstream, v.Release, v.RedhatRevision)
}

// Increment returns the next release of v. The rightmost token of
// Release that is an integer is bumped and every token after it is kept
// as-is. A Release with no integer token gets a ".1" token appended.
func (v PackageVersion) Increment() PackageVersion {
	tokens := strings.Split(v.Release, ".")
	last := -1
	for i, t := range tokens {
		if numberRe.MatchString(t) {
			last = i
		}
	}
	next := v
	if last < 0 {
		next.Release = v.Release + ".1"
		return next
	}
	n, _ := strconv.Atoi(tokens[last])
	bumped := append([]string{}, tokens...)
	bumped[last] = strconv.Itoa(n + 1)
	next.Release = strings.Join(bumped, ".")
	return next
}
