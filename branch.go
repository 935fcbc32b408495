package rhcephpkg

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	patchQueuePrefix = "patch-queue/"
	rhelPatchesToken = "rhel-patches"
	privatePrefix    = "private-"
)

var (
	distroRe  = regexp.MustCompile(`^[a-z]+$`)
	versionRe = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// A DebianBranch is a dist-git branch name split into its parts:
//
//	[private-<owner>-]<product>-<version>-<distro>[-<suffix>]
//
// eg. "ceph-3.0-ubuntu" or "ceph-2-ubuntu-hotfix-bz123".
type DebianBranch struct {
	Owner   string // set on "private-<owner>-" developer branches
	Product string
	Version string
	Distro  string
	Suffix  string
}

func (b DebianBranch) prefix() string {
	if b.Owner == "" {
		return ""
	}
	return privatePrefix + b.Owner + "-"
}

func (b DebianBranch) String() string {
	return joinBranch(b.prefix(), b.Product, b.Version, b.Distro, b.Suffix)
}

// RhelPatches returns the RHEL -patches branch for this release line.
func (b DebianBranch) RhelPatches() string {
	return joinBranch(b.prefix(), b.Product, b.Version, rhelPatchesToken, b.Suffix)
}

func joinBranch(prefix, product, version, middle, suffix string) string {
	name := fmt.Sprintf("%s%s-%s-%s", prefix, product, version, middle)
	if suffix != "" {
		name += "-" + suffix
	}
	return name
}

func (b DebianBranch) isRhelPatches() bool {
	return b.Distro+"-"+b.Suffix == rhelPatchesToken || strings.HasPrefix(b.Distro+"-"+b.Suffix, rhelPatchesToken+"-")
}

// splitOwner peels a "private-<owner>-" prefix off a branch name.
func splitOwner(name string) (owner, rest string) {
	if !strings.HasPrefix(name, privatePrefix) {
		return "", name
	}
	parts := strings.SplitN(strings.TrimPrefix(name, privatePrefix), "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", name
	}
	return parts[0], parts[1]
}

func ParseDebianBranch(name string) (DebianBranch, error) {
	owner, rest := splitOwner(name)
	parts := strings.SplitN(rest, "-", 4)
	if len(parts) < 3 {
		return DebianBranch{}, fmt.Errorf("could not parse debian branch %q", name)
	}
	b := DebianBranch{Owner: owner, Product: parts[0], Version: parts[1], Distro: parts[2]}
	if len(parts) == 4 {
		b.Suffix = parts[3]
	}
	if b.Product == "" || !versionRe.MatchString(b.Version) || !distroRe.MatchString(b.Distro) || b.isRhelPatches() {
		return DebianBranch{}, fmt.Errorf("could not parse debian branch %q", name)
	}
	return b, nil
}

// DebianToRhelPatches maps a debian branch onto its RHEL -patches branch,
// eg. "ceph-2-ubuntu-hotfix-bz123" -> "ceph-2-rhel-patches-hotfix-bz123".
func DebianToRhelPatches(debian string) (string, error) {
	b, err := ParseDebianBranch(debian)
	if err != nil {
		return "", err
	}
	return b.RhelPatches(), nil
}

// A RhelPatchesBranch is an rdopkg-style "-rhel-patches" branch name.
type RhelPatchesBranch struct {
	Owner   string
	Product string
	Version string
	Suffix  string
}

func (b RhelPatchesBranch) String() string {
	return DebianBranch{Owner: b.Owner, Product: b.Product, Version: b.Version, Suffix: b.Suffix}.RhelPatches()
}

func ParseRhelPatchesBranch(name string) (RhelPatchesBranch, error) {
	owner, rest := splitOwner(name)
	product, after, ok := strings.Cut(rest, "-")
	if !ok || product == "" {
		return RhelPatchesBranch{}, fmt.Errorf("could not parse -patches branch %q", name)
	}
	version, after, ok := strings.Cut(after, "-")
	if !ok || !versionRe.MatchString(version) {
		return RhelPatchesBranch{}, fmt.Errorf("could not parse -patches branch %q", name)
	}
	if after != rhelPatchesToken && !strings.HasPrefix(after, rhelPatchesToken+"-") {
		return RhelPatchesBranch{}, fmt.Errorf("%q is not a -rhel-patches branch", name)
	}
	suffix := strings.TrimPrefix(strings.TrimPrefix(after, rhelPatchesToken), "-")
	return RhelPatchesBranch{Owner: owner, Product: product, Version: version, Suffix: suffix}, nil
}

// RhelPatchesToDebian picks the debian branch among candidates that goes
// with a RHEL -patches branch. Any distro other than "ubuntu" wins; the
// last "ubuntu" branch is used only when nothing else matched.
func RhelPatchesToDebian(rhelPatches string, candidates []string) (string, bool) {
	want, err := ParseRhelPatchesBranch(rhelPatches)
	if err != nil {
		return "", false
	}
	ubuntu := ""
	for _, c := range candidates {
		b, err := ParseDebianBranch(c)
		if err != nil {
			continue
		}
		if b.Owner != want.Owner || b.Product != want.Product || b.Version != want.Version || b.Suffix != want.Suffix {
			continue
		}
		if b.Distro != "ubuntu" {
			return c, true
		}
		ubuntu = c
	}
	return ubuntu, ubuntu != ""
}

func IsPatchQueue(branch string) bool {
	return strings.HasPrefix(branch, patchQueuePrefix)
}

// PatchQueueBranch returns the patch-queue branch for the current branch.
func PatchQueueBranch(current string) string {
	if IsPatchQueue(current) {
		return current
	}
	return patchQueuePrefix + current
}

// DebianBranchFor returns the debian branch for the current branch.
func DebianBranchFor(current string) string {
	return strings.TrimPrefix(current, patchQueuePrefix)
}

// DefaultDistro picks the pbuilder distribution for a debian branch. A
// branch that names its distro (eg. "ceph-3.0-xenial") uses it; "ubuntu"
// branches map by product version.
func DefaultDistro(branch string) (string, error) {
	b, err := ParseDebianBranch(branch)
	if err != nil {
		return "", err
	}
	if b.Distro != "ubuntu" {
		return b.Distro, nil
	}
	major, _, _ := strings.Cut(b.Version, ".")
	switch {
	case b.Version == "1.3" || strings.HasPrefix(b.Version, "1.3."):
		return "trusty", nil
	case major == "2", major == "3":
		return "xenial", nil
	case major == "4":
		return "bionic", nil
	}
	return "", fmt.Errorf("unknown default distro for dist-git branch name %q, specify --dist", branch)
}

// ReleaseFlag returns the Bugzilla release flag for a debian branch, eg.
// "ceph-3.0" for ceph-3.0-ubuntu and "ceph-3.y" for ceph-3.1-ubuntu.
func ReleaseFlag(branch string) (string, error) {
	b, err := ParseDebianBranch(branch)
	if err != nil || b.Owner != "" || b.Suffix != "" {
		return "", fmt.Errorf("could not parse debian branch %q", branch)
	}
	if strings.HasSuffix(b.Version, ".0") {
		return b.Product + "-" + b.Version, nil
	}
	major, _, _ := strings.Cut(b.Version, ".")
	return fmt.Sprintf("%s-%s.y", b.Product, major), nil
}
