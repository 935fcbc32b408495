package commands

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
)

// NewVersion imports a new upstream release and starts a changelog entry
// for it.
type NewVersion struct {
	Env *Env
	// Tarball to import. Empty means ask uscan for the latest release.
	Tarball string
	// Bugs are appended to the changelog text, eg. "rhbz#123".
	Bugs string
}

func (n *NewVersion) Run(ctx context.Context) error {
	current, debian, err := n.Env.debianBranch(ctx)
	if err != nil {
		return err
	}
	if current != debian {
		log.Errorf("current branch is %q", current)
		log.Errorf("debian branch is %q", debian)
		return rhcephpkg.Preconditionf("Must run `new-version` on debian branch")
	}
	gbp, err := loadGbpConfig(n.Env.path(gbpConfPath))
	if err != nil {
		return err
	}
	if err := gbp.checkImportOrig(debian); err != nil {
		return rhcephpkg.Preconditionf("%v", err)
	}
	top, err := rhcephpkg.ReadTopEntry(n.Env.path(changelogPath))
	if err != nil {
		return err
	}
	maintainer, err := n.Env.Maintainer(ctx)
	if err != nil {
		return err
	}

	if err := setupPristineTar(ctx, n.Env.Git); err != nil {
		return err
	}
	if err := n.Env.Git.EnsureLocalBranch(ctx, gbp.get("import-orig", "upstream-branch")); err != nil {
		return err
	}
	importCmd := n.Env.cmd("gbp", "import-orig", "--no-interactive")
	if n.Tarball == "" {
		importCmd.Args = append(importCmd.Args, "--uscan")
	} else {
		importCmd.Args = append(importCmd.Args, n.Tarball)
	}
	log.Info(importCmd.String())
	if err := n.Env.Runner.Run(ctx, importCmd); err != nil {
		return err
	}

	tag, err := n.Env.Git.Describe(ctx, "upstream/*")
	if err != nil {
		return err
	}
	upstream, err := tagToVersion(tag)
	if err != nil {
		return err
	}
	text := "Imported Upstream version " + upstream
	if n.Bugs != "" {
		text = fmt.Sprintf("%s (%s)", text, n.Bugs)
	}
	entry := rhcephpkg.ChangelogEntry{
		Package:      top.Package,
		Version:      upstream + "-2redhat1",
		Distribution: top.Distribution,
		Urgency:      top.Urgency,
		Changes:      []string{text},
		Maintainer:   maintainer,
		Date:         rhcephpkg.FormatDate(n.Env.Clock.Now()),
	}
	if err := rhcephpkg.AddChangelogEntry(n.Env.path(changelogPath), entry); err != nil {
		return err
	}
	if err := n.Env.Git.Commit(ctx, entry.CommitMessage(), changelogPath); err != nil {
		return err
	}
	return n.Env.Git.Show(ctx)
}
