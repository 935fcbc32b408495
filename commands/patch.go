package commands

import (
	"context"
	"fmt"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/rhcephpkg/rhcephpkg"
	"github.com/rhcephpkg/rhcephpkg/git"
)

// Patch exports the patch-queue branch into debian/patches, points
// debian/rules at the exported commit, records the new patches in
// debian/changelog and commits the result.
type Patch struct {
	Env *Env
	// NoBZ allows changes that do not reference a bug.
	NoBZ bool
}

func (p *Patch) Run(ctx context.Context) error {
	current, debian, err := p.Env.debianBranch(ctx)
	if err != nil {
		return err
	}
	patchQueue := rhcephpkg.PatchQueueBranch(current)
	if !rhcephpkg.IsPatchQueue(current) && !p.Env.Git.RefExists(ctx, "refs/heads/"+patchQueue) {
		return rhcephpkg.Preconditionf("%s is not a patch-queue branch", current)
	}
	sha, err := p.Env.Git.RevParse(ctx, patchQueue)
	if err != nil {
		return err
	}
	if current != debian {
		if err := p.Env.Git.Checkout(ctx, debian); err != nil {
			return err
		}
	}

	oldSeries, err := rhcephpkg.ReadSeries(p.Env.path(patchesDir))
	if err != nil {
		return err
	}
	if err := p.Env.Runner.Run(ctx, p.Env.cmd("gbp", "pq", "export")); err != nil {
		return err
	}
	if err := p.Env.Git.Add(ctx, "--all", patchesDir); err != nil {
		return err
	}
	status, err := p.Env.Git.StatusPorcelain(ctx, patchesDir)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		return rhcephpkg.ErrNoChanges
	}

	found, err := rhcephpkg.RewriteRulesCommit(p.Env.path(rulesPath), sha)
	if err != nil {
		return err
	}
	if !found {
		log.Warnf("no COMMIT line in %s", rulesPath)
	}

	newSeries, err := rhcephpkg.ReadSeries(p.Env.path(patchesDir))
	if err != nil {
		return err
	}
	records, err := p.Env.Git.DiffIndex(ctx, "HEAD", patchesDir)
	if err != nil {
		return err
	}
	delta, err := rhcephpkg.DiffSeries(oldSeries, newSeries, patchStatuses(records), &patchSource{env: p.Env, ctx: ctx})
	if err != nil {
		return err
	}
	changes := delta.ChangelogLines()
	if len(changes) == 0 {
		log.Warn("export only renamed patches, not bumping the changelog")
		return rhcephpkg.ErrNoChanges
	}
	if !p.NoBZ {
		if err := rhcephpkg.EnsureAllHaveBugRefs(changes); err != nil {
			return err
		}
	}

	maintainer, err := p.Env.Maintainer(ctx)
	if err != nil {
		return err
	}
	entry, err := rhcephpkg.BumpChangelog(p.Env.path(changelogPath), changes, maintainer, p.Env.Clock.Now())
	if err != nil {
		return err
	}
	message := fmt.Sprintf("debian: %s\n\nAdd patches from %s\n\n%s\n", entry.Version, patchQueue, entry.ChangesText())
	if err := p.Env.Git.Commit(ctx, message, changelogPath, patchesDir, rulesPath); err != nil {
		return err
	}
	return p.Env.Git.ShowLastCommitFiles(ctx)
}

// patchStatuses keeps the records for files inside debian/patches, named
// relative to it.
func patchStatuses(records []git.NameStatus) []rhcephpkg.FileStatus {
	var statuses []rhcephpkg.FileStatus
	for _, r := range records {
		name, ok := strings.CutPrefix(r.Path, patchesDir+"/")
		if !ok {
			continue
		}
		statuses = append(statuses, rhcephpkg.FileStatus{FileName: name, Code: r.Code})
	}
	return statuses
}

// patchSource reads patches from the working tree, or from HEAD for
// patches the export deleted.
type patchSource struct {
	env *Env
	ctx context.Context
}

func (s *patchSource) Current(fileName string) (rhcephpkg.Patch, error) {
	return rhcephpkg.ReadPatchFile(s.env.path(patchesDir), fileName)
}

func (s *patchSource) Previous(fileName string) (rhcephpkg.Patch, error) {
	text, err := s.env.Git.ShowFile(s.ctx, "HEAD", path.Join(patchesDir, fileName))
	if err != nil {
		return rhcephpkg.Patch{}, err
	}
	return rhcephpkg.ParsePatch(fileName, strings.NewReader(text))
}
