package rhcephpkg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const mboxPatch = `From 0a1b2c3d4e5f60718293a4b5c6d7e8f901234567 Mon Sep 17 00:00:00 2001
From: Ken Dreyer <kdreyer@redhat.com>
Date: Tue, 6 Jun 2017 14:46:37 -0600
Subject: [PATCH] add foobar script

This script does foo and bar.

Resolves: rhbz#123
---
 foobar | 2 ++
 1 file changed, 2 insertions(+)
`

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch("0001-add-foobar-script.patch", strings.NewReader(mboxPatch))
	require.NoError(t, err)
	require.Equal(t, Patch{
		FileName:        "0001-add-foobar-script.patch",
		Subject:         "add foobar script",
		LongDescription: "This script does foo and bar.\n\nResolves: rhbz#123",
	}, p)
	require.Equal(t, []string{"123"}, p.BugRefs())
}

func TestParsePatchFoldedSubject(t *testing.T) {
	text := "From: Ken Dreyer <kdreyer@redhat.com>\n" +
		"Subject: [PATCH 2/3] rgw: fix multipart uploads with\n special characters\n\n---\n"
	p, err := ParsePatch("0002-rgw.patch", strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, "rgw: fix multipart uploads with special characters", p.Subject)
	require.Empty(t, p.LongDescription)
}

func TestParsePatchDEP3(t *testing.T) {
	text := "Description: fix the build with newer gcc (rhbz#5)\nAuthor: Ken Dreyer\n\n--- a/Makefile\n+++ b/Makefile\n"
	p, err := ParsePatch("gcc.patch", strings.NewReader(text))
	require.NoError(t, err)
	require.Equal(t, "fix the build with newer gcc (rhbz#5)", p.Subject)
	require.Equal(t, []string{"5"}, p.BugRefs())
}

func TestParsePatchPlainDiff(t *testing.T) {
	p, err := ParsePatch("0003-plain.patch", strings.NewReader("diff --git a/x b/x\n--- a/x\n+++ b/x\n"))
	require.NoError(t, err)
	require.Equal(t, "0003-plain", p.Subject)
}

func TestFindBugRefs(t *testing.T) {
	require.Equal(t, []string{"9", "10"}, FindBugRefs("rhbz#10 and rhbz#9, again rhbz#10"))
	require.Nil(t, FindBugRefs("bz#1 and RHBZ 2"))
}

func TestReadSeries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001-add-foobar-script.patch"), []byte(mboxPatch), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "series"), []byte("# exported\n0001-add-foobar-script.patch -p1\n\n"), 0o644))

	series, err := ReadSeries(dir)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, "add foobar script", series[0].Subject)

	empty, err := ReadSeries(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, empty)
}

type fakeSource map[string]Patch

func (f fakeSource) Current(name string) (Patch, error) {
	if p, ok := f["current/"+name]; ok {
		return p, nil
	}
	return Patch{}, os.ErrNotExist
}

func (f fakeSource) Previous(name string) (Patch, error) {
	if p, ok := f["previous/"+name]; ok {
		return p, nil
	}
	return Patch{}, os.ErrNotExist
}

func TestDiffSeriesAdded(t *testing.T) {
	newSeries := []Patch{{FileName: "0001-add-foobar-script.patch", Subject: "add foobar script"}}
	delta, err := DiffSeries(nil, newSeries, nil, nil)
	require.NoError(t, err)
	require.Equal(t, Delta{{Patch: newSeries[0], Action: Added}}, delta)
	require.Equal(t, []string{"add foobar script"}, delta.ChangelogLines())

	_, err = DiffSeries(newSeries, newSeries, nil, nil)
	require.True(t, errors.Is(err, ErrNoChanges))
}

func TestDiffSeriesInPlace(t *testing.T) {
	series := []Patch{
		{FileName: "0001-foo.patch", Subject: "foo", LongDescription: "rhbz#1"},
		{FileName: "0003-baz.patch", Subject: "baz"},
	}
	source := fakeSource{
		"previous/0002-bar.patch": {FileName: "0002-bar.patch", Subject: "bar (rhbz#2)"},
	}
	statuses := []FileStatus{
		{FileName: "0001-foo.patch", Code: "M"},
		{FileName: "0002-bar.patch", Code: "D"},
		{FileName: "0003-baz.patch", Code: "R100"},
		{FileName: "0004-qux.patch", Code: "T"},
		{FileName: "series", Code: "M"},
	}
	source["current/0004-qux.patch"] = Patch{FileName: "0004-qux.patch", Subject: "qux"}

	delta, err := DiffSeries(series, series, statuses, source)
	require.NoError(t, err)
	var actions []Action
	for _, c := range delta {
		actions = append(actions, c.Action)
	}
	require.Equal(t, []Action{Modified, Deleted, Renamed, Action("T")}, actions)
	want := []string{
		"Modified 0001-foo.patch (rhbz#1)",
		"Deleted 0002-bar.patch (rhbz#2)",
		"T 0004-qux.patch",
	}
	if diff := cmp.Diff(want, delta.ChangelogLines()); diff != "" {
		t.Errorf("changelog lines mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffSeriesDeletedUnreadable(t *testing.T) {
	_, err := DiffSeries(nil, nil, []FileStatus{{FileName: "0001-gone.patch", Code: "D"}}, fakeSource{})
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestChangelogLineSkipsMentionedBugs(t *testing.T) {
	for _, tc := range []struct {
		change Change
		want   string
	}{
		{
			Change{Action: Added, Patch: Patch{Subject: "fix foo (rhbz#1)", LongDescription: "Resolves: rhbz#1 rhbz#2"}},
			"fix foo (rhbz#1) (rhbz#2)",
		},
		{
			Change{Action: Added, Patch: Patch{Subject: "fix foo (rhbz#1)", LongDescription: "Resolves: rhbz#1"}},
			"fix foo (rhbz#1)",
		},
		{
			Change{Action: Added, Patch: Patch{Subject: "rgw: rhbz#12 regression", LongDescription: "rhbz#1"}},
			"rgw: rhbz#12 regression (rhbz#1)",
		},
		{
			Change{Action: Modified, Patch: Patch{FileName: "0001-foo.patch", Subject: "foo (rhbz#3)"}},
			"Modified 0001-foo.patch (rhbz#3)",
		},
	} {
		require.Equal(t, tc.want, tc.change.ChangelogLine())
	}
}

func TestEnsureAllHaveBugRefs(t *testing.T) {
	err := EnsureAllHaveBugRefs([]string{"add foobar script", "fix it (rhbz#1)"})
	var missing *MissingBugReferenceError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []string{"add foobar script"}, missing.Changes)

	require.NoError(t, EnsureAllHaveBugRefs([]string{"fix it (rhbz#1)"}))
	require.NoError(t, EnsureAllHaveBugRefs(nil))
}
