package rhcephpkg

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	bugRe         = regexp.MustCompile(`rhbz#(\d+)`)
	patchPrefixRe = regexp.MustCompile(`^\[PATCH[^\]]*\]\s*`)
)

// A Patch is one file in a quilt series, as exported by "gbp pq".
type Patch struct {
	FileName        string
	Subject         string
	LongDescription string
}

// BugRefs returns the de-duplicated bug ids referenced by this patch's
// subject and long description, in ascending order.
func (p Patch) BugRefs() []string {
	return FindBugRefs(p.Subject + "\n" + p.LongDescription)
}

// FindBugRefs returns the ids of every "rhbz#<n>" in text, sorted
// numerically with duplicates removed.
func FindBugRefs(text string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range bugRe.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseUint(ids[i], 10, 64)
		b, _ := strconv.ParseUint(ids[j], 10, 64)
		return a < b
	})
	return ids
}

// ParsePatch reads a git format-patch style file. Plain diffs without mail
// headers get the file name as their subject.
func ParsePatch(fileName string, r io.Reader) (Patch, error) {
	p := Patch{FileName: fileName}
	br := bufio.NewReader(r)
	// Skip the mbox "From <sha> <date>" separator line.
	if peek, _ := br.Peek(5); string(peek) == "From " {
		if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
			return p, fmt.Errorf("read %s: %w", fileName, err)
		}
	}
	msg, err := mail.ReadMessage(br)
	if err != nil {
		p.Subject = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		return p, nil
	}
	if msg.Header.Get("Subject") == "" {
		// DEP-3 headers: the first Description line is the subject.
		desc := msg.Header.Get("Description")
		if desc == "" {
			p.Subject = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
			return p, nil
		}
		p.Subject, p.LongDescription, _ = strings.Cut(desc, "\n")
		p.LongDescription = strings.TrimSpace(p.LongDescription)
		return p, nil
	}
	subject := msg.Header.Get("Subject")
	if decoded, err := new(mime.WordDecoder).DecodeHeader(subject); err == nil {
		subject = decoded
	}
	p.Subject = strings.TrimSpace(patchPrefixRe.ReplaceAllString(subject, ""))

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return p, fmt.Errorf("read %s: %w", fileName, err)
	}
	var desc []string
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimRight(line, "\r") == "---" {
			break
		}
		desc = append(desc, strings.TrimRight(line, "\r"))
	}
	p.LongDescription = strings.TrimSpace(strings.Join(desc, "\n"))
	return p, nil
}

// ReadPatchFile parses the patch at dir/name.
func ReadPatchFile(dir, name string) (Patch, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return Patch{}, err
	}
	defer f.Close()
	return ParsePatch(name, f)
}

// ReadSeries parses every patch listed in dir/series. A missing series
// file is an empty series.
func ReadSeries(dir string) ([]Patch, error) {
	b, err := os.ReadFile(filepath.Join(dir, "series"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	var series []Patch
	for _, line := range SeriesNames(b) {
		p, err := ReadPatchFile(dir, line)
		if err != nil {
			return nil, fmt.Errorf("series entry %s: %w", line, err)
		}
		series = append(series, p)
	}
	return series, nil
}

// SeriesNames returns the patch file names in a quilt series file,
// skipping comments and per-patch options.
func SeriesNames(series []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(series))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, strings.Fields(line)[0])
	}
	return names
}

// An Action says how a patch changed between two states of a series.
type Action string

const (
	Added    Action = "Added"
	Modified Action = "Modified"
	Deleted  Action = "Deleted"
	Renamed  Action = "Renamed"
)

// ActionForStatus maps a git name-status code onto an Action. Unknown
// codes are passed through verbatim.
func ActionForStatus(code string) Action {
	switch {
	case code == "M":
		return Modified
	case code == "D":
		return Deleted
	case strings.HasPrefix(code, "R"):
		return Renamed
	}
	return Action(code)
}

type Change struct {
	Patch  Patch
	Action Action
}

// ChangelogLine describes c for debian/changelog, eg.
// "add foobar script (rhbz#123)" or "Modified 0001-foo.patch (rhbz#123)".
// Bugs the line already mentions are not repeated.
func (c Change) ChangelogLine() string {
	line := c.Patch.Subject
	if c.Action != Added {
		line = fmt.Sprintf("%s %s", c.Action, c.Patch.FileName)
	}
	inLine := make(map[string]bool)
	for _, id := range FindBugRefs(line) {
		inLine[id] = true
	}
	var refs []string
	for _, id := range c.Patch.BugRefs() {
		if !inLine[id] {
			refs = append(refs, "rhbz#"+id)
		}
	}
	if len(refs) == 0 {
		return line
	}
	return fmt.Sprintf("%s (%s)", line, strings.Join(refs, " "))
}

type Delta []Change

// ChangelogLines renders every change except renames, which carry no
// content change.
func (d Delta) ChangelogLines() []string {
	var lines []string
	for _, c := range d {
		if c.Action == Renamed {
			continue
		}
		lines = append(lines, c.ChangelogLine())
	}
	return lines
}

// A FileStatus is one "git diff --name-status" record for a patch file,
// with FileName relative to the patches directory.
type FileStatus struct {
	FileName string
	Code     string
}

// A PatchSource loads patch files by name: Current from the working copy,
// Previous from the last committed version.
type PatchSource interface {
	Current(fileName string) (Patch, error)
	Previous(fileName string) (Patch, error)
}

// DiffSeries classifies what changed between two states of a series.
// Patches in newSeries whose subject already appears in oldSeries are
// unchanged. When nothing was added, statuses describes patch files that
// were edited in place; deleted patches are read back from source so
// their bug references survive. ErrNoChanges is returned when there is
// nothing to report.
func DiffSeries(oldSeries, newSeries []Patch, statuses []FileStatus, source PatchSource) (Delta, error) {
	oldSubjects := make(map[string]struct{}, len(oldSeries))
	for _, p := range oldSeries {
		oldSubjects[p.Subject] = struct{}{}
	}
	var delta Delta
	for _, p := range newSeries {
		if _, ok := oldSubjects[p.Subject]; ok {
			continue
		}
		delta = append(delta, Change{Patch: p, Action: Added})
	}
	if len(delta) > 0 {
		return delta, nil
	}

	byName := make(map[string]Patch, len(newSeries))
	for _, p := range newSeries {
		byName[p.FileName] = p
	}
	for _, st := range statuses {
		if st.FileName == "series" {
			continue
		}
		action := ActionForStatus(st.Code)
		p := Patch{FileName: st.FileName}
		var err error
		switch action {
		case Renamed:
		case Deleted:
			p, err = source.Previous(st.FileName)
		default:
			if known, ok := byName[st.FileName]; ok {
				p = known
			} else {
				p, err = source.Current(st.FileName)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s patch %s: %w", action, st.FileName, err)
		}
		p.FileName = st.FileName
		delta = append(delta, Change{Patch: p, Action: action})
	}
	if len(delta) == 0 {
		return nil, ErrNoChanges
	}
	return delta, nil
}

// EnsureAllHaveBugRefs fails with a *MissingBugReferenceError naming
// every change that does not mention a bug.
func EnsureAllHaveBugRefs(changes []string) error {
	var missing []string
	for _, c := range changes {
		if !bugRe.MatchString(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &MissingBugReferenceError{Changes: missing}
	}
	return nil
}
