package rhcephpkg

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"pault.ag/go/debian/version"
)

// Bullets are wrapped so that no line is wider than this, counting the
// "  * " and "    " indents.
const changelogWidth = 78

const changelogDate = time.RFC1123Z

const continuationIndent = "    "

var (
	headerRe  = regexp.MustCompile(`^(\S+) \(([^()\s]+)\) ([^;]+);\s*(.*)$`)
	footerRe  = regexp.MustCompile(`^ -- (.+?)  (.+)$`)
	urgencyRe = regexp.MustCompile(`(?:^|,\s*)urgency=(\S+?)(?:,|$)`)
)

// A ChangelogEntry is the topmost entry of a debian/changelog file.
type ChangelogEntry struct {
	Package      string
	Version      string
	Distribution string
	Urgency      string
	Changes      []string
	Maintainer   string
	Date         string

	// Everything after "; " on the header line, eg. "urgency=medium".
	trailer string
	// The bullet block exactly as it appears in the file.
	changesText string

	// Byte offsets into the parsed text. The body runs from the end of
	// the header line up to the start of the footer line.
	headerStart, headerEnd int
	bodyStart, bodyEnd     int
	footerEnd              int
}

// PackageVersion parses the entry's version as a redhat release.
func (e *ChangelogEntry) PackageVersion() (PackageVersion, error) {
	return ParsePackageVersion(e.Version)
}

// ChangesText returns the bulleted block of this entry as it appears in
// the file, without surrounding blank lines.
func (e *ChangelogEntry) ChangesText() string {
	if e.changesText == "" && len(e.Changes) > 0 {
		return strings.TrimRight(FormatChanges(e.Changes), "\n")
	}
	return e.changesText
}

// CommitMessage is the standard Git commit message for this entry.
func (e *ChangelogEntry) CommitMessage() string {
	return fmt.Sprintf("debian: %s\n\n%s\n", e.Version, e.ChangesText())
}

func (e *ChangelogEntry) header() string {
	trailer := e.trailer
	if trailer == "" {
		urgency := e.Urgency
		if urgency == "" {
			urgency = "medium"
		}
		trailer = "urgency=" + urgency
	}
	return fmt.Sprintf("%s (%s) %s; %s", e.Package, e.Version, e.Distribution, trailer)
}

// ParseTopEntry parses the first entry of a changelog.
func ParseTopEntry(contents string) (*ChangelogEntry, error) {
	e := &ChangelogEntry{headerStart: -1, bodyEnd: -1}
	pos := 0
	for pos < len(contents) {
		end := strings.IndexByte(contents[pos:], '\n')
		next := len(contents)
		if end >= 0 {
			end += pos
			next = end + 1
		} else {
			end = len(contents)
		}
		line := contents[pos:end]
		if e.headerStart < 0 {
			if m := headerRe.FindStringSubmatch(line); m != nil {
				e.Package, e.Version, e.Distribution, e.trailer = m[1], m[2], strings.TrimSpace(m[3]), m[4]
				e.headerStart, e.headerEnd, e.bodyStart = pos, end, next
			}
		} else if m := footerRe.FindStringSubmatch(line); m != nil {
			e.Maintainer, e.Date = m[1], m[2]
			e.bodyEnd, e.footerEnd = pos, next
			break
		}
		pos = next
	}
	if e.headerStart < 0 {
		return nil, fmt.Errorf("%w: no entry header line found", ErrChangelogParse)
	}
	if e.bodyEnd < 0 {
		return nil, fmt.Errorf("%w: entry %s (%s) has no maintainer line", ErrChangelogParse, e.Package, e.Version)
	}
	if _, err := version.Parse(e.Version); err != nil {
		return nil, fmt.Errorf("%w: bad version %q: %v", ErrChangelogParse, e.Version, err)
	}
	e.Urgency = "medium"
	if m := urgencyRe.FindStringSubmatch(e.trailer); m != nil {
		e.Urgency = m[1]
	}
	e.changesText = strings.Trim(contents[e.bodyStart:e.bodyEnd], "\n")
	e.Changes = ExtractChanges(e.changesText)
	return e, nil
}

// FormatChanges renders changes as a bulleted changelog block, one
// trailing newline per line.
func FormatChanges(changes []string) string {
	var b strings.Builder
	for _, change := range changes {
		line := "  *"
		width := len(line)
		first := true
		for _, word := range strings.Fields(change) {
			wl := utf8.RuneCountInString(word)
			if !first && width+1+wl > changelogWidth {
				b.WriteString(line)
				b.WriteByte('\n')
				line, width = continuationIndent+word, len(continuationIndent)+wl
				continue
			}
			line += " " + word
			width += 1 + wl
			first = false
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// ExtractChanges un-wraps a bulleted block into one string per bullet.
// Only a "* " indented by less than a continuation line starts a bullet,
// so a wrapped line that begins with a "*" word stays in its bullet.
func ExtractChanges(text string) []string {
	var changes []string
	change := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		indent := len(raw) - len(strings.TrimLeft(raw, " \t"))
		if strings.HasPrefix(line, "* ") && indent < len(continuationIndent) {
			if change != "" {
				changes = append(changes, change)
			}
			change = strings.TrimSpace(line[2:])
			continue
		}
		if change == "" {
			change = line
		} else {
			change += " " + line
		}
	}
	if change != "" {
		changes = append(changes, change)
	}
	return changes
}

// PrependEntry returns contents with a new top entry written before it.
func PrependEntry(contents string, e ChangelogEntry) string {
	var b strings.Builder
	b.WriteString(e.header())
	b.WriteString("\n\n")
	b.WriteString(FormatChanges(e.Changes))
	fmt.Fprintf(&b, "\n -- %s  %s\n\n", e.Maintainer, e.Date)
	b.WriteString(contents)
	return b.String()
}

// ReplaceChanges swaps the bullet block of the top entry, leaving every
// other byte alone.
func ReplaceChanges(contents string, changes []string) (string, error) {
	e, err := ParseTopEntry(contents)
	if err != nil {
		return "", err
	}
	return contents[:e.bodyStart] + "\n" + FormatChanges(changes) + "\n" + contents[e.bodyEnd:], nil
}

// ReplaceTopDistributionAndVersion rewrites the header line of the top entry.
func ReplaceTopDistributionAndVersion(contents, distribution, version string) (string, error) {
	e, err := ParseTopEntry(contents)
	if err != nil {
		return "", err
	}
	e.Distribution, e.Version = distribution, version
	return contents[:e.headerStart] + e.header() + contents[e.headerEnd:], nil
}

func FormatDate(t time.Time) string {
	return t.Format(changelogDate)
}

// ReadTopEntry parses the top entry of the changelog file at path.
func ReadTopEntry(path string) (*ChangelogEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}
	e, err := ParseTopEntry(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// AddChangelogEntry prepends e to the changelog file at path.
func AddChangelogEntry(path string, e ChangelogEntry) error {
	return RewriteFile(path, func(old []byte) ([]byte, error) {
		return []byte(PrependEntry(string(old), e)), nil
	})
}

// BumpChangelog prepends an entry with the next release version and the
// previous entry's distribution. It returns the new entry.
func BumpChangelog(path string, changes []string, maintainer string, when time.Time) (*ChangelogEntry, error) {
	var entry ChangelogEntry
	err := RewriteFile(path, func(old []byte) ([]byte, error) {
		top, err := ParseTopEntry(string(old))
		if err != nil {
			return nil, err
		}
		v, err := top.PackageVersion()
		if err != nil {
			return nil, err
		}
		entry = ChangelogEntry{
			Package:      top.Package,
			Version:      v.Increment().String(),
			Distribution: top.Distribution,
			Urgency:      top.Urgency,
			Changes:      changes,
			Maintainer:   maintainer,
			Date:         FormatDate(when),
		}
		return []byte(PrependEntry(string(old), entry)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("bump %s: %w", path, err)
	}
	return &entry, nil
}

// ReplaceChangesFile rewrites the bullet block of the top entry in place.
func ReplaceChangesFile(path string, changes []string) error {
	return RewriteFile(path, func(old []byte) ([]byte, error) {
		s, err := ReplaceChanges(string(old), changes)
		return []byte(s), err
	})
}
