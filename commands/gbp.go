package commands

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// gbpConfig is a debian/gbp.conf. Options in a command section such as
// [import-orig] override those in [DEFAULT].
type gbpConfig struct {
	file *ini.File
}

func loadGbpConfig(path string) (*gbpConfig, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &gbpConfig{file: f}, nil
}

func (g *gbpConfig) get(command, key string) string {
	for _, name := range []string{command, ini.DefaultSection} {
		s, err := g.file.GetSection(name)
		if err != nil || !s.HasKey(key) {
			continue
		}
		return strings.TrimSpace(s.Key(key).String())
	}
	return ""
}

// checkImportOrig verifies the settings new-version relies on: imports go
// through pristine-tar, replace the previous upstream tree, and land on an
// upstream branch owned by debianBranch.
func (g *gbpConfig) checkImportOrig(debianBranch string) error {
	if v := g.get("import-orig", "pristine-tar"); !strings.EqualFold(v, "true") {
		return fmt.Errorf(`"pristine-tar" is %q. Set to "True" in debian/gbp.conf.`, v)
	}
	if v := g.get("import-orig", "merge-mode"); v != "replace" {
		return fmt.Errorf(`"merge-mode" is %q. Set to "replace" in debian/gbp.conf.`, v)
	}
	if b := g.get("import-orig", "debian-branch"); b != "" {
		debianBranch = b
	}
	want := "upstream/" + debianBranch
	if v := g.get("import-orig", "upstream-branch"); v != want {
		return fmt.Errorf(`"upstream-branch" is %q. Set to %q in debian/gbp.conf.`, v, want)
	}
	return nil
}

// tagToVersion reverses gbp's "upstream/%(version)s" tag mangling.
func tagToVersion(tag string) (string, error) {
	v, ok := strings.CutPrefix(tag, "upstream/")
	if !ok || v == "" {
		return "", fmt.Errorf("%q is not an upstream tag", tag)
	}
	return strings.NewReplacer("_", "~", "%", ":").Replace(v), nil
}
