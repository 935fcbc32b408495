// Package config reads the operator's ~/.rhcephpkg.conf and the
// environment variables that override it.
package config

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

const (
	MainSection     = "rhcephpkg"
	JenkinsSection  = "rhcephpkg.jenkins"
	ChacraSection   = "rhcephpkg.chacra"
	BugzillaSection = "rhcephpkg.bugzilla"

	DefaultBugzillaURL = "https://bugzilla.redhat.com"
)

// Env holds the environment overrides.
type Env struct {
	Home       string `env:"HOME"`
	ConfigPath string `env:"RHCEPHPKG_CONFIG"`
	CABundle   string `env:"RHCEPHPKG_CA_BUNDLE"`
	FullName   string `env:"DEBFULLNAME"`
	Email      string `env:"DEBEMAIL"`
}

// A Config is a parsed configuration file. Missing keys are only
// reported, as an *Error, when something asks for them.
type Config struct {
	Path string
	Env  Env
	file *ini.File
}

// An Error is a required configuration key that is not set.
type Error struct {
	Path    string
	Section string
	Key     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Problem parsing %s: no option %q in section [%s]", e.Path, e.Key, e.Section)
}

// Load reads the environment and then the configuration file it points
// at, ~/.rhcephpkg.conf by default. A missing file is an empty config.
func Load(ctx context.Context) (*Config, error) {
	var env Env
	if err := envconfig.Process(ctx, &env); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	path := env.ConfigPath
	if path == "" {
		path = filepath.Join(env.Home, ".rhcephpkg.conf")
	}
	return LoadFile(path, env)
}

func LoadFile(path string, env Env) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{Loose: true}, path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	log.Debugf("loaded config from %s", path)
	return &Config{Path: path, Env: env, file: f}, nil
}

// Lookup returns a value and whether it is set.
func (c *Config) Lookup(section, key string) (string, bool) {
	s, err := c.file.GetSection(section)
	if err != nil || !s.HasKey(key) {
		return "", false
	}
	return strings.TrimSpace(s.Key(key).String()), true
}

// Get returns a required value.
func (c *Config) Get(section, key string) (string, error) {
	v, ok := c.Lookup(section, key)
	if !ok || v == "" {
		return "", &Error{Path: c.Path, Section: section, Key: key}
	}
	return v, nil
}

func (c *Config) User() (string, error) {
	return c.Get(MainSection, "user")
}

// GitURL expands gitbaseurl for module.
func (c *Config) GitURL(module string) (string, error) {
	user, err := c.User()
	if err != nil {
		return "", err
	}
	base, err := c.Get(MainSection, "gitbaseurl")
	if err != nil {
		return "", err
	}
	return ExpandURL(base, user, module), nil
}

// PatchesURL expands patchesbaseurl for module. It reports false when no
// patches base URL is configured.
func (c *Config) PatchesURL(module string) (string, bool, error) {
	base, ok := c.Lookup(MainSection, "patchesbaseurl")
	if !ok || base == "" {
		return "", false, nil
	}
	user, err := c.User()
	if err != nil {
		return "", false, err
	}
	return ExpandURL(base, user, module), true, nil
}

// ExpandURL fills the %(user)s and %(module)s placeholders of a base URL.
func ExpandURL(template, user, module string) string {
	return strings.NewReplacer("%(user)s", user, "%(module)s", module).Replace(template)
}

type JenkinsCredentials struct {
	URL   string
	User  string
	Token string
}

func (c *Config) Jenkins() (JenkinsCredentials, error) {
	var (
		creds JenkinsCredentials
		err   error
	)
	if creds.User, err = c.User(); err != nil {
		return creds, err
	}
	if creds.Token, err = c.Get(JenkinsSection, "token"); err != nil {
		return creds, err
	}
	if creds.URL, err = c.Get(JenkinsSection, "url"); err != nil {
		return creds, err
	}
	return creds, nil
}

func (c *Config) ChacraURL() (string, error) {
	return c.Get(ChacraSection, "url")
}

func (c *Config) BugzillaURL() string {
	if u, ok := c.Lookup(BugzillaSection, "url"); ok && u != "" {
		return u
	}
	return DefaultBugzillaURL
}

// BugzillaAPIKey returns "" when the operator has not configured one.
func (c *Config) BugzillaAPIKey() string {
	key, _ := c.Lookup(BugzillaSection, "apikey")
	return key
}

// CABundle is the PEM file used to verify TLS servers, if any.
// RHCEPHPKG_CA_BUNDLE takes precedence over the ca_bundle key.
func (c *Config) CABundle() string {
	if c.Env.CABundle != "" {
		return c.Env.CABundle
	}
	v, _ := c.Lookup(MainSection, "ca_bundle")
	return v
}

// Maintainer is the "Name <email>" changelog signature from DEBFULLNAME
// and DEBEMAIL, or "" if either is unset.
func (c *Config) Maintainer() string {
	if c.Env.FullName == "" || c.Env.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", c.Env.FullName, c.Env.Email)
}

// HTTPClient builds the client used for every collaborator API.
func (c *Config) HTTPClient() (*http.Client, error) {
	return NewHTTPClient(c.CABundle())
}

// NewHTTPClient returns a client that trusts the certificates in the PEM
// file caBundle in addition to the system roots. An empty caBundle means
// system roots only.
func NewHTTPClient(caBundle string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second
	// Bodies may be large .debs, so only the wait for headers is bounded.
	transport.ResponseHeaderTimeout = 60 * time.Second
	client := &http.Client{Transport: transport}
	if caBundle == "" {
		return client, nil
	}
	pem, err := os.ReadFile(caBundle)
	if err != nil {
		return nil, fmt.Errorf("reading CA bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caBundle)
	}
	transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	return client, nil
}
