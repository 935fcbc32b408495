// Package chacra reads build artifacts from a chacra binary repository.
package chacra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/rhcephpkg/rhcephpkg"
)

var ErrNotFound = errors.New("not found in chacra")

// A Client is a rhcephpkg.Backend for a chacra server.
type Client struct {
	URL  string
	HTTP *http.Client
}

var _ rhcephpkg.Backend = (*Client)(nil)

func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{URL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// BuildURL is the listing of every arch of a build. Chacra stores all
// Ubuntu distros under "ubuntu/all".
func (c *Client) BuildURL(b rhcephpkg.Build) string {
	return fmt.Sprintf("%s/binaries/%s/%s/ubuntu/all", c.URL, url.PathEscape(b.Package), url.PathEscape(b.Version))
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", u, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	resp, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}

func (c *Client) GetVersions(ctx context.Context, pkg string) ([]string, error) {
	var payload map[string]json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("%s/binaries/%s", c.URL, url.PathEscape(pkg)), &payload); err != nil {
		return nil, err
	}
	return maps.Keys(payload), nil
}

func (c *Client) GetFiles(ctx context.Context, b rhcephpkg.Build) (map[string][]string, error) {
	u := c.BuildURL(b)
	log.Infof("searching %s for builds", u)
	files := make(map[string][]string)
	if err := c.getJSON(ctx, u, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) Open(ctx context.Context, b rhcephpkg.Build, arch, name string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/%s/%s/", c.BuildURL(b), url.PathEscape(arch), url.PathEscape(name))
	log.Infof("downloading %s", name)
	resp, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
