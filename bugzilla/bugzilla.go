// Package bugzilla queries bug flags over the Bugzilla REST API.
package bugzilla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var ErrNotLoggedIn = errors.New("Not logged into BZ")

type Client struct {
	URL    string
	APIKey string
	HTTP   *http.Client
}

func New(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{URL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, HTTP: hc}
}

type Flag struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type Bug struct {
	ID    int    `json:"id"`
	Flags []Flag `json:"flags"`
}

// Flag returns the flag called name, if the bug has one.
func (b Bug) Flag(name string) (Flag, bool) {
	for _, f := range b.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

type restError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Bugs fetches the flags of every bug in ids.
func (c *Client) Bugs(ctx context.Context, ids []string) ([]Bug, error) {
	if c.APIKey == "" {
		return nil, ErrNotLoggedIn
	}
	q := url.Values{}
	q.Set("id", strings.Join(ids, ","))
	q.Set("include_fields", "id,flags")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL+"/rest/bug?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-BUGZILLA-API-KEY", c.APIKey)
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying bugzilla: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNotLoggedIn
	}
	if resp.StatusCode != http.StatusOK {
		var rerr restError
		if json.NewDecoder(resp.Body).Decode(&rerr) == nil && rerr.Message != "" {
			return nil, fmt.Errorf("bugzilla: %s (code %d)", rerr.Message, rerr.Code)
		}
		return nil, fmt.Errorf("bugzilla: %s", resp.Status)
	}
	var payload struct {
		Bugs []Bug `json:"bugs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding bugzilla response: %w", err)
	}
	return payload.Bugs, nil
}
