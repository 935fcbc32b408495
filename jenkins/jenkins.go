// Package jenkins is a small client for the parts of the Jenkins JSON API
// used to trigger and follow build-package jobs.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

var ErrNotFound = errors.New("requested item could not be found")

// An AuthError is Jenkins refusing a request. Jenkins answers 401, 403 or
// 500 to bad credentials so the three cannot be told apart.
type AuthError struct {
	StatusCode int
	Status     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("error in request, possibly authentication failed [%d]: %s", e.StatusCode, e.Status)
}

type Client struct {
	URL   string
	User  string
	Token string
	HTTP  *http.Client
}

func New(baseURL, user, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{URL: strings.TrimRight(baseURL, "/"), User: user, Token: token, HTTP: hc}
}

// JobURL is the web page of a build.
func (c *Client) JobURL(job string, number int) string {
	return c.URL + "/" + path.Join("job", job, strconv.Itoa(number))
}

func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.User, c.Token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error in request: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError:
		resp.Body.Close()
		return nil, &AuthError{StatusCode: resp.StatusCode, Status: resp.Status}
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %s", method, rawURL, resp.Status)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

// BuildJob enqueues job with params and returns the queue item id.
func (c *Client) BuildJob(ctx context.Context, job string, params map[string]string, token string) (int, error) {
	q := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, params[k])
	}
	if token != "" {
		q.Set("token", token)
	}
	u := fmt.Sprintf("%s/job/%s/buildWithParameters?%s", c.URL, url.PathEscape(job), q.Encode())
	resp, err := c.do(ctx, http.MethodPost, u)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return QueueID(resp.Header.Get("Location"))
}

// QueueID reads the id from a queue item URL such as
// "https://jenkins.example.com/queue/item/25/".
func QueueID(location string) (int, error) {
	parts := strings.Split(strings.TrimRight(location, "/"), "/")
	if len(parts) < 3 || parts[len(parts)-3] != "queue" || parts[len(parts)-2] != "item" {
		return 0, fmt.Errorf("no queue item in Location %q", location)
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("no queue item in Location %q", location)
	}
	return id, nil
}

type Executable struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// A QueueItem is a job waiting for an executor. Executable is set once
// it has started.
type QueueItem struct {
	ID         int         `json:"id"`
	Why        string      `json:"why"`
	Cancelled  bool        `json:"cancelled"`
	Executable *Executable `json:"executable"`
}

func (c *Client) QueueItem(ctx context.Context, id int) (*QueueItem, error) {
	var item QueueItem
	if err := c.getJSON(ctx, fmt.Sprintf("%s/queue/item/%d/api/json", c.URL, id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

type Parameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type Action struct {
	Class      string      `json:"_class"`
	Parameters []Parameter `json:"parameters"`
}

type BuildInfo struct {
	Number   int    `json:"number"`
	URL      string `json:"url"`
	Building bool   `json:"building"`
	// Timestamp and Duration are in milliseconds.
	Timestamp int64    `json:"timestamp"`
	Duration  int64    `json:"duration"`
	Result    string   `json:"result"`
	Actions   []Action `json:"actions"`
}

// Parameter returns a string build parameter.
func (b *BuildInfo) Parameter(name string) (string, bool) {
	for _, a := range b.Actions {
		if a.Class != "hudson.model.ParametersAction" {
			continue
		}
		for _, p := range a.Parameters {
			if p.Name == name {
				s, ok := p.Value.(string)
				return s, ok
			}
		}
	}
	return "", false
}

func (b *BuildInfo) Started() time.Time {
	return time.UnixMilli(b.Timestamp)
}

func (b *BuildInfo) Ended() time.Time {
	return time.UnixMilli(b.Timestamp + b.Duration)
}

func (c *Client) BuildInfo(ctx context.Context, job string, number int) (*BuildInfo, error) {
	var info BuildInfo
	if err := c.getJSON(ctx, c.JobURL(job, number)+"/api/json", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// WhoAmI returns the account the client authenticates as.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	var u User
	if err := c.getJSON(ctx, c.URL+"/me/api/json", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Version returns the server version from the X-Jenkins header.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.URL+"/")
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	v := resp.Header.Get("X-Jenkins")
	if v == "" {
		return "", errors.New("no X-Jenkins header in response, is this a Jenkins server?")
	}
	return v, nil
}
