package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rhcephpkg/rhcephpkg/bugzilla"
)

func newBugzilla(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/rest/bug", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-BUGZILLA-API-KEY") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"bugs": []bugzilla.Bug{
			{ID: 123, Flags: []bugzilla.Flag{{Name: "ceph-3.0", Status: "+"}}},
			{ID: 456, Flags: []bugzilla.Flag{{Name: "ceph-2.y", Status: "?"}}},
		}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitbz(t *testing.T) {
	srv := newBugzilla(t)
	env := newTestEnv(t, confOpts{bugzillaURL: srv.URL})
	env.onBranch("ceph-3.0-ubuntu")
	env.rec.SetOutput("git log -1 --pretty=%B", "debian: 12.2.4-2redhat1\n\n  * fix things (rhbz#123)\n")

	require.NoError(t, (&Gitbz{Env: env.Env}).Run(context.Background()))
	require.Equal(t, "rhbz#123: ceph-3.0+\n", env.out.String())
}

func TestGitbzMissingFlag(t *testing.T) {
	srv := newBugzilla(t)
	env := newTestEnv(t, confOpts{bugzillaURL: srv.URL})
	env.onBranch("ceph-3.0-ubuntu")
	env.rec.SetOutput("git log -1 --pretty=%B", "fix things (rhbz#123 rhbz#456)\n")

	err := (&Gitbz{Env: env.Env}).Run(context.Background())
	var merr *MissingFlagError
	require.True(t, errors.As(err, &merr))
	require.Equal(t, []string{"456"}, merr.Bugs)
	require.Equal(t, "rhbz#123: ceph-3.0+\nMissing ceph-3.0 release flag:\nrhbz#456\n", env.out.String())
}

func TestGitbzNoBugs(t *testing.T) {
	env := newTestEnv(t, confOpts{})
	env.onBranch("ceph-3.1-ubuntu")
	env.rec.SetOutput("git log -1 --pretty=%B", "just a typo fix\n")
	require.EqualError(t, (&Gitbz{Env: env.Env}).Run(context.Background()), "no BZs found")
}
