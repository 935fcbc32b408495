// Package jenkinstest runs an in-memory Jenkins for tests.
package jenkinstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/rhcephpkg/rhcephpkg/jenkins"
)

const (
	User    = "kdreyer"
	Token   = "5d41402abc4b2a76b9719d911017c592"
	Version = "2.89.4"
)

// A Triggered build is one buildWithParameters request.
type Triggered struct {
	Job    string
	Params url.Values
}

// Server answers like a Jenkins master. Queue items and builds are
// served from per-id sequences: each poll takes the next element and the
// last one repeats.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	NextQueue int
	triggered []Triggered
	queue     map[int][]jenkins.QueueItem
	builds    map[int][]jenkins.BuildInfo
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		NextQueue: 25,
		queue:     make(map[int][]jenkins.QueueItem),
		builds:    make(map[int][]jenkins.BuildInfo),
	}
	r := chi.NewRouter()
	r.Use(s.auth)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Jenkins", Version)
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/me/api/json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, jenkins.User{ID: User, FullName: "Ken Dreyer"})
	})
	r.Post("/job/{job}/buildWithParameters", s.buildWithParameters)
	r.Get("/queue/item/{id}/api/json", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(chi.URLParam(r, "id"))
		s.mu.Lock()
		item, ok := next(s.queue, id)
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, item)
	})
	r.Get("/job/{job}/{number}/api/json", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(chi.URLParam(r, "number"))
		s.mu.Lock()
		info, ok := next(s.builds, n)
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, info)
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != User || pass != Token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) buildWithParameters(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggered = append(s.triggered, Triggered{Job: chi.URLParam(r, "job"), Params: r.URL.Query()})
	w.Header().Set("Location", fmt.Sprintf("%s/queue/item/%d/", s.URL, s.NextQueue))
	w.WriteHeader(http.StatusCreated)
}

// Triggered returns every build request received so far.
func (s *Server) Triggered() []Triggered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Triggered(nil), s.triggered...)
}

// Client returns a jenkins.Client with valid credentials for s.
func (s *Server) Client() *jenkins.Client {
	return jenkins.New(s.URL, User, Token, s.Server.Client())
}

func (s *Server) AddQueueItem(id int, states ...jenkins.QueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[id] = append(s.queue[id], states...)
}

func (s *Server) AddBuild(number int, states ...jenkins.BuildInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[number] = append(s.builds[number], states...)
}

func next[T any](m map[int][]T, id int) (T, bool) {
	var zero T
	seq, ok := m[id]
	if !ok || len(seq) == 0 {
		return zero, false
	}
	if len(seq) > 1 {
		m[id] = seq[1:]
	}
	return seq[0], true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// PackageAction is the ParametersAction Jenkins attaches to a
// build-package run.
func PackageAction(pkg, branch string) jenkins.Action {
	return jenkins.Action{
		Class: "hudson.model.ParametersAction",
		Parameters: []jenkins.Parameter{
			{Name: "PKG_NAME", Value: pkg},
			{Name: "BRANCH", Value: branch},
		},
	}
}
