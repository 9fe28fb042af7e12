package question

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/holon-run/talkd/pkg/github"
)

// fakeGitHub serves the handful of endpoints the chain talks to.
type fakeGitHub struct {
	mu             sync.Mutex
	releases       []string
	reactionStatus int
	reactions      []string
	replies        []string
	releaseLists   int
}

func newFakeGitHub(t *testing.T, releases ...string) (*fakeGitHub, *github.Client) {
	t.Helper()
	f := &fakeGitHub{releases: releases, reactionStatus: http.StatusCreated}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, github.NewTestClient(srv.URL)
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/repos/o/r":
		fmt.Fprint(w, `{"full_name":"o/r","default_branch":"master","ssh_url":"git@github.com:o/r.git"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/repos/o/r/releases":
		f.releaseLists++
		out := make([]map[string]string, 0, len(f.releases))
		for _, tag := range f.releases {
			out = append(out, map[string]string{"tag_name": tag})
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/repos/o/r/issues/1/comments":
		var body struct {
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.replies = append(f.replies, body.Body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":%d}`, 100+len(f.replies))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/reactions"):
		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.reactions = append(f.reactions, body.Content)
		w.WriteHeader(f.reactionStatus)
		fmt.Fprint(w, `{"id":1}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}
}

func (f *fakeGitHub) Replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}

func (f *fakeGitHub) Reactions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reactions...)
}

func (f *fakeGitHub) ReleaseLists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releaseLists
}

func comment(body string) Comment {
	return Comment{ID: 42, Body: body, Author: "jeff", Owner: "o", Repo: "r", Issue: 1}
}
