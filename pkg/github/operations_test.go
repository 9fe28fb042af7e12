package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTestClient(srv.URL)
}

func TestGetIssueComment(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/issues/comments/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": 42,
			"body": "@rultor release, tag is `+"`1.8`"+`",
			"user": {"login": "yegor256"},
			"issue_url": "https://api.github.com/repos/o/r/issues/7",
			"html_url": "https://github.com/o/r/issues/7#issuecomment-42",
			"created_at": "2024-01-02T03:04:05Z"
		}`)
	})

	got, err := client.GetIssueComment(context.Background(), "o", "r", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.CommentID)
	assert.Equal(t, 7, got.IssueNumber)
	assert.Equal(t, "yegor256", got.Author)
	assert.Equal(t, "@rultor release, tag is `1.8`", got.Body)
	assert.True(t, got.CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestGetIssueComment_NotFound(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	_, err := client.GetIssueComment(context.Background(), "o", "r", 1)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestCreateIssueComment(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/o/r/issues/7/comments", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"body":"hello"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 100, "body": "hello"}`)
	})

	id, err := client.CreateIssueComment(context.Background(), "o", "r", 7, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
}

func TestCreateIssueComment_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	client, err := NewClient("", WithBaseURL(srv.URL), WithRetry(&RetryConfig{
		MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
		RetryOn: []int{http.StatusBadGateway},
	}))
	require.NoError(t, err)

	_, err = client.CreateIssueComment(context.Background(), "o", "r", 7, "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateCommentReaction(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"created", http.StatusCreated},
		{"already there", http.StatusOK},
		{"rejected", http.StatusUnprocessableEntity},
		{"forbidden", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/repos/o/r/issues/comments/42/reactions", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"content":"heart"}`, string(body))
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"id": 1, "content": "heart"}`)
			})
			code, err := client.CreateCommentReaction(context.Background(), "o", "r", 42, "heart")
			require.NoError(t, err)
			assert.Equal(t, tt.status, code)
		})
	}
}

func TestCreateCommentReaction_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	code, err := NewTestClient(url).CreateCommentReaction(context.Background(), "o", "r", 42, "heart")
	require.Error(t, err)
	assert.Zero(t, code)
}

func TestListReleaseTags_Paginates(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/releases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"tag_name": "1.0"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/releases?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"tag_name": "1.7"}, {"tag_name": "1.6.1"}]`)
	}))
	defer srv.Close()
	srvURL = srv.URL

	tags, err := NewTestClient(srv.URL).ListReleaseTags(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.7", "1.6.1", "1.0"}, tags)
}

func TestGetRepository_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"full_name": "o/r",
			"default_branch": "trunk",
			"ssh_url": "git@github.com:o/r.git",
			"clone_url": "https://github.com/o/r.git"
		}`)
	}))
	defer srv.Close()
	client, err := NewClient("", WithBaseURL(srv.URL), WithRetry(&RetryConfig{
		MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond,
		RetryOn: []int{http.StatusBadGateway},
	}))
	require.NoError(t, err)

	info, err := client.GetRepository(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, &RepoInfo{
		FullName:      "o/r",
		DefaultBranch: "trunk",
		SSHURL:        "git@github.com:o/r.git",
		CloneURL:      "https://github.com/o/r.git",
	}, info)
}

func TestNewClient_SendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"full_name": "o/r"}`)
	}))
	defer srv.Close()

	client, err := NewClient("s3cret", WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = client.GetRepository(context.Background(), "o", "r")
	require.NoError(t, err)
}

func TestNewClient_BaseURL(t *testing.T) {
	client, err := NewClient("", WithBaseURL("https://ghe.example.com/api/v3"))
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3/", client.BaseURL())

	_, err = NewClient("", WithBaseURL("not a url"))
	assert.Error(t, err)
}
