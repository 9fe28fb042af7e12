// Package github is the thin GitHub API layer used by the question chain:
// comment lookup and replies, reactions, releases and repository metadata.
package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

// Client wraps go-github with talkd's error types and retry policy.
type Client struct {
	gh    *github.Client
	retry *RetryConfig
}

type clientOptions struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	retry      *RetryConfig
}

// Option configures NewClient.
type Option func(*clientOptions)

// WithBaseURL points the client at another API root (GitHub Enterprise,
// tests).
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithHTTPClient uses c as the underlying HTTP client. The token, if any,
// is layered on top of its transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRetry overrides the retry policy of idempotent requests.
func WithRetry(rc *RetryConfig) Option {
	return func(o *clientOptions) { o.retry = rc }
}

// NewClient creates a client. An empty token makes unauthenticated calls.
func NewClient(token string, opts ...Option) (*Client, error) {
	o := clientOptions{timeout: defaultTimeout, retry: DefaultRetryConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}
	if token != "" {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout: httpClient.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
				Base:   base,
			},
		}
	}

	gh := github.NewClient(httpClient)
	if o.baseURL != "" {
		baseURL := o.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid GitHub base URL %q", o.baseURL)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh, retry: o.retry}, nil
}

// GitHubClient exposes the underlying go-github client.
func (c *Client) GitHubClient() *github.Client {
	return c.gh
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.gh.BaseURL.String()
}

// NewTestClient returns a client for an httptest server without retries.
func NewTestClient(serverURL string) *Client {
	c, err := NewClient("", WithBaseURL(serverURL), WithRetry(&RetryConfig{MaxAttempts: 1}))
	if err != nil {
		panic(err)
	}
	return c
}
