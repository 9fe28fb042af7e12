package github

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/go-github/v68/github"
)

// IssueComment is a comment on an issue or pull request.
type IssueComment struct {
	CommentID   int64
	IssueNumber int
	Body        string
	Author      string
	URL         string
	CreatedAt   time.Time
}

// RepoInfo is the repository metadata the release grammar needs.
type RepoInfo struct {
	FullName      string
	DefaultBranch string
	SSHURL        string
	CloneURL      string
}

// GetIssueComment fetches a single issue comment.
func (c *Client) GetIssueComment(ctx context.Context, owner, repo string, commentID int64) (*IssueComment, error) {
	var comment *github.IssueComment
	err := c.retry.do(ctx, func() error {
		var err error
		comment, _, err = c.gh.Issues.GetComment(ctx, owner, repo, commentID)
		return fromGitHubError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment %d: %w", commentID, err)
	}
	return convertFromGitHubIssueComment(comment), nil
}

func convertFromGitHubIssueComment(comment *github.IssueComment) *IssueComment {
	author := ""
	if user := comment.GetUser(); user != nil {
		author = user.GetLogin()
	}
	// issue_url ends with /issues/{number}
	number, _ := strconv.Atoi(path.Base(comment.GetIssueURL()))
	return &IssueComment{
		CommentID:   comment.GetID(),
		IssueNumber: number,
		Body:        comment.GetBody(),
		Author:      author,
		URL:         comment.GetHTMLURL(),
		CreatedAt:   comment.GetCreatedAt().Time,
	}
}

// CreateIssueComment posts a comment and returns its id. It is not retried.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, issueNumber int, body string) (int64, error) {
	comment, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, issueNumber, &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return 0, fmt.Errorf("failed to post comment to %s/%s#%d: %w", owner, repo, issueNumber, fromGitHubError(err))
	}
	return comment.GetID(), nil
}

// CreateCommentReaction adds a reaction to an issue comment and returns the
// HTTP status of the response. A non-2xx response is reported through the
// status only; err is set when no response was received at all.
func (c *Client) CreateCommentReaction(ctx context.Context, owner, repo string, commentID int64, content string) (int, error) {
	_, resp, err := c.gh.Reactions.CreateIssueCommentReaction(ctx, owner, repo, commentID, content)
	if resp != nil && resp.Response != nil {
		return resp.StatusCode, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to react to comment %d: %w", commentID, err)
	}
	return 0, fmt.Errorf("failed to react to comment %d: empty response", commentID)
}

// ListReleaseTags returns the tag names of all releases, newest first as
// GitHub orders them.
func (c *Client) ListReleaseTags(ctx context.Context, owner, repo string) ([]string, error) {
	opts := &github.ListOptions{PerPage: 100}
	var tags []string
	for {
		var (
			releases []*github.RepositoryRelease
			resp     *github.Response
		)
		err := c.retry.do(ctx, func() error {
			var err error
			releases, resp, err = c.gh.Repositories.ListReleases(ctx, owner, repo, opts)
			return fromGitHubError(err)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list releases of %s/%s: %w", owner, repo, err)
		}
		for _, r := range releases {
			tags = append(tags, r.GetTagName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return tags, nil
}

// GetRepository fetches repository metadata.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	var r *github.Repository
	err := c.retry.do(ctx, func() error {
		var err error
		r, _, err = c.gh.Repositories.Get(ctx, owner, repo)
		return fromGitHubError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, repo, err)
	}
	return &RepoInfo{
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		SSHURL:        r.GetSSHURL(),
		CloneURL:      r.GetCloneURL(),
	}, nil
}
