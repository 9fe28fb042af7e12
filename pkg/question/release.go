package question

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/holon-run/talkd/pkg/github"
	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/request"
	"github.com/holon-run/talkd/pkg/version"
)

// ReleaseType is the request type produced by Release.
const ReleaseType = "release"

var (
	// "release", optionally addressed to someone first: "@rultor release".
	// The word must end in whitespace, a comma or the end of the comment,
	// so "release-notes" is not a command.
	releaseCommand = regexp.MustCompile(`(?is)^\s*(?:@[\w-]+[\s,:]*)?release(?:[\s,]|$)(.*)$`)
	releaseTitle   = regexp.MustCompile("(?i)\\btitle\\s+`([^`]*)`")
	// The tag comes right after the command word.
	releaseTag     = regexp.MustCompile("^[\\s,]*`([^`]*)`")
)

// Releases is the part of the GitHub API the release grammar needs.
type Releases interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.RepoInfo, error)
	ListReleaseTags(ctx context.Context, owner, repo string) ([]string, error)
	CreateIssueComment(ctx context.Context, owner, repo string, issue int, body string) (int64, error)
}

type release struct {
	api Releases
}

// Release understands
//
//	release
//	release `1.8`
//	release `1.8`, title `Version 1.8.0`
//
// The request always carries exactly two arguments: head, the repository's
// clone URL, and head_branch, its default branch. The tag and title travel
// as request variables. A tag that is malformed or not newer than the
// latest release is refused with a reply on the issue.
func Release(api Releases) Question {
	return &release{api: api}
}

func (r *release) Understand(ctx context.Context, comment Comment, _ *url.URL) (request.Request, error) {
	m := releaseCommand.FindStringSubmatch(comment.Body)
	if m == nil {
		return request.Empty, nil
	}
	// Arguments live on the command line; later lines are prose.
	rest, _, _ := strings.Cut(m[1], "\n")
	var title string
	if t := releaseTitle.FindStringSubmatch(rest); t != nil {
		title = strings.TrimSpace(t[1])
		rest = strings.Replace(rest, t[0], "", 1)
	}
	var tag string
	hasTag := false
	if t := releaseTag.FindStringSubmatch(rest); t != nil {
		tag, hasTag = strings.TrimSpace(t[1]), true
	}

	if hasTag {
		ok, err := r.acceptable(ctx, comment, tag)
		if err != nil || !ok {
			return request.Empty, err
		}
	}

	info, err := r.api.GetRepository(ctx, comment.Owner, comment.Repo)
	if err != nil {
		return request.Empty, err
	}
	head := info.SSHURL
	if head == "" {
		head = info.CloneURL
	}
	req := request.New(ReleaseType, map[string]string{
		"head":        head,
		"head_branch": info.DefaultBranch,
	})
	if hasTag {
		req = req.WithVar("tag", tag)
	}
	if title != "" {
		req = req.WithVar("title", title)
	}
	talklog.Debug("release requested", "comment", comment.ID, "request", req.String())
	return req, nil
}

// acceptable reports whether tag may be released, replying on the issue
// when it may not.
func (r *release) acceptable(ctx context.Context, comment Comment, tag string) (bool, error) {
	requested, err := version.Parse(tag)
	if err != nil {
		return false, r.reply(ctx, comment, fmt.Sprintf(
			"Release tag `%s` is not a valid version, I expect something like `1.7` or `2.0.1`.", tag,
		))
	}
	tags, err := r.api.ListReleaseTags(ctx, comment.Owner, comment.Repo)
	if err != nil {
		return false, err
	}
	latest := version.Latest(tags)
	if latest == nil || requested.Newer(latest) {
		return true, nil
	}
	talklog.Info("release refused", "comment", comment.ID, "tag", tag, "latest", latest.Original)
	return false, r.reply(ctx, comment, fmt.Sprintf(
		"There is already a release `%s`, can't release `%s`: the new tag must be newer.",
		latest.Original, tag,
	))
}

func (r *release) reply(ctx context.Context, comment Comment, msg string) error {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(comment.Body), "\n") {
		b.WriteString("> " + line + "\n")
	}
	b.WriteString("\n")
	if comment.Author != "" {
		b.WriteString("@" + comment.Author + " ")
	}
	b.WriteString(msg)
	if _, err := r.api.CreateIssueComment(ctx, comment.Owner, comment.Repo, comment.Issue, b.String()); err != nil {
		return fmt.Errorf("failed to reply to comment %d: %w", comment.ID, err)
	}
	return nil
}
