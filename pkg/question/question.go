// Package question turns free-text issue comments into requests.
//
// A Question is either a leaf that understands one command grammar, or a
// decorator that wraps another Question to gate it or to add a side effect.
// Chains are built by explicit wrapping:
//
//	q := question.Reaction(client, question.FirstOf(
//		question.IfContains("release", question.Release(client)),
//	))
package question

import (
	"context"
	"net/url"

	"github.com/holon-run/talkd/pkg/github"
	"github.com/holon-run/talkd/pkg/request"
)

// Comment is an issue comment together with the coordinates of its issue.
type Comment struct {
	ID     int64
	Body   string
	Author string
	Owner  string
	Repo   string
	Issue  int
}

// FromGitHub builds a Comment from an API comment of owner/repo.
func FromGitHub(owner, repo string, c *github.IssueComment) Comment {
	return Comment{
		ID:     c.CommentID,
		Body:   c.Body,
		Author: c.Author,
		Owner:  owner,
		Repo:   repo,
		Issue:  c.IssueNumber,
	}
}

// Question understands a comment. Unrecognized input yields request.Empty
// and a nil error; errors are reserved for failed side effects.
type Question interface {
	Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error)
}

// Func adapts a function to the Question interface.
type Func func(ctx context.Context, comment Comment, home *url.URL) (request.Request, error)

// Understand calls f.
func (f Func) Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error) {
	return f(ctx, comment, home)
}

type firstOf []Question

// FirstOf consults questions in order and returns the first non-empty
// request, so at most one of them fires per comment.
func FirstOf(questions ...Question) Question {
	return firstOf(questions)
}

func (qs firstOf) Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error) {
	for _, q := range qs {
		req, err := q.Understand(ctx, comment, home)
		if err != nil {
			return request.Empty, err
		}
		if !req.IsEmpty() {
			return req, nil
		}
	}
	return request.Empty, nil
}

// GitHub is everything the deployed chain needs from the API.
type GitHub interface {
	Reactor
	Releases
}

// Chain is the chain talkd runs on every comment: acknowledge it, then
// let at most one command grammar fire.
func Chain(gh GitHub) Question {
	return Reaction(gh, FirstOf(
		IfContains("release", Release(gh)),
	))
}
