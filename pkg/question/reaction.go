package question

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/request"
)

// Emoji is the reaction posted to acknowledge a comment.
const Emoji = "heart"

// Reactor adds reactions to issue comments. It reports the HTTP status of
// the response and fails only when no response was received.
type Reactor interface {
	CreateCommentReaction(ctx context.Context, owner, repo string, commentID int64, content string) (int, error)
}

type reaction struct {
	reactor Reactor
	origin  Question
}

// Reaction marks the comment with an emoji so its author sees it was read,
// then delegates to q. A non-2xx answer is ignored; a transport failure is
// returned and q is not consulted.
func Reaction(reactor Reactor, q Question) Question {
	return &reaction{reactor: reactor, origin: q}
}

func (r *reaction) Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error) {
	code, err := r.reactor.CreateCommentReaction(ctx, comment.Owner, comment.Repo, comment.ID, Emoji)
	if err != nil {
		return request.Empty, fmt.Errorf("failed to acknowledge comment %d: %w", comment.ID, err)
	}
	if code == http.StatusCreated {
		talklog.Info("emoji added to comment",
			"emoji", Emoji,
			"comment", comment.ID,
			"repo", comment.Owner+"/"+comment.Repo,
		)
	}
	return r.origin.Understand(ctx, comment, home)
}
