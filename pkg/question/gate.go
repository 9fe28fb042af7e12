package question

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/holon-run/talkd/pkg/request"
)

type ifContains struct {
	pattern string
	origin  Question
}

// IfContains consults q only when the comment body contains pattern,
// ignoring case. Otherwise q is never invoked.
func IfContains(pattern string, q Question) Question {
	return &ifContains{pattern: strings.ToLower(pattern), origin: q}
}

func (c *ifContains) Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error) {
	if !strings.Contains(strings.ToLower(comment.Body), c.pattern) {
		return request.Empty, nil
	}
	return c.origin.Understand(ctx, comment, home)
}

type ifMatches struct {
	re     *regexp.Regexp
	origin Question
}

// IfMatches consults q only when re matches the comment body.
func IfMatches(re *regexp.Regexp, q Question) Question {
	return &ifMatches{re: re, origin: q}
}

func (m *ifMatches) Understand(ctx context.Context, comment Comment, home *url.URL) (request.Request, error) {
	if !m.re.MatchString(comment.Body) {
		return request.Empty, nil
	}
	return m.origin.Understand(ctx, comment, home)
}
