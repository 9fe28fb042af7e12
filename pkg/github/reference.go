package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Issue ref patterns:
	// - owner/repo#123
	// - owner/repo/issues/123
	// - owner/repo/pull/123
	// - https://github.com/owner/repo/issues/123#issuecomment-456
	issueRefPattern = regexp.MustCompile(`^([^/#\s]+)/([^/#\s]+)#(\d+)$`)
	pathRefPattern  = regexp.MustCompile(`^([^/#\s]+)/([^/#\s]+)/(?:issues|pull)/(\d+)(?:#issuecomment-(\d+))?$`)
	urlPrefix       = regexp.MustCompile(`^https?://[^/]+/`)
)

// Ref identifies an issue (or pull request) and optionally one comment on it.
type Ref struct {
	Owner     string
	Repo      string
	Number    int
	CommentID int64 // zero when the ref names the issue only
}

// ParseRef parses an issue reference. A full HTML URL with an
// #issuecomment-N fragment also carries the comment id.
func ParseRef(target string) (*Ref, error) {
	target = strings.TrimSpace(target)
	trimmed := urlPrefix.ReplaceAllString(target, "")

	if m := issueRefPattern.FindStringSubmatch(trimmed); m != nil {
		num, _ := strconv.Atoi(m[3])
		return &Ref{Owner: m[1], Repo: m[2], Number: num}, nil
	}
	if m := pathRefPattern.FindStringSubmatch(trimmed); m != nil {
		num, _ := strconv.Atoi(m[3])
		ref := &Ref{Owner: m[1], Repo: m[2], Number: num}
		if m[4] != "" {
			ref.CommentID, _ = strconv.ParseInt(m[4], 10, 64)
		}
		return ref, nil
	}

	return nil, fmt.Errorf("invalid GitHub reference format: %s (expected: owner/repo#123, owner/repo/issues/123 or an issue comment URL)", target)
}

// Coordinates returns "owner/repo".
func (r *Ref) Coordinates() string {
	return r.Owner + "/" + r.Repo
}

func (r *Ref) String() string {
	s := fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
	if r.CommentID != 0 {
		s += fmt.Sprintf(" (comment %d)", r.CommentID)
	}
	return s
}

// IsValidGitHubRef validates if a string is a valid issue reference
func IsValidGitHubRef(ref string) bool {
	_, err := ParseRef(ref)
	return err == nil
}
