// Package preflight verifies the environment before talkd starts work.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh/knownhosts"

	talklog "github.com/holon-run/talkd/pkg/log"
)

// CheckLevel is the outcome severity of a check.
type CheckLevel int

// Only LevelError fails a run.
const (
	LevelError CheckLevel = iota
	LevelWarn
	LevelInfo
)

// CheckResult is what one check found.
type CheckResult struct {
	Name    string
	Level   CheckLevel
	Message string
	Error   error
}

// Check is one environment probe.
type Check interface {
	Name() string
	Run(ctx context.Context) CheckResult
}

// Checker runs checks in order and logs each result.
type Checker struct {
	checks []Check
	skip   bool
	quiet  bool
}

// Config selects the checks a command needs.
type Config struct {
	Skip bool
	// Quiet drops info results from the log.
	Quiet bool

	GitHubToken      string
	CheckGitHubToken bool
	// RequireGitHubToken turns a missing token into an error.
	RequireGitHubToken bool

	// TalksDir must be a writable directory; it is created if missing.
	TalksDir string

	// KnownHosts is verified when CheckKnownHosts is set. Empty means host
	// keys are not verified, which is a warning.
	KnownHosts      string
	CheckKnownHosts bool
}

// NewChecker builds a checker for cfg.
func NewChecker(cfg Config) *Checker {
	c := &Checker{skip: cfg.Skip, quiet: cfg.Quiet}
	if cfg.CheckGitHubToken {
		c.checks = append(c.checks, &GitHubTokenCheck{Token: cfg.GitHubToken, Required: cfg.RequireGitHubToken})
	}
	if cfg.TalksDir != "" {
		c.checks = append(c.checks, &TalksDirCheck{Path: cfg.TalksDir})
	}
	if cfg.CheckKnownHosts {
		c.checks = append(c.checks, &KnownHostsCheck{Path: cfg.KnownHosts})
	}
	return c
}

// Run runs every check and joins the failures into one error.
func (c *Checker) Run(ctx context.Context) error {
	if c.skip {
		talklog.Info("preflight checks skipped")
		return nil
	}
	var failed []error
	for _, check := range c.checks {
		r := check.Run(ctx)
		switch r.Level {
		case LevelError:
			talklog.Error("preflight check failed", "check", r.Name, "message", r.Message)
			err := fmt.Errorf("%s: %s", r.Name, r.Message)
			if r.Error != nil {
				err = fmt.Errorf("%s: %s: %w", r.Name, r.Message, r.Error)
			}
			failed = append(failed, err)
		case LevelWarn:
			talklog.Warn("preflight check warning", "check", r.Name, "message", r.Message)
		default:
			if !c.quiet {
				talklog.Debug("preflight check passed", "check", r.Name, "message", r.Message)
			}
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("preflight checks failed: %w", errors.Join(failed...))
	}
	return nil
}

// GitHubTokenCheck checks that a GitHub token is configured
type GitHubTokenCheck struct {
	Token    string
	Required bool
}

func (c *GitHubTokenCheck) Name() string {
	return "github-token"
}

func (c *GitHubTokenCheck) Run(ctx context.Context) CheckResult {
	if strings.TrimSpace(c.Token) != "" {
		return CheckResult{Name: c.Name(), Level: LevelInfo, Message: "GitHub token available"}
	}
	level := LevelWarn
	if c.Required {
		level = LevelError
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   level,
		Message: "GitHub token not found. Set GITHUB_TOKEN (or GH_TOKEN); reactions and replies need it",
	}
}

// TalksDirCheck checks that the talks directory exists and is writable
type TalksDirCheck struct {
	Path string
}

func (c *TalksDirCheck) Name() string {
	return "talks-dir"
}

func (c *TalksDirCheck) Run(ctx context.Context) CheckResult {
	if err := os.MkdirAll(c.Path, 0o755); err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("cannot create talks directory %s", c.Path),
			Error:   err,
		}
	}
	probe, err := os.CreateTemp(c.Path, ".preflight-*")
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("talks directory %s is not writable", c.Path),
			Error:   err,
		}
	}
	probe.Close()
	os.Remove(probe.Name())
	return CheckResult{Name: c.Name(), Level: LevelInfo, Message: fmt.Sprintf("talks directory %s is writable", c.Path)}
}

// KnownHostsCheck checks that the known_hosts file can be used to verify
// remote host keys
type KnownHostsCheck struct {
	Path string
}

func (c *KnownHostsCheck) Name() string {
	return "known-hosts"
}

func (c *KnownHostsCheck) Run(ctx context.Context) CheckResult {
	if c.Path == "" {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: "probe.known_hosts is not set; remote host keys will not be verified",
		}
	}
	if _, err := knownhosts.New(c.Path); err != nil {
		msg := fmt.Sprintf("cannot read known_hosts file %s", c.Path)
		if errors.Is(err, os.ErrNotExist) {
			msg = fmt.Sprintf("known_hosts file %s does not exist", c.Path)
		}
		return CheckResult{Name: c.Name(), Level: LevelError, Message: msg, Error: err}
	}
	return CheckResult{Name: c.Name(), Level: LevelInfo, Message: fmt.Sprintf("host keys verified against %s", c.Path)}
}
