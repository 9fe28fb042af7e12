package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/redact"
	"github.com/holon-run/talkd/pkg/remote"
	"github.com/holon-run/talkd/pkg/talk"
)

// DefaultFreshness is how long after its start a daemon is given the
// benefit of the doubt when it cannot be found.
const DefaultFreshness = 10 * time.Minute

// AbnormalCode is recorded for daemons whose exit status is unknown.
const AbnormalCode = 1

const runningDaemon = "/talk/daemon[started][not(ended)]"

// Dismount checks on the running daemon of a talk and records its end:
// the exit code and tail when it finished, or AbnormalCode with a
// diagnostic tail when it cannot be found and is no longer fresh.
type Dismount struct {
	Prober    remote.Prober
	Freshness time.Duration
	// Redactor scrubs tails before they are recorded; nil keeps them as is.
	Redactor *redact.Redactor
	// Now defaults to time.Now.
	Now func() time.Time
}

// Execute implements Agent.
func (d *Dismount) Execute(ctx context.Context, t talk.Talk) error {
	doc, err := t.Read()
	if err != nil {
		return err
	}
	logger := talklog.ForTalk(t.Name(), "dismount")
	daemons := doc.Nodes(runningDaemon)
	if len(daemons) == 0 {
		logger.Debugw("no running daemon")
		return nil
	}
	shells := doc.Nodes("/talk/shell")
	if len(shells) == 0 {
		logger.Debugw("daemon has no shell yet")
		return nil
	}
	daemon := daemons[0]
	sh, err := ShellOf(shells[0])
	if err != nil {
		return err
	}
	dir, ok := daemon.ChildText("dir")
	if !ok || strings.TrimSpace(dir) == "" {
		return fmt.Errorf("daemon of talk %q has no dir", t.Name())
	}
	startedText, _ := daemon.ChildText("started")
	started, err := talk.ParseTime(startedText)
	if err != nil {
		return fmt.Errorf("daemon of talk %q: %w", t.Name(), err)
	}

	status, err := d.Prober.Probe(ctx, sh, dir)
	if ctx.Err() != nil {
		// Shutting down; the probe result says nothing about the daemon.
		return nil
	}
	if errors.Is(err, remote.ErrConfig) {
		// Nothing was asked of the host, so the daemon stays as it is.
		logger.Errorw("cannot check on daemon", "host", sh.Addr(), "error", err)
		return err
	}
	now := d.now()
	fresh := now.Sub(started) < d.freshness()

	switch {
	case err != nil:
		if fresh {
			logger.Infow("daemon host unreachable, still fresh", "host", sh.Addr(), "error", err)
			return nil
		}
		logger.Warnw("daemon host unreachable, ending daemon", "host", sh.Addr(), "error", err)
		tail := fmt.Sprintf("Failed to reach %s@%s to check on the daemon: %v", sh.Login, sh.Addr(), unwrapUnreachable(err))
		return end(t, now, AbnormalCode, d.tail(tail), "daemon unreachable")
	case status.State == remote.StateRunning:
		logger.Debugw("daemon still running")
		return nil
	case status.State == remote.StateEnded:
		logger.Infow("daemon finished", "code", status.Code)
		return end(t, now, status.Code, d.tail(status.Tail), fmt.Sprintf("daemon finished with code %d", status.Code))
	default:
		if fresh {
			logger.Infow("daemon not found, still fresh")
			return nil
		}
		logger.Warnw("daemon lost, ending daemon")
		tail := strings.TrimRight(status.Tail, "\r\n")
		if tail != "" {
			tail += "\n"
		}
		tail += "The daemon is gone: no running process and no exit status."
		return end(t, now, AbnormalCode, d.tail(tail), "daemon lost")
	}
}

func (d *Dismount) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// tail prepares daemon output for the document.
func (d *Dismount) tail(s string) string {
	return d.Redactor.Redact(cleanTail(s))
}

func (d *Dismount) freshness() time.Duration {
	if d.Freshness > 0 {
		return d.Freshness
	}
	return DefaultFreshness
}

// end records the end of the running daemon in one edit set. The xpath
// guard keeps an already ended daemon untouched.
func end(t talk.Talk, at time.Time, code int, tail, message string) error {
	dirs := new(talk.Directives).
		XPath(runningDaemon).
		Add("ended").Set(talk.FormatTime(at)).Up().
		Add("code").Set(strconv.Itoa(code)).Up().
		Add("tail").Set(tail)
	return t.Modify(dirs, message)
}

// ShellOf reads a shell descriptor from a <shell> node.
func ShellOf(n *talk.Node) (remote.Shell, error) {
	id, _ := n.Attr("id")
	sh := remote.Shell{ID: id}
	sh.Host, _ = n.ChildText("host")
	sh.Login, _ = n.ChildText("login")
	sh.Key, _ = n.ChildText("key")
	if port, ok := n.ChildText("port"); ok && strings.TrimSpace(port) != "" {
		p, err := strconv.Atoi(strings.TrimSpace(port))
		if err != nil {
			return remote.Shell{}, fmt.Errorf("shell %q has invalid port %q", id, port)
		}
		sh.Port = p
	}
	if err := sh.Validate(); err != nil {
		return remote.Shell{}, err
	}
	return sh, nil
}

// unwrapUnreachable drops the ErrUnreachable prefix for the tail.
func unwrapUnreachable(err error) string {
	msg := err.Error()
	if errors.Is(err, remote.ErrUnreachable) {
		msg = strings.TrimPrefix(msg, remote.ErrUnreachable.Error()+": ")
	}
	return msg
}
