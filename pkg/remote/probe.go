package remote

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultProbeTimeout = 30 * time.Second
	defaultTailLines    = 100
)

// ErrUnreachable wraps failures to reach or talk to the host: resolution,
// dial, handshake, session, timeout or unparseable output.
var ErrUnreachable = errors.New("remote host unreachable")

// ErrConfig wraps local setup failures found before any connection is
// made: an invalid shell, an unreadable or unparseable key, or a
// known_hosts file that does not load. They say nothing about the host.
var ErrConfig = errors.New("remote probe misconfigured")

// State is what a probe found in the daemon directory.
type State int

const (
	// StateRunning means the daemon's process is alive.
	StateRunning State = iota
	// StateEnded means the daemon wrote its exit status.
	StateEnded
	// StateLost means neither a live process nor an exit status was found.
	StateLost
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateEnded:
		return "ended"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Status is the result of a completed probe. Code is only meaningful for
// StateEnded.
type Status struct {
	State State
	Code  int
	Tail  string
}

// Prober checks on a daemon running in dir on the host described by sh.
// Any returned error wraps either ErrConfig or ErrUnreachable.
type Prober interface {
	Probe(ctx context.Context, sh Shell, dir string) (Status, error)
}

// SSHProber probes daemons over SSH.
type SSHProber struct {
	// Timeout bounds the whole probe, dial included.
	Timeout time.Duration
	// KnownHosts is a known_hosts file; empty disables host key checks.
	KnownHosts string
	// TailLines is how many trailing lines of stdout to capture.
	TailLines int
}

// Probe implements Prober.
func (p *SSHProber) Probe(ctx context.Context, sh Shell, dir string) (Status, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	config, err := p.clientConfig(sh)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	out, err := p.run(ctx, sh.Addr(), config, Script(dir, p.tailLines()))
	if err != nil {
		return Status{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, sh.Addr(), err)
	}
	status, err := ParseStatus(out)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %s: %v", ErrUnreachable, sh.Addr(), err)
	}
	return status, nil
}

func (p *SSHProber) tailLines() int {
	if p.TailLines <= 0 {
		return defaultTailLines
	}
	return p.TailLines
}

func (p *SSHProber) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if p.KnownHosts == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(p.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}
	return cb, nil
}

// clientConfig does everything that needs no network.
func (p *SSHProber) clientConfig(sh Shell) (*ssh.ClientConfig, error) {
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	signer, err := sh.signer()
	if err != nil {
		return nil, err
	}
	hostKey, err := p.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            sh.Login,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
	}, nil
}

func (p *SSHProber) run(ctx context.Context, addr string, config *ssh.ClientConfig, script string) ([]byte, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client := ssh.NewClient(cc, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout

	done := make(chan error, 1)
	go func() {
		done <- session.Run(script)
	}()

	select {
	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return stdout.Bytes(), nil
	}
}

// Script is the shell snippet run on the remote host. The daemon directory
// holds pid, status (exit code, written when the script finishes) and
// stdout.
func Script(dir string, tail int) string {
	lines := []string{
		fmt.Sprintf("cd %s 2>/dev/null || { echo lost; exit 0; }", Escape(dir)),
		"if [ -s status ]; then",
		"  echo \"ended $(cat status)\"",
		fmt.Sprintf("  tail -n %d stdout 2>/dev/null", tail),
		"elif [ -s pid ] && kill -0 \"$(cat pid)\" 2>/dev/null; then",
		"  echo running",
		"else",
		"  echo lost",
		fmt.Sprintf("  tail -n %d stdout 2>/dev/null", tail),
		"fi",
	}
	return strings.Join(lines, "\n")
}

// ParseStatus parses the output of Script.
func ParseStatus(out []byte) (Status, error) {
	reader := bufio.NewReader(bytes.NewReader(out))
	first, err := reader.ReadString('\n')
	if err != nil && first == "" {
		return Status{}, errors.New("empty probe output")
	}
	rest := out[len(first):]
	first = strings.TrimSpace(first)

	tail := strings.TrimRight(string(rest), "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return Status{}, errors.New("empty probe output")
	}
	switch fields[0] {
	case "running":
		return Status{State: StateRunning}, nil
	case "lost":
		return Status{State: StateLost, Tail: tail}, nil
	case "ended":
		if len(fields) != 2 {
			return Status{}, fmt.Errorf("malformed exit status line %q", first)
		}
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return Status{}, fmt.Errorf("malformed exit code %q", fields[1])
		}
		return Status{State: StateEnded, Code: code, Tail: tail}, nil
	default:
		return Status{}, fmt.Errorf("unexpected probe output %q", first)
	}
}
