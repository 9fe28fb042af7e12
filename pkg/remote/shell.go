// Package remote talks to the hosts that run daemons: it probes a daemon's
// directory over SSH and quotes values for the remote shell.
package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultPort is used when a shell descriptor has no port.
const DefaultPort = 22

// Shell describes how to reach the host running a daemon.
type Shell struct {
	ID    string
	Host  string
	Port  int
	Login string
	// Key is a PEM private key or a path to a file holding one.
	Key string
}

// Addr returns host:port.
func (s Shell) Addr() string {
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// Validate checks the fields needed to open a connection.
func (s Shell) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Host) == "" {
		missing = append(missing, "host")
	}
	if strings.TrimSpace(s.Login) == "" {
		missing = append(missing, "login")
	}
	if strings.TrimSpace(s.Key) == "" {
		missing = append(missing, "key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("shell %q is missing %s", s.ID, strings.Join(missing, ", "))
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("shell %q has invalid port %d", s.ID, s.Port)
	}
	return nil
}

func (s Shell) signer() (ssh.Signer, error) {
	pem := []byte(s.Key)
	if !strings.Contains(s.Key, "PRIVATE KEY") {
		data, err := os.ReadFile(s.Key)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("key of shell %q is neither a PEM key nor a readable file", s.ID)
			}
			return nil, fmt.Errorf("failed to read key of shell %q: %w", s.ID, err)
		}
		pem = data
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key of shell %q: %w", s.ID, err)
	}
	return signer, nil
}
