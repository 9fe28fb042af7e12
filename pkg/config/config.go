// Package config loads talkd's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	talklog "github.com/holon-run/talkd/pkg/log"
	"github.com/holon-run/talkd/pkg/redact"
)

// DefaultPath is where talkd looks for its configuration.
var DefaultPath = filepath.Join(".talkd", "config.yaml")

// Config is the top-level configuration file.
type Config struct {
	Version  string         `yaml:"version"`
	GitHub   GitHubConfig   `yaml:"github"`
	Talks    TalksConfig    `yaml:"talks"`
	Probe    ProbeConfig    `yaml:"probe"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
	Redact   RedactConfig   `yaml:"redact"`
}

// GitHubConfig configures the GitHub API client.
type GitHubConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	// Token is usually left empty and taken from GITHUB_TOKEN.
	Token string `yaml:"token,omitempty"`
}

// TalksConfig locates the talk documents.
type TalksConfig struct {
	Dir string `yaml:"dir"`
}

// ProbeConfig configures remote daemon probes.
type ProbeConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Freshness  time.Duration `yaml:"freshness"`
	KnownHosts string        `yaml:"known_hosts,omitempty"`
	TailLines  int           `yaml:"tail_lines"`
}

// PipelineConfig configures the agent loop.
type PipelineConfig struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format,omitempty"`
}

// RedactConfig configures scrubbing of daemon tails.
type RedactConfig struct {
	Mode string   `yaml:"mode"`
	Keys []string `yaml:"keys,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version: "v1",
		GitHub:  GitHubConfig{BaseURL: "https://api.github.com/"},
		Talks:   TalksConfig{Dir: filepath.Join(".talkd", "talks")},
		Probe: ProbeConfig{
			Timeout:   30 * time.Second,
			Freshness: 10 * time.Minute,
			TailLines: 100,
		},
		Pipeline: PipelineConfig{
			Interval: time.Minute,
			Workers:  4,
		},
		Log:    LogConfig{Level: "progress", Format: "console"},
		Redact: RedactConfig{Mode: string(redact.ModeBasic)},
	}
}

// Load reads the configuration at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if token := getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	} else if token := getenv("GH_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if level := getenv("TALKD_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Version) != "v1" {
		return fmt.Errorf("unsupported version %q", c.Version)
	}
	if strings.TrimSpace(c.Talks.Dir) == "" {
		return errors.New("talks.dir is required")
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("probe.timeout must be positive")
	}
	if c.Probe.Freshness < 0 {
		return errors.New("probe.freshness must not be negative")
	}
	if c.Probe.TailLines <= 0 {
		return errors.New("probe.tail_lines must be positive")
	}
	if c.Pipeline.Interval <= 0 {
		return errors.New("pipeline.interval must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	if !talklog.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	if _, err := redact.ParseMode(c.Redact.Mode); err != nil {
		return fmt.Errorf("redact.mode: %w", err)
	}
	return nil
}

// Logger returns the logger configuration.
func (c Config) Logger() talklog.Config {
	return talklog.Config{
		Level:  talklog.LogLevel(c.Log.Level),
		Format: c.Log.Format,
	}
}

// Redactor builds the tail redactor. The GitHub token is always scrubbed
// unless redaction is off.
func (c Config) Redactor() *redact.Redactor {
	mode, _ := redact.ParseMode(c.Redact.Mode)
	return redact.New(redact.Config{
		Mode:    mode,
		Keys:    c.Redact.Keys,
		Secrets: []string{c.GitHub.Token},
	})
}
