// Package redact scrubs secrets out of daemon tails before they are
// recorded in a talk, which is usually published back to the issue.
package redact

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Mode selects how hard the redactor looks.
type Mode string

const (
	// ModeOff leaves text untouched.
	ModeOff Mode = "off"
	// ModeBasic removes keys, credentials in env assignments, headers and
	// URLs.
	ModeBasic Mode = "basic"
	// ModeAggressive also removes known token prefixes and high-entropy
	// words.
	ModeAggressive Mode = "aggressive"
)

// DefaultReplacement stands in for every redacted value.
const DefaultReplacement = "***REDACTED***"

const minEntropyCandidateLen = 20

// ParseMode validates a mode name. The empty string means ModeBasic.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBasic, nil
	case ModeOff, ModeBasic, ModeAggressive:
		return m, nil
	default:
		return "", fmt.Errorf("unknown redaction mode %q", s)
	}
}

// Config holds configuration for a Redactor.
type Config struct {
	Mode Mode
	// Keys are extra variable names whose assigned values are secret.
	Keys []string
	// Secrets are literal values to remove wherever they appear, such as
	// the GitHub token talkd itself runs with.
	Secrets     []string
	Replacement string
}

// Redactor removes secrets from text. A nil Redactor redacts nothing.
type Redactor struct {
	mode        Mode
	replacement string
	secrets     []string
	env         []*regexp.Regexp
}

var (
	envSuffixes = []string{"_TOKEN", "_KEY", "_SECRET", "_PASSWORD", "_AUTHORIZATION"}
	envExact    = []string{"API_KEY", "AUTH_TOKEN", "PASSWORD", "APIKEY", "SECRET"}

	headerRe = regexp.MustCompile(`(?im)^(\s*)(Authorization|Proxy-Authorization|X-API-Key|X-Auth-Token|X-GitHub-Token|Cookie|Set-Cookie)\s*:\s*[^\r\n]+`)
	queryRe  = regexp.MustCompile(`([?&])(token|key|secret|password|api_key|access_token|refresh_token|auth_token|apikey)=[^&\s#'"]+`)
	userRe   = regexp.MustCompile(`(https?://[^:/\s@]+):[^@/\s]+@`)
	pemRe    = regexp.MustCompile(`-----BEGIN [A-Za-z0-9 ]*PRIVATE KEY-----[\s\S]*?-----END [A-Za-z0-9 ]*PRIVATE KEY-----`)
	wordRe   = regexp.MustCompile(fmt.Sprintf(`\b[A-Za-z0-9_\-.]{%d,}\b`, minEntropyCandidateLen))

	prefixes = []struct {
		prefix string
		re     *regexp.Regexp
	}{
		{"ghp_", regexp.MustCompile(`ghp_[A-Za-z0-9_]{32,36}`)},
		{"gho_", regexp.MustCompile(`gho_[A-Za-z0-9_]{32,36}`)},
		{"ghu_", regexp.MustCompile(`ghu_[A-Za-z0-9_]{32,36}`)},
		{"ghs_", regexp.MustCompile(`ghs_[A-Za-z0-9_]{32,36}`)},
		{"ghr_", regexp.MustCompile(`ghr_[A-Za-z0-9_]{32,36}`)},
		{"github_pat_", regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,82}`)},
		{"AKIA", regexp.MustCompile(`AKIA[A-Z0-9]{16}`)},
		{"xoxb-", regexp.MustCompile(`xoxb-[A-Za-z0-9\-]{26,46}`)},
		{"xoxp-", regexp.MustCompile(`xoxp-[A-Za-z0-9\-]{26,46}`)},
	}
)

// New creates a Redactor.
func New(cfg Config) *Redactor {
	r := &Redactor{mode: cfg.Mode, replacement: cfg.Replacement}
	if r.mode == "" {
		r.mode = ModeBasic
	}
	if r.replacement == "" {
		r.replacement = DefaultReplacement
	}
	for _, s := range cfg.Secrets {
		// Short values would shred unrelated text.
		if len(strings.TrimSpace(s)) >= 8 {
			r.secrets = append(r.secrets, s)
		}
	}
	for _, suffix := range envSuffixes {
		r.env = append(r.env, regexp.MustCompile(`(\w+`+regexp.QuoteMeta(suffix)+`)\s*=\s*['"]?[^'"\s]+['"]?`))
	}
	names := envExact
	for _, k := range cfg.Keys {
		if k = strings.TrimSpace(k); k != "" {
			names = append(names, k)
		}
	}
	for _, name := range names {
		r.env = append(r.env, regexp.MustCompile(`\b(`+regexp.QuoteMeta(name)+`)\s*=\s*['"]?[^'"\s]+['"]?`))
	}
	return r
}

// Mode reports the redaction mode.
func (r *Redactor) Mode() Mode {
	if r == nil {
		return ModeOff
	}
	return r.mode
}

// Redact returns s with secrets replaced.
func (r *Redactor) Redact(s string) string {
	if r == nil || r.mode == ModeOff || s == "" {
		return s
	}
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, r.replacement)
	}
	s = pemRe.ReplaceAllString(s, "-----BEGIN REDACTED-----\n"+r.replacement+"\n-----END REDACTED-----")
	for _, re := range r.env {
		s = re.ReplaceAllString(s, "$1="+r.replacement)
	}
	s = headerRe.ReplaceAllString(s, "$1$2: "+r.replacement)
	s = queryRe.ReplaceAllString(s, "$1$2="+r.replacement)
	s = userRe.ReplaceAllString(s, "$1:"+r.replacement+"@")
	if r.mode == ModeAggressive {
		for _, p := range prefixes {
			s = p.re.ReplaceAllString(s, p.prefix+r.replacement)
		}
		s = r.redactHighEntropy(s)
	}
	return s
}

func (r *Redactor) redactHighEntropy(s string) string {
	return wordRe.ReplaceAllStringFunc(s, func(w string) string {
		if strings.Contains(w, r.replacement) || falsePositive(w) || !highEntropy(w) {
			return w
		}
		return r.replacement
	})
}

// highEntropy computes Shannon entropy; natural text stays under 3.5 bits.
func highEntropy(s string) bool {
	if len(s) < minEntropyCandidateLen {
		return false
	}
	freq := make(map[rune]float64)
	for _, ch := range s {
		freq[ch]++
	}
	entropy := 0.0
	for _, count := range freq {
		p := count / float64(len(s))
		entropy -= p * math.Log2(p)
	}
	return entropy > 4.0
}

func falsePositive(s string) bool {
	if s == strings.ToLower(s) && len(s) < 30 {
		return true
	}
	if s == strings.ToUpper(s) && len(s) < 20 {
		return true
	}
	lower := 0
	for _, ch := range s {
		if ch >= 'a' && ch <= 'z' {
			lower++
		}
	}
	return float64(lower)/float64(len(s)) > 0.7
}
