// Package version parses and orders dotted-numeric release versions such as
// "1.7", "v2.0.1" or "3".
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed release version. Missing trailing components compare
// as zero, so "1.7" equals "1.7.0".
type Version struct {
	Parts    []int
	Original string
}

// Parse parses a dotted-numeric version with an optional "v" prefix.
// Anything else (pre-release suffixes, empty components, signs) is rejected.
func Parse(s string) (*Version, error) {
	original := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	s = strings.TrimPrefix(s, "V")
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}

	fields := strings.Split(s, ".")
	v := &Version{Parts: make([]int, 0, len(fields)), Original: original}
	for _, f := range fields {
		n, err := parseComponent(f)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", original, err)
		}
		v.Parts = append(v.Parts, n)
	}
	return v, nil
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version component")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid version number: %s", s)
		}
	}
	return strconv.Atoi(s)
}

// Compare returns -1 if v < other, 0 if equal, 1 if v > other.
func (v *Version) Compare(other *Version) int {
	n := max(len(v.Parts), len(other.Parts))
	for i := 0; i < n; i++ {
		a, b := v.part(i), other.part(i)
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}
	return 0
}

func (v *Version) part(i int) int {
	if i < len(v.Parts) {
		return v.Parts[i]
	}
	return 0
}

// Newer reports whether v is strictly newer than other.
func (v *Version) Newer(other *Version) bool {
	return v.Compare(other) > 0
}

// String returns the normalized dotted form without prefix.
func (v *Version) String() string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// Latest returns the newest of the given tags, skipping those that do not
// parse. It returns nil when no tag parses.
func Latest(tags []string) *Version {
	var latest *Version
	for _, tag := range tags {
		v, err := Parse(tag)
		if err != nil {
			continue
		}
		if latest == nil || v.Newer(latest) {
			latest = v
		}
	}
	return latest
}
