// Package request defines the structured command that the question chain
// produces from a comment.
package request

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Request is a typed command with named arguments.
//
// Args carry the command contract (for a release: head and head_branch).
// Vars are optional values exported to the daemon's script environment,
// such as the release tag or title.
//
// A Request is never mutated after construction; use With to derive one.
type Request struct {
	Type string
	Args map[string]string
	Vars map[string]string
}

// Empty means no command was recognized in the comment.
var Empty = Request{}

// New builds a request of the given type. Args are copied.
func New(typ string, args map[string]string) Request {
	return Request{Type: typ, Args: maps.Clone(args)}
}

// WithVar returns a copy of r with the variable set.
func (r Request) WithVar(name, value string) Request {
	vars := maps.Clone(r.Vars)
	if vars == nil {
		vars = make(map[string]string, 1)
	}
	vars[name] = value
	return Request{Type: r.Type, Args: maps.Clone(r.Args), Vars: vars}
}

// IsEmpty reports whether r is the Empty request.
func (r Request) IsEmpty() bool {
	return r.Equal(Empty)
}

// Arg returns the named argument and whether it is present.
func (r Request) Arg(name string) (string, bool) {
	v, ok := r.Args[name]
	return v, ok
}

// Equal compares type, args and vars. A nil map equals an empty one.
func (r Request) Equal(o Request) bool {
	return r.Type == o.Type && maps.Equal(r.Args, o.Args) && maps.Equal(r.Vars, o.Vars)
}

// String renders the request as `type(k=v, ...)`, keys sorted.
func (r Request) String() string {
	if r.IsEmpty() {
		return "empty"
	}
	parts := make([]string, 0, len(r.Args)+len(r.Vars))
	for _, k := range slices.Sorted(maps.Keys(r.Args)) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, r.Args[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(r.Vars)) {
		parts = append(parts, fmt.Sprintf("$%s=%s", k, r.Vars[k]))
	}
	return fmt.Sprintf("%s(%s)", r.Type, strings.Join(parts, ", "))
}

// document is the YAML shape of a request.
type document struct {
	Type string            `yaml:"type"`
	Args map[string]string `yaml:"args,omitempty"`
	Vars map[string]string `yaml:"vars,omitempty"`
}

// MarshalYAML renders the request for `talkd understand`.
func (r Request) MarshalYAML() (interface{}, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	return document{Type: r.Type, Args: r.Args, Vars: r.Vars}, nil
}
