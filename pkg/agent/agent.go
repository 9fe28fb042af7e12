// Package agent holds the reconciliation units that drive a talk from a
// started daemon to its final outcome.
//
// Every agent reads a snapshot, decides, and applies at most one edit set.
// Agents are idempotent and do not depend on each other within a pass; the
// document converges over repeated passes.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/holon-run/talkd/pkg/redact"
	"github.com/holon-run/talkd/pkg/remote"
	"github.com/holon-run/talkd/pkg/talk"
)

// Agent advances a talk by at most one transition. Remote failures are
// handled inside Execute; a returned error means the document could not be
// read or written, or is malformed.
type Agent interface {
	Execute(ctx context.Context, t talk.Talk) error
}

// Pipeline runs agents in order, stopping at the first error.
type Pipeline []Agent

// Execute implements Agent.
func (p Pipeline) Execute(ctx context.Context, t talk.Talk) error {
	for _, a := range p {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Execute(ctx, t); err != nil {
			return fmt.Errorf("%T on talk %q: %w", a, t.Name(), err)
		}
	}
	return nil
}

// Default is the pipeline talkd runs on every talk.
func Default(prober remote.Prober, freshness time.Duration, redactor *redact.Redactor) Pipeline {
	return Pipeline{
		&Dismount{Prober: prober, Freshness: freshness, Redactor: redactor},
		EndsMerge{},
	}
}
