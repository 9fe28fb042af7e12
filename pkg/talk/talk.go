package talk

import (
	"fmt"
	"sync"
	"time"
)

// TimeFormat is the layout of timestamps stored in documents.
const TimeFormat = "2006-01-02T15:04:05Z"

// FormatTime renders t in UTC with TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a document timestamp. Fractional seconds and offsets
// (RFC 3339) are accepted too.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// Talk is the state document of one job.
//
// Read returns a snapshot the caller may keep or change freely. Modify
// applies an edit set atomically: readers see either the old or the new
// document, never a partial one. An empty edit set is a no-op.
type Talk interface {
	Name() string
	Read() (*Node, error)
	Modify(dirs *Directives, message string) error
}

// Entry is one audit record of a Modify call.
type Entry struct {
	ID         string    `json:"id"`
	Talk       string    `json:"talk"`
	At         time.Time `json:"at"`
	Message    string    `json:"message"`
	Directives string    `json:"directives"`
}

// Memory is a Talk held in memory.
type Memory struct {
	name string

	mu    sync.RWMutex
	doc   *Node
	audit []Entry
	now   func() time.Time
}

// NewMemory returns an in-memory talk with an empty document.
func NewMemory(name string) *Memory {
	return &Memory{name: name, doc: NewDocument(name), now: time.Now}
}

// Name implements Talk.
func (m *Memory) Name() string {
	return m.name
}

// Read implements Talk.
func (m *Memory) Read() (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Clone(), nil
}

// Modify implements Talk.
func (m *Memory) Modify(dirs *Directives, message string) error {
	if dirs.Len() == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := dirs.Apply(m.doc)
	if err != nil {
		return fmt.Errorf("failed to modify talk %q: %w", m.name, err)
	}
	m.doc = doc
	m.audit = append(m.audit, Entry{
		ID:         fmt.Sprintf("%s-%d", m.name, len(m.audit)+1),
		Talk:       m.name,
		At:         m.now().UTC(),
		Message:    message,
		Directives: dirs.String(),
	})
	return nil
}

// Audit returns the audit entries recorded so far.
func (m *Memory) Audit() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.audit...)
}
