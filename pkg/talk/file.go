package talk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// File is a Talk persisted as an XML file. Every Modify rewrites the file
// through a temporary file and a rename, then appends an audit entry to
// <name>.audit.ndjson next to it.
//
// Concurrent use of one File is safe. Two File values for the same path
// are not coordinated; Store hands out one per name.
type File struct {
	name  string
	path  string
	audit string

	mu  sync.Mutex
	now func() time.Time
}

// OpenFile returns the talk stored at dir/<name>.xml. The file must exist.
func OpenFile(dir, name string) (*File, error) {
	f := newFile(dir, name)
	if _, err := os.Stat(f.path); err != nil {
		return nil, fmt.Errorf("failed to open talk %q: %w", name, err)
	}
	return f, nil
}

// CreateFile writes a new talk holding doc, or an empty document when doc
// is nil. It fails if the talk already exists.
func CreateFile(dir, name string, doc *Node) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create talks dir: %w", err)
	}
	f := newFile(dir, name)
	if doc == nil {
		doc = NewDocument(name)
	}
	data, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	out, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create talk %q: %w", name, err)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return nil, fmt.Errorf("failed to write talk %q: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to write talk %q: %w", name, err)
	}
	return f, nil
}

func newFile(dir, name string) *File {
	return &File{
		name:  name,
		path:  filepath.Join(dir, name+".xml"),
		audit: filepath.Join(dir, name+".audit.ndjson"),
		now:   time.Now,
	}
}

// Name implements Talk.
func (f *File) Name() string {
	return f.name
}

// Path returns the XML file path.
func (f *File) Path() string {
	return f.path
}

// Read implements Talk.
func (f *File) Read() (*Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() (*Node, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read talk %q: %w", f.name, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("talk %q: %w", f.name, err)
	}
	return doc, nil
}

// Modify implements Talk.
func (f *File) Modify(dirs *Directives, message string) error {
	if dirs.Len() == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	updated, err := dirs.Apply(doc)
	if err != nil {
		return fmt.Errorf("failed to modify talk %q: %w", f.name, err)
	}
	data, err := Encode(updated)
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("failed to save talk %q: %w", f.name, err)
	}
	return appendNDJSON(f.audit, Entry{
		ID:         uuid.NewString(),
		Talk:       f.name,
		At:         f.now().UTC(),
		Message:    message,
		Directives: dirs.String(),
	})
}

// Audit reads back all audit entries.
func (f *File) Audit() ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.audit)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit of talk %q: %w", f.name, err)
	}
	var entries []Entry
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to parse audit of talk %q: %w", f.name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
