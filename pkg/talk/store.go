package talk

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store is a directory of talk files.
type Store struct {
	dir string

	mu    sync.Mutex
	talks map[string]*File
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir, talks: make(map[string]*File)}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// ValidName reports whether name can be used as a talk name.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !strings.HasSuffix(name, ".audit")
}

// List returns the names of all talks, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list talks: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".xml")
		if ValidName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the talk with the given name. The same *File is returned for
// the same name.
func (s *Store) Get(name string) (*File, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid talk name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.talks[name]; ok {
		return f, nil
	}
	f, err := OpenFile(s.dir, name)
	if err != nil {
		return nil, err
	}
	s.talks[name] = f
	return f, nil
}

// Create adds a new talk holding doc (an empty document when nil).
func (s *Store) Create(name string, doc *Node) (*File, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid talk name %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := CreateFile(s.dir, name, doc)
	if err != nil {
		return nil, err
	}
	s.talks[name] = f
	return f, nil
}

// NameOf maps a file path inside the store to a talk name. ok is false for
// files that are not talk documents.
func (s *Store) NameOf(path string) (name string, ok bool) {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.dir) {
		return "", false
	}
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".xml") {
		return "", false
	}
	name = strings.TrimSuffix(base, ".xml")
	return name, ValidName(name)
}
