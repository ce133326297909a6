// Package lockfile reads and writes the shared skill registry
// (~/.agents/.skill-lock.json). The file format is owned by an external
// tool: this engine only touches the skills map and must round-trip every
// top-level key it does not understand.
package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/skilldeck/skilldeck/internal/types"
)

// formatVersion is the registry version written by createIfNotExists,
// matching what the external tool expects.
const formatVersion = 1

var knownKeys = map[string]bool{
	"version":            true,
	"skills":             true,
	"dismissed":          true,
	"lastSelectedAgents": true,
}

// Document is the in-memory form of the lock file.
type Document struct {
	Version            int
	Skills             map[string]types.LockEntry
	Dismissed          map[string]bool
	LastSelectedAgents []string
	// extra preserves top-level keys owned by other tools.
	extra map[string]json.RawMessage
}

// Store is a mutex-guarded, lazily-loaded lock file. Writes are atomic:
// a temporary file is renamed over the target so a crash mid-write leaves
// the previous version intact.
type Store struct {
	mu     sync.Mutex
	path   string
	loaded bool
	doc    *Document
}

// NewStore creates a Store for the lock file at path. Nothing is read until
// the first access.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the lock file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = emptyDocument()
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	doc, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to parse lock file: %w", err)
	}
	s.doc = doc
	s.loaded = true
	return nil
}

func emptyDocument() *Document {
	return &Document{
		Version: formatVersion,
		Skills:  map[string]types.LockEntry{},
	}
}

func decode(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := emptyDocument()
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &doc.Version); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["skills"]; ok {
		if err := json.Unmarshal(v, &doc.Skills); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["dismissed"]; ok {
		if err := json.Unmarshal(v, &doc.Dismissed); err != nil {
			return nil, err
		}
	}
	if v, ok := raw["lastSelectedAgents"]; ok {
		if err := json.Unmarshal(v, &doc.LastSelectedAgents); err != nil {
			return nil, err
		}
	}
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if doc.extra == nil {
			doc.extra = map[string]json.RawMessage{}
		}
		doc.extra[k] = v
	}
	return doc, nil
}

func encode(doc *Document) ([]byte, error) {
	out := map[string]any{
		"version": doc.Version,
		"skills":  doc.Skills,
	}
	if doc.Dismissed != nil {
		out["dismissed"] = doc.Dismissed
	}
	if doc.LastSelectedAgents != nil {
		out["lastSelectedAgents"] = doc.LastSelectedAgents
	}
	for k, v := range doc.extra {
		out[k] = v
	}
	return json.MarshalIndent(out, "", "  ")
}

func (s *Store) save() error {
	data, err := encode(s.doc)
	if err != nil {
		return fmt.Errorf("failed to marshal lock file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock file directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary lock file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename lock file: %w", err)
	}
	return nil
}

// CreateIfNotExists writes an empty registry compatible with the external
// tool when no lock file exists yet. Idempotent.
func (s *Store) CreateIfNotExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check lock file: %w", err)
	}

	s.doc = emptyDocument()
	s.loaded = true
	return s.save()
}

// Entry returns the lock entry for a skill id.
func (s *Store) Entry(id string) (types.LockEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return types.LockEntry{}, false, err
	}
	entry, ok := s.doc.Skills[id]
	return entry, ok, nil
}

// Entries returns a copy of the full skills map.
func (s *Store) Entries() (map[string]types.LockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make(map[string]types.LockEntry, len(s.doc.Skills))
	for k, v := range s.doc.Skills {
		out[k] = v
	}
	return out, nil
}

// SetEntry adds or replaces a skill's lock entry and persists the file.
func (s *Store) SetEntry(id string, entry types.LockEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.doc.Skills[id] = entry
	return s.save()
}

// RemoveEntry deletes a skill's lock entry and persists the file. Removing
// an absent id is a no-op.
func (s *Store) RemoveEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.doc.Skills[id]; !ok {
		return nil
	}
	delete(s.doc.Skills, id)
	return s.save()
}

// LastSelectedAgents returns the tool ids selected during the most recent
// install.
func (s *Store) LastSelectedAgents() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]string, len(s.doc.LastSelectedAgents))
	copy(out, s.doc.LastSelectedAgents)
	return out, nil
}

// SetLastSelectedAgents records the tool ids selected during an install.
func (s *Store) SetLastSelectedAgents(agents []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	s.doc.LastSelectedAgents = agents
	return s.save()
}
