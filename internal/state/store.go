// Package state persists what previous runs created: per node key, the
// provider-assigned identifier, the fingerprint of the last applied
// arguments, recorded outputs, and dependency edges. The file is replaced
// atomically after every successful node operation, so an interrupted run
// leaves either the old or the new snapshot, never a torn one.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

const snapshotVersion = 1

// StateCorruptedError reports an unreadable or invalid state file. It is
// fatal and requires operator intervention; the store never discards an
// existing file silently.
type StateCorruptedError struct {
	Path string
	Err  error
}

func (e *StateCorruptedError) Error() string {
	return fmt.Sprintf("state file %s is corrupted: %v", e.Path, e.Err)
}

func (e *StateCorruptedError) Unwrap() error {
	return e.Err
}

// Entry is the persisted record for one node key.
type Entry struct {
	ID           string          `json:"id"`
	Fingerprint  string          `json:"fingerprint"`
	Inputs       json.RawMessage `json:"inputs,omitempty"`
	Outputs      json.RawMessage `json:"outputs,omitempty"`
	Dependencies []string        `json:"dependencies,omitempty"`
	AppliedAt    time.Time       `json:"applied_at"`
}

// SetInputs stores the applied argument object, used by later plans to diff
// attribute by attribute.
func (e *Entry) SetInputs(v cty.Value) error {
	if v == cty.NilVal {
		e.Inputs = nil
		return nil
	}
	raw, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return fmt.Errorf("encoding inputs: %w", err)
	}
	e.Inputs = raw
	return nil
}

// InputsValue decodes the stored inputs back into a cty value.
func (e *Entry) InputsValue() (cty.Value, error) {
	if len(e.Inputs) == 0 {
		return cty.EmptyObjectVal, nil
	}
	v, err := ctyjson.Unmarshal(e.Inputs, cty.DynamicPseudoType)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding inputs: %w", err)
	}
	return v, nil
}

// SetOutputs stores a cty value in the entry's JSON form, keeping the type
// information so it round-trips through the file.
func (e *Entry) SetOutputs(v cty.Value) error {
	if v == cty.NilVal {
		e.Outputs = nil
		return nil
	}
	raw, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return fmt.Errorf("encoding outputs: %w", err)
	}
	e.Outputs = raw
	return nil
}

// OutputsValue decodes the stored outputs back into a cty value. An entry
// without outputs yields cty.NilVal.
func (e *Entry) OutputsValue() (cty.Value, error) {
	if len(e.Outputs) == 0 {
		return cty.NilVal, nil
	}
	v, err := ctyjson.Unmarshal(e.Outputs, cty.DynamicPseudoType)
	if err != nil {
		return cty.NilVal, fmt.Errorf("decoding outputs: %w", err)
	}
	return v, nil
}

// snapshot is the on-disk shape of the whole file.
type snapshot struct {
	Version   int               `json:"version"`
	Serial    int               `json:"serial"`
	Resources map[string]*Entry `json:"resources"`
}

// Store is the file-backed state store. All mutations go through Commit and
// Delete, which serialize under one mutex and rewrite the file atomically.
type Store struct {
	fs   afero.Fs
	path string

	mu   sync.Mutex
	snap *snapshot
}

// Open loads the state file at path, or starts empty if it does not exist.
// A file that exists but cannot be parsed is a StateCorruptedError.
func Open(fs afero.Fs, path string) (*Store, error) {
	store := &Store{
		fs:   fs,
		path: path,
		snap: &snapshot{Version: snapshotVersion, Resources: make(map[string]*Entry)},
	}

	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, &StateCorruptedError{Path: path, Err: err}
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &StateCorruptedError{Path: path, Err: err}
	}
	if snap.Version != snapshotVersion {
		return nil, &StateCorruptedError{Path: path, Err: fmt.Errorf("unsupported state version %d", snap.Version)}
	}
	if snap.Resources == nil {
		snap.Resources = make(map[string]*Entry)
	}
	store.snap = &snap
	return store, nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the entry for a node key, if any.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.snap.Resources[key]
	return e, ok
}

// Keys returns every recorded node key, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.snap.Resources))
	for key := range s.snap.Resources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Dependencies returns the recorded dependency edges for every key.
func (s *Store) Dependencies() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	deps := make(map[string][]string, len(s.snap.Resources))
	for key, entry := range s.snap.Resources {
		deps[key] = append([]string(nil), entry.Dependencies...)
	}
	return deps
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snap.Resources)
}

// Commit records an entry for a key and rewrites the file. The read-modify-
// write is atomic per call: concurrent committers serialize on the store
// mutex and the file is replaced via temp-file rename.
func (s *Store) Commit(key string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.AppliedAt.IsZero() {
		entry.AppliedAt = time.Now().UTC()
	}
	s.snap.Resources[key] = entry
	s.snap.Serial++
	return s.write()
}

// Delete removes an entry for a key and rewrites the file. Deleting an
// absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.Resources[key]; !ok {
		return nil
	}
	delete(s.snap.Resources, key)
	s.snap.Serial++
	return s.write()
}

// write serializes the snapshot and atomically replaces the file. Callers
// hold s.mu.
func (s *Store) write() error {
	raw, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
