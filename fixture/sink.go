// Copyright 2025 The fixturefill Authors
// This file is part of the fixturefill library.
//
// The fixturefill library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fixturefill library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fixturefill library. If not, see <http://www.gnu.org/licenses/>.

package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DuplicateFixtureError means two instances produced the same fixture
// identifier. That is a structural authoring bug and aborts the run; a
// fixture is never silently overwritten.
type DuplicateFixtureError struct {
	ID string
}

func (e *DuplicateFixtureError) Error() string {
	return fmt.Sprintf("duplicate fixture id %q", e.ID)
}

// Sink receives finished fixtures. Put must tolerate unordered concurrent
// calls for distinct identifiers and reject a repeated identifier.
type Sink interface {
	Put(f *Fixture) error
}

// DirectorySink persists one JSON document per fixture under
// <dir>/<source-test>/<fixture-id>.json, or flat under <dir> when
// configured so. The identifier index makes Put write-once.
type DirectorySink struct {
	dir  string
	flat bool

	mu    sync.Mutex
	index map[string]bool
}

// NewDirectorySink creates the output directory eagerly so configuration
// problems surface before any tool is spawned.
func NewDirectorySink(dir string, flat bool) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &DirectorySink{dir: dir, flat: flat, index: make(map[string]bool)}, nil
}

func (s *DirectorySink) Put(f *Fixture) error {
	// Check-then-insert under the lock; the write itself happens outside
	// since distinct ids never collide on the filesystem.
	s.mu.Lock()
	if s.index[f.ID] {
		s.mu.Unlock()
		return &DuplicateFixtureError{ID: f.ID}
	}
	s.index[f.ID] = true
	s.mu.Unlock()

	data, err := f.Serialize()
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, f.ID+".json")
	if !s.flat {
		path = filepath.Join(s.dir, sanitize(f.Info.TestID), f.ID+".json")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create fixture directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write fixture %s: %w", f.ID, err)
	}
	return nil
}

// IDs returns the persisted identifiers, sorted.
func (s *DirectorySink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.index))
	for id := range s.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MemorySink keeps fixtures in memory, for tests and dry runs.
type MemorySink struct {
	mu       sync.Mutex
	fixtures map[string]*Fixture
}

func NewMemorySink() *MemorySink {
	return &MemorySink{fixtures: make(map[string]*Fixture)}
}

func (s *MemorySink) Put(f *Fixture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fixtures[f.ID]; ok {
		return &DuplicateFixtureError{ID: f.ID}
	}
	s.fixtures[f.ID] = f
	return nil
}

// Get returns a stored fixture by id.
func (s *MemorySink) Get(id string) (*Fixture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fixtures[id]
	return f, ok
}

// Len reports how many fixtures the sink holds.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fixtures)
}

// IDs returns the stored identifiers, sorted.
func (s *MemorySink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.fixtures))
	for id := range s.fixtures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
