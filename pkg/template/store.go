// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package template

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// templateExtensions lists the file extensions loaded from a template directory.
var templateExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// Store holds loaded template definitions keyed by template id.
//
// The store is populated once by LoadDir and is read-only afterwards, so
// concurrent Get/List/Fill calls need no coordination beyond the load gate.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*Definition
	dir       string
	loaded    bool
}

// NewStore creates an empty template store.
func NewStore() *Store {
	return &Store{
		templates: make(map[string]*Definition),
	}
}

// LoadDir loads every template definition file from dir into the store.
//
// Loading is best-effort: files that fail to parse and files without a
// template_id are skipped with a log entry, and the remaining files still
// load. A missing directory leaves the store empty and is not an error.
//
// LoadDir runs at most once per store. Subsequent calls are no-ops.
func (s *Store) LoadDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		slog.Debug("Templates already loaded, skipping", "dir", s.dir)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Templates directory not found, starting with empty store", "dir", dir)
			s.dir = dir
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read templates directory %s: %w", dir, err)
	}

	loaded := 0
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !templateExtensions[ext] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		def, err := loadDefinition(path)
		if err != nil {
			slog.Error("Failed to load template file", "path", path, "error", err)
			skipped++
			continue
		}
		if def.TemplateID == "" {
			slog.Warn("Skipping template file without template_id", "path", path)
			skipped++
			continue
		}

		if _, exists := s.templates[def.TemplateID]; exists {
			slog.Warn("Overwriting duplicate template id", "template_id", def.TemplateID, "path", path)
		}
		s.templates[def.TemplateID] = def
		loaded++
		slog.Debug("Loaded template", "template_id", def.TemplateID, "path", path)
	}

	s.dir = dir
	s.loaded = true
	slog.Info("Templates loaded", "dir", dir, "count", loaded, "skipped", skipped)
	return nil
}

// loadDefinition reads and parses one template definition file.
// JSON files parse through the YAML decoder since JSON is a YAML subset.
func loadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &def, nil
}

// Get returns the template with the given id.
// Returns a NotFoundError (matching ErrNotFound) when the id is unknown.
func (s *Store) Get(id string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.templates[id]
	if !ok {
		return nil, NewNotFoundError(id)
	}
	return def, nil
}

// List returns all loaded definitions sorted by template id.
func (s *Store) List() []*Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*Definition, 0, len(s.templates))
	for _, def := range s.templates {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].TemplateID < defs[j].TemplateID
	})
	return defs
}

// IDs returns all loaded template ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of loaded templates.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Dir returns the directory the store was loaded from.
func (s *Store) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}
