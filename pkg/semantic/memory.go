package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps the whole graph in process memory. It is the default
// backend for development and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	connected     bool
	prefixes      map[string]string
	concepts      map[string]*Concept
	relationships []Relationship
}

var _ GraphStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		prefixes: make(map[string]string),
		concepts: make(map[string]*Concept),
	}
}

// Connect marks the store ready. Data survives reconnects.
func (s *MemoryStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	slog.Info("Connected to in-memory graph store")
	return nil
}

// IsConnected reports whether Connect has been called.
func (s *MemoryStore) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// BindPrefix records a namespace prefix binding.
func (s *MemoryStore) BindPrefix(prefix, uri string) error {
	if prefix == "" || uri == "" {
		return fmt.Errorf("prefix and uri cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.prefixes[prefix] = uri
	return nil
}

// Prefixes returns a copy of the bound namespace prefixes.
func (s *MemoryStore) Prefixes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.prefixes))
	for prefix, uri := range s.prefixes {
		out[prefix] = uri
	}
	return out
}

// AddConcept stores a concept. Outgoing edges carried on the concept are
// merged into the shared relationship list with the concept as source.
func (s *MemoryStore) AddConcept(ctx context.Context, concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("concept cannot be nil")
	}
	if concept.ID == "" {
		return fmt.Errorf("concept id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	stored := cloneConcept(concept)
	if stored.Type == "" {
		stored.Type = DefaultConceptType
	}

	for _, rel := range stored.Relationships {
		rel.Source = stored.ID
		rel.Label = ""
		if rel.Type == "" || rel.Target == "" {
			continue
		}
		if !s.hasRelationshipLocked(rel) {
			s.relationships = append(s.relationships, rel)
		}
	}
	stored.Relationships = nil

	s.concepts[stored.ID] = stored
	return nil
}

// Concept returns a copy of the stored concept with outgoing edges attached.
func (s *MemoryStore) Concept(ctx context.Context, id string) (*Concept, error) {
	if id == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	stored, ok := s.concepts[id]
	if !ok {
		return nil, NewConceptNotFoundError(id)
	}

	out := cloneConcept(stored)
	out.Relationships = s.outgoingLocked(id)
	return out, nil
}

// Concepts returns every stored concept sorted by id.
func (s *MemoryStore) Concepts(ctx context.Context) ([]*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	concepts := make([]*Concept, 0, len(s.concepts))
	for id, stored := range s.concepts {
		out := cloneConcept(stored)
		out.Relationships = s.outgoingLocked(id)
		concepts = append(concepts, out)
	}
	sort.Slice(concepts, func(i, j int) bool { return concepts[i].ID < concepts[j].ID })
	return concepts, nil
}

// Relationships returns the outgoing edges of a concept.
func (s *MemoryStore) Relationships(ctx context.Context, conceptID string) ([]Relationship, error) {
	if conceptID == "" {
		return nil, fmt.Errorf("concept id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	if _, ok := s.concepts[conceptID]; !ok {
		return nil, NewConceptNotFoundError(conceptID)
	}
	return s.outgoingLocked(conceptID), nil
}

// RemoveConcept deletes the concept and every edge touching it.
func (s *MemoryStore) RemoveConcept(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("concept id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	if _, ok := s.concepts[id]; !ok {
		return NewConceptNotFoundError(id)
	}
	delete(s.concepts, id)

	var kept []Relationship
	for _, rel := range s.relationships {
		if rel.Source == id || rel.Target == id {
			continue
		}
		kept = append(kept, rel)
	}
	s.relationships = kept
	return nil
}

// Stats derives summary statistics from the stored concepts and edges.
func (s *MemoryStore) Stats(ctx context.Context) (*Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	stats := &Statistics{
		TotalConcepts:      len(s.concepts),
		TotalRelationships: len(s.relationships),
	}

	for _, concept := range s.concepts {
		if strings.EqualFold(concept.Type, "Class") {
			stats.ClassCount++
		}
		if concept.Description != "" {
			stats.AnnotationCount++
		}
	}

	predicates := make(map[string]struct{})
	for _, rel := range s.relationships {
		predicates[rel.Type] = struct{}{}
		switch rel.Type {
		case "subClassOf":
			stats.SubclassCount++
		case "equivalentClass", "disjointWith", "complementOf", "intersectionOf", "unionOf":
			stats.AxiomCount++
		}
	}
	stats.PropertyCount = len(predicates)

	return stats, nil
}

// Clear removes all concepts and relationships. Prefix bindings survive.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}

	s.concepts = make(map[string]*Concept)
	s.relationships = nil
	slog.Info("Cleared in-memory graph store")
	return nil
}

// Close marks the store disconnected.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *MemoryStore) hasRelationshipLocked(rel Relationship) bool {
	for _, existing := range s.relationships {
		if existing.Source == rel.Source && existing.Type == rel.Type && existing.Target == rel.Target {
			return true
		}
	}
	return false
}

func (s *MemoryStore) outgoingLocked(id string) []Relationship {
	var rels []Relationship
	for _, rel := range s.relationships {
		if rel.Source != id {
			continue
		}
		if rel.Label == "" {
			if target, ok := s.concepts[rel.Target]; ok {
				rel.Label = target.Label
			}
		}
		rels = append(rels, rel)
	}
	return rels
}

func cloneConcept(c *Concept) *Concept {
	out := &Concept{
		ID:          c.ID,
		Label:       c.Label,
		Type:        c.Type,
		Description: c.Description,
	}
	if len(c.Properties) > 0 {
		out.Properties = make(map[string]any, len(c.Properties))
		for name, value := range c.Properties {
			out.Properties[name] = value
		}
	}
	if len(c.Relationships) > 0 {
		out.Relationships = append([]Relationship(nil), c.Relationships...)
	}
	return out
}
