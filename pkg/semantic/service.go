package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kadirpekel/ontomed/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GraphService wraps a GraphStore with connection handling, namespace
// prefix bootstrap and instrumentation. It is the surface the REST API
// and the CLI talk to.
type GraphService struct {
	store GraphStore
}

// NewGraphService creates a service over the given store.
func NewGraphService(store GraphStore) (*GraphService, error) {
	if store == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	return &GraphService{store: store}, nil
}

// Store returns the underlying graph store.
func (s *GraphService) Store() GraphStore {
	return s.store
}

// Connect connects the store and binds the ontology prefixes. A failed
// essential prefix leaves the system degraded and is logged as a warning;
// optional ones only limit advanced features.
func (s *GraphService) Connect(ctx context.Context) error {
	start := time.Now()
	err := s.store.Connect(ctx)
	observability.GetGlobalMetrics().RecordGraphOperation(ctx, "connect", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}

	s.setupPrefixes()
	return nil
}

func (s *GraphService) setupPrefixes() {
	essential := EssentialPrefixes()
	for _, prefix := range sortedKeys(essential) {
		if err := s.store.BindPrefix(prefix, essential[prefix]); err != nil {
			slog.Warn("Could not bind essential prefix", "prefix", prefix, "error", err)
		}
	}

	optional := OptionalPrefixes()
	for _, prefix := range sortedKeys(optional) {
		if err := s.store.BindPrefix(prefix, optional[prefix]); err != nil {
			slog.Info("Optional prefix not bound", "prefix", prefix, "error", err)
		}
	}
}

// IsConnected reports whether the underlying store is connected.
func (s *GraphService) IsConnected() bool {
	return s.store.IsConnected()
}

// StoreConcept writes a concept into the graph.
func (s *GraphService) StoreConcept(ctx context.Context, concept *Concept) error {
	return s.instrumented(ctx, "add_concept", func(ctx context.Context) error {
		return s.store.AddConcept(ctx, concept)
	})
}

// QueryConcept returns a single concept with its outgoing edges.
func (s *GraphService) QueryConcept(ctx context.Context, id string) (*Concept, error) {
	var concept *Concept
	err := s.instrumented(ctx, "query_concept", func(ctx context.Context) error {
		var opErr error
		concept, opErr = s.store.Concept(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return concept, nil
}

// ListConcepts returns every concept in the graph.
func (s *GraphService) ListConcepts(ctx context.Context) ([]*Concept, error) {
	var concepts []*Concept
	err := s.instrumented(ctx, "list_concepts", func(ctx context.Context) error {
		var opErr error
		concepts, opErr = s.store.Concepts(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return concepts, nil
}

// ConceptRelationships returns the outgoing edges of a concept.
func (s *GraphService) ConceptRelationships(ctx context.Context, id string) ([]Relationship, error) {
	var rels []Relationship
	err := s.instrumented(ctx, "concept_relationships", func(ctx context.Context) error {
		var opErr error
		rels, opErr = s.store.Relationships(ctx, id)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// RemoveConcept deletes a concept and every edge touching it.
func (s *GraphService) RemoveConcept(ctx context.Context, id string) error {
	return s.instrumented(ctx, "remove_concept", func(ctx context.Context) error {
		return s.store.RemoveConcept(ctx, id)
	})
}

// Statistics returns summary statistics for the graph.
func (s *GraphService) Statistics(ctx context.Context) (*Statistics, error) {
	var stats *Statistics
	err := s.instrumented(ctx, "statistics", func(ctx context.Context) error {
		var opErr error
		stats, opErr = s.store.Stats(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ClearGraph removes all data from the store.
func (s *GraphService) ClearGraph(ctx context.Context) error {
	return s.instrumented(ctx, "clear", func(ctx context.Context) error {
		return s.store.Clear(ctx)
	})
}

// Close disconnects the underlying store.
func (s *GraphService) Close() error {
	return s.store.Close()
}

func (s *GraphService) instrumented(ctx context.Context, operation string, fn func(context.Context) error) error {
	tracer := observability.GetTracer("ontomed.semantic")
	ctx, span := tracer.Start(ctx, observability.SpanGraphQuery,
		trace.WithAttributes(
			attribute.String(observability.AttrGraphOperation, operation),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.GetGlobalMetrics().RecordGraphOperation(ctx, operation, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
