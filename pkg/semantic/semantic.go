// Package semantic stores and queries the medical ontology graph.
//
// A GraphStore holds concepts (nodes with a label, a type, a description
// and free-form properties) and the directed relationships between them.
// Two implementations are provided: an in-memory store for development
// and tests, and a Blazegraph-backed store that speaks SPARQL over REST.
// GraphService wraps a store with connection handling and namespace
// prefix bootstrap so callers never touch a backend directly.
package semantic

import "context"

// Well-known namespace URIs used by the ontology.
const (
	MedicalOntologyURI = "http://example.org/medical-ontology#"
	AgentOntologyURI   = "http://example.org/agent-ontology#"

	RDFURI  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSURI = "http://www.w3.org/2000/01/rdf-schema#"
	OWLURI  = "http://www.w3.org/2002/07/owl#"
	XSDURI  = "http://www.w3.org/2001/XMLSchema#"
	SKOSURI = "http://www.w3.org/2004/02/skos/core#"
	TimeURI = "http://www.w3.org/2006/time#"
)

// DefaultConceptType is assigned to concepts stored without an explicit type.
const DefaultConceptType = "Concept"

// EssentialPrefixes returns the prefixes the ontology cannot work without.
// Binding failures for these leave the system degraded.
func EssentialPrefixes() map[string]string {
	return map[string]string{
		"med":   MedicalOntologyURI,
		"agent": AgentOntologyURI,
	}
}

// OptionalPrefixes returns standard vocabulary prefixes. Binding failures
// for these only limit advanced features.
func OptionalPrefixes() map[string]string {
	return map[string]string{
		"rdf":  RDFURI,
		"rdfs": RDFSURI,
		"owl":  OWLURI,
		"xsd":  XSDURI,
		"skos": SKOSURI,
		"time": TimeURI,
	}
}

// Concept is a node in the medical ontology.
type Concept struct {
	// ID is the concept identifier, unique within the graph.
	ID string `json:"id" yaml:"id"`

	// Label is the human-readable name.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Type is the readable concept type name. Stored as DefaultConceptType
	// when empty.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// Description is a free-text explanation of the concept.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Properties holds additional literal attributes keyed by name.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Relationships are the outgoing edges of this concept.
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// Relationship is a directed edge between two concepts.
type Relationship struct {
	// Source is the id of the concept the edge starts from.
	Source string `json:"source" yaml:"source"`

	// Type is the readable predicate name, e.g. "treats" or "subClassOf".
	Type string `json:"type" yaml:"type"`

	// Target is the id of the concept the edge points to.
	Target string `json:"target" yaml:"target"`

	// Label is the target's label when known.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Statistics summarizes the graph content.
type Statistics struct {
	TotalConcepts      int `json:"total_concepts"`
	TotalRelationships int `json:"total_relationships"`
	ClassCount         int `json:"class_count"`
	SubclassCount      int `json:"subclass_count"`
	AnnotationCount    int `json:"annotation_count"`
	AxiomCount         int `json:"axiom_count"`
	PropertyCount      int `json:"property_count"`
}

// GraphStore is the storage contract for the ontology graph.
type GraphStore interface {
	// Connect establishes the connection and prepares the backing store.
	Connect(ctx context.Context) error

	// IsConnected reports whether the store is ready for operations.
	IsConnected() bool

	// BindPrefix registers a namespace prefix used when building queries.
	BindPrefix(prefix, uri string) error

	// AddConcept stores a concept and its outgoing relationships.
	// Re-adding the same id overwrites the node attributes.
	AddConcept(ctx context.Context, concept *Concept) error

	// Concept returns a single concept by id with outgoing edges attached.
	Concept(ctx context.Context, id string) (*Concept, error)

	// Concepts returns every concept in the graph, sorted by id.
	Concepts(ctx context.Context) ([]*Concept, error)

	// Relationships returns the outgoing edges of a concept.
	Relationships(ctx context.Context, conceptID string) ([]Relationship, error)

	// RemoveConcept deletes a concept and every edge touching it.
	RemoveConcept(ctx context.Context, id string) error

	// Stats returns summary statistics for the graph.
	Stats(ctx context.Context) (*Statistics, error)

	// Clear removes all data from the store.
	Clear(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
