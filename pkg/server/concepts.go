package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/ontomed/pkg/generator"
	"github.com/kadirpekel/ontomed/pkg/semantic"
)

// relationshipsResponse matches the shape clients of the relationships
// endpoint expect.
type relationshipsResponse struct {
	ID            string                  `json:"id"`
	Label         string                  `json:"label"`
	Relationships []semantic.Relationship `json:"relationships"`
}

// requireGraph answers 503 and returns false when no graph store is wired.
func (s *Server) requireGraph(w http.ResponseWriter) bool {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph store not configured")
		return false
	}
	return true
}

func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	concepts, err := s.graph.ListConcepts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if concepts == nil {
		concepts = []*semantic.Concept{}
	}

	writeJSON(w, http.StatusOK, concepts)
}

func (s *Server) handleGetConcept(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	concept, err := s.graph.QueryConcept(r.Context(), chi.URLParam(r, "conceptID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, concept)
}

// handleCreateConcept stores a concept in the graph and indexes its
// embedding. Indexing is best effort; the create succeeds without it.
func (s *Server) handleCreateConcept(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	var concept semantic.Concept
	if err := decodeJSON(r, &concept); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}
	if concept.ID == "" {
		writeError(w, http.StatusBadRequest, "concept id is required")
		return
	}

	if err := s.graph.StoreConcept(r.Context(), &concept); err != nil {
		writeDomainError(w, err)
		return
	}

	if _, err := s.generator.EmbedConcept(r.Context(), &concept); err != nil && !errors.Is(err, generator.ErrNoLLM) {
		slog.Warn("Failed to index concept embedding", "concept", concept.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, successResponse{
		Message: fmt.Sprintf("Concept %s created successfully", concept.ID),
		Data:    map[string]any{"concept_id": concept.ID},
	})
}

func (s *Server) handleDeleteConcept(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}
	conceptID := chi.URLParam(r, "conceptID")

	if err := s.graph.RemoveConcept(r.Context(), conceptID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.generator.RemoveConceptEmbedding(r.Context(), conceptID); err != nil {
		slog.Warn("Failed to remove concept embedding", "concept", conceptID, "error", err)
	}

	writeJSON(w, http.StatusOK, successResponse{
		Message: fmt.Sprintf("Concept %s deleted successfully", conceptID),
	})
}

func (s *Server) handleConceptRelationships(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}
	conceptID := chi.URLParam(r, "conceptID")

	rels, err := s.graph.ConceptRelationships(r.Context(), conceptID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rels == nil {
		rels = []semantic.Relationship{}
	}

	label := ""
	if concept, err := s.graph.QueryConcept(r.Context(), conceptID); err == nil {
		label = concept.Label
	}

	writeJSON(w, http.StatusOK, relationshipsResponse{
		ID:            conceptID,
		Label:         label,
		Relationships: rels,
	})
}

// handleRelatedConcepts ranks indexed concepts by embedding similarity to
// the requested one.
func (s *Server) handleRelatedConcepts(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	concept, err := s.graph.QueryConcept(r.Context(), chi.URLParam(r, "conceptID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	related, err := s.generator.RelatedConcepts(r.Context(), concept)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if related == nil {
		related = []generator.RelatedConcept{}
	}

	writeJSON(w, http.StatusOK, related)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	stats, err := s.graph.Statistics(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if !s.requireGraph(w) {
		return
	}

	if err := s.graph.ClearGraph(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Message: "Database cleared successfully",
	})
}
