package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kadirpekel/ontomed/pkg/semantic"
	"github.com/kadirpekel/ontomed/pkg/vector"
)

// RelatedConcept is an indexed concept ranked by vector similarity.
type RelatedConcept struct {
	ID         string         `json:"id"`
	Similarity float32        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EmbedConcept renders a concept into embedding text, embeds it and stores
// the vector in the index under the concept id. Without a vector index the
// embedding is still computed and returned.
func (g *ContentGenerator) EmbedConcept(ctx context.Context, concept *semantic.Concept) (*EmbeddingResult, error) {
	if concept == nil || concept.ID == "" {
		return nil, fmt.Errorf("concept with a non-empty id is required")
	}

	var result *EmbeddingResult
	err := g.generate(ctx, g.embeddingTemplateID, modeEmbedding, func(ctx context.Context) error {
		text := g.conceptText(ctx, concept)

		embedding, err := g.llm.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to embed concept '%s': %w", concept.ID, err)
		}

		metadata := map[string]any{
			"label":       concept.Label,
			"type":        concept.Type,
			"description": concept.Description,
			"content":     text,
		}
		if err := g.index.Upsert(ctx, g.collection, concept.ID, embedding, metadata); err != nil {
			if !errors.Is(err, vector.ErrDisabled) {
				return fmt.Errorf("failed to index concept '%s': %w", concept.ID, err)
			}
			slog.Debug("Vector index disabled, embedding not stored", "concept", concept.ID)
		}

		result = &EmbeddingResult{
			TemplateID: g.embeddingTemplateID,
			Embedding:  embedding,
			Dimensions: len(embedding),
			Model:      g.llm.GetModelName(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveConceptEmbedding drops a concept's vector from the index. Removing
// an id that was never indexed, or running without an index, is not an
// error.
func (g *ContentGenerator) RemoveConceptEmbedding(ctx context.Context, conceptID string) error {
	if conceptID == "" {
		return fmt.Errorf("concept id is required")
	}

	if err := g.index.Delete(ctx, g.collection, conceptID); err != nil && !errors.Is(err, vector.ErrDisabled) {
		return fmt.Errorf("failed to remove concept '%s' from index: %w", conceptID, err)
	}
	return nil
}

// RelatedConcepts embeds a concept and returns indexed concepts whose
// similarity clears the configured threshold, most similar first. The
// concept itself is excluded.
func (g *ContentGenerator) RelatedConcepts(ctx context.Context, concept *semantic.Concept) ([]RelatedConcept, error) {
	if concept == nil || concept.ID == "" {
		return nil, fmt.Errorf("concept with a non-empty id is required")
	}
	if g.llm == nil {
		return nil, ErrNoLLM
	}

	embedding, err := g.llm.Embed(ctx, g.conceptText(ctx, concept))
	if err != nil {
		return nil, fmt.Errorf("failed to embed concept '%s': %w", concept.ID, err)
	}

	// One extra result so the concept's own entry cannot crowd out a
	// neighbor.
	results, err := g.index.Search(ctx, g.collection, embedding, g.topK+1)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	related := make([]RelatedConcept, 0, len(results))
	for _, result := range results {
		if result.ID == concept.ID {
			continue
		}
		if result.Score < g.similarityThreshold {
			continue
		}
		related = append(related, RelatedConcept{
			ID:         result.ID,
			Similarity: result.Score,
			Metadata:   result.Metadata,
		})
		if len(related) == g.topK {
			break
		}
	}

	return related, nil
}

// conceptText renders a concept into embedding input. The embedding
// template is preferred when loaded; otherwise the canonical pipe-joined
// form is used.
func (g *ContentGenerator) conceptText(ctx context.Context, concept *semantic.Concept) string {
	if _, err := g.store.Get(g.embeddingTemplateID); err == nil {
		if text, err := g.fill(ctx, g.embeddingTemplateID, conceptEmbeddingParams(concept)); err == nil {
			return text
		}
	}
	return canonicalConceptText(concept)
}

// conceptEmbeddingParams maps a concept onto the placeholder names the
// embedding template uses.
func conceptEmbeddingParams(concept *semantic.Concept) map[string]any {
	name := concept.Label
	if name == "" {
		name = concept.ID
	}
	properties := concept.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"concept_id":          concept.ID,
		"concept_name":        name,
		"concept_description": concept.Description,
		"concept_type":        concept.Type,
		"concept_properties":  properties,
		"related_terms":       strings.Join(relatedTerms(concept), ", "),
	}
}

// canonicalConceptText is the fallback embedding input when no embedding
// template is loaded: id, label, description and type joined with pipes,
// followed by any related terms.
func canonicalConceptText(concept *semantic.Concept) string {
	text := fmt.Sprintf("%s|%s|%s|%s", concept.ID, concept.Label, concept.Description, concept.Type)
	if terms := relatedTerms(concept); len(terms) > 0 {
		text += "|" + strings.Join(terms, "|")
	}
	return text
}

// relatedTerms flattens a concept's relationships into the terms that
// enrich its embedding: for each edge the target's readable name followed
// by the relationship type.
func relatedTerms(concept *semantic.Concept) []string {
	terms := make([]string, 0, len(concept.Relationships)*2)
	for _, rel := range concept.Relationships {
		if target := targetName(rel.Target); target != "" {
			terms = append(terms, target)
		}
		if rel.Type != "" {
			terms = append(terms, rel.Type)
		}
	}
	return terms
}

// targetName extracts the readable part of a relationship target, dropping
// any URI prefix before the last '#' or '/'.
func targetName(target string) string {
	if i := strings.LastIndex(target, "#"); i >= 0 {
		return target[i+1:]
	}
	if i := strings.LastIndex(target, "/"); i >= 0 {
		return target[i+1:]
	}
	return target
}
