package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// templateSummary is one row of the template listing.
type templateSummary struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type fillRequest struct {
	Parameters map[string]any `json:"parameters"`
}

type fillResponse struct {
	TemplateID     string `json:"template_id"`
	FilledTemplate string `json:"filled_template"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	defs := s.store.List()

	summaries := make([]templateSummary, 0, len(defs))
	for _, def := range defs {
		summaries = append(summaries, templateSummary{
			TemplateID:  def.TemplateID,
			Name:        def.Name,
			Description: def.Description,
		})
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.Get(chi.URLParam(r, "templateID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, def)
}

// handleFillTemplate resolves a template against the supplied parameters.
// Fills are permissive; unresolved placeholders stay in the output.
func (s *Server) handleFillTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var req fillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}

	filled, err := s.generator.Generate(r.Context(), templateID, req.Parameters)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fillResponse{
		TemplateID:     templateID,
		FilledTemplate: filled,
	})
}
