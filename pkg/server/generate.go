package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/ontomed/pkg/generator"
)

// generateRequest is the payload for the generate endpoints. Template
// parameters may be given directly or derived from a concept; explicit
// parameters win on collision.
type generateRequest struct {
	Concept     map[string]any `json:"concept,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
}

// params builds the fill parameters. Concept fields are exposed both under
// their own names and under the concept_* aliases, so templates written
// against either convention resolve.
func (req *generateRequest) params() map[string]any {
	params := map[string]any{}
	if len(req.Concept) > 0 {
		for k, v := range generator.ConceptParams(req.Concept) {
			params[k] = v
		}
		for k, v := range req.Concept {
			if _, exists := params[k]; !exists {
				params[k] = v
			}
		}
	}
	for k, v := range req.Parameters {
		params[k] = v
	}
	return params
}

func (req *generateRequest) options() []generator.Option {
	var opts []generator.Option
	if req.Temperature != nil {
		opts = append(opts, generator.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, generator.WithMaxTokens(req.MaxTokens))
	}
	return opts
}

func (s *Server) handleGenerateText(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}

	result, err := s.generator.GenerateText(r.Context(), templateID, req.params(), req.options()...)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateStructured(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}

	result, err := s.generator.GenerateStructured(r.Context(), templateID, req.params(), req.options()...)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateEmbedding(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")

	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %s", err)
		return
	}

	result, err := s.generator.EmbedTemplate(r.Context(), templateID, req.params())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
