package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is the interface implemented by all LLM backends. Calls block
// until the model responds or ctx is cancelled.
type Provider interface {
	// GenerateText produces free-form text for a prompt.
	GenerateText(ctx context.Context, prompt string, opts *Options) (string, Usage, error)

	// GenerateStructured produces a JSON object for a prompt. The provider
	// switches the model into JSON mode and parses the response, tolerating
	// markdown code fences around the payload.
	GenerateStructured(ctx context.Context, prompt string, opts *Options) (map[string]any, Usage, error)

	// AnalyzeText asks the model for a structured analysis of free text.
	AnalyzeText(ctx context.Context, text string) (map[string]any, error)

	// Embed returns the embedding vector for a text, using the configured
	// embedding model.
	Embed(ctx context.Context, text string) ([]float32, error)

	GetModelName() string

	GetMaxTokens() int

	GetTemperature() float64

	Close() error
}

// Options overrides generation parameters for a single request. A nil Options
// or a zero field falls back to the provider configuration.
type Options struct {
	Temperature *float64
	MaxTokens   int
}

// Usage reports token consumption for a single request as counted by the
// provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error is the error payload returned by OpenAI-compatible APIs.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// jsonInstruction is appended to prompts for structured requests so models
// without a native JSON mode still return parseable output.
const jsonInstruction = "\n\nRespond with a single valid JSON object."

// analyzeInstruction prefixes AnalyzeText prompts.
const analyzeInstruction = "Analyze the following text and provide a detailed analysis:\n"

// parseJSONObject extracts a JSON object from a model response. Models
// occasionally wrap output in markdown code fences or surrounding prose, so
// the parser takes the outermost brace pair before unmarshaling.
func parseJSONObject(response string) (map[string]any, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(response[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}

	return result, nil
}

// parseErrorResponse extracts error information from OpenAI-style error bodies
func parseErrorResponse(body []byte) *Error {
	var errorResponse struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error != nil {
		return errorResponse.Error
	}
	return nil
}

// resolveTemperature picks the per-request temperature override when present,
// otherwise the configured default.
func resolveTemperature(configured *float64, opts *Options) float64 {
	if opts != nil && opts.Temperature != nil {
		return *opts.Temperature
	}
	if configured != nil {
		return *configured
	}
	return 0.7
}

// resolveMaxTokens picks the per-request token limit override when present,
// otherwise the configured default.
func resolveMaxTokens(configured int, opts *Options) int {
	if opts != nil && opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return configured
}
