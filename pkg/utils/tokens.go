// Package utils provides utility functions shared across OntoMed.
package utils

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter handles accurate token counting per model
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	// Cache encodings to avoid repeated initialization
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter creates a counter for a specific model
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()

	if exists {
		return &TokenCounter{
			encoding: cached,
			model:    model,
		}, nil
	}

	// Try to get encoding for the model
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base (GPT-4, GPT-3.5-turbo, embedding models)
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	// Cache the encoding
	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{
		encoding: encoding,
		model:    model,
	}, nil
}

// Count returns the accurate token count for text
func (tc *TokenCounter) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// CountPrompt counts the tokens of a system/user prompt pair including the
// per-message overhead of the OpenAI chat format.
// Based on OpenAI's token counting format:
// https://github.com/openai/openai-cookbook/blob/main/examples/How_to_count_tokens_with_tiktoken.ipynb
func (tc *TokenCounter) CountPrompt(system, user string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	// Message format overhead: <|start|>role|message<|end|>
	tokensPerMessage := 3

	totalTokens := 0
	if system != "" {
		totalTokens += tokensPerMessage
		totalTokens += len(tc.encoding.Encode("system", nil, nil))
		totalTokens += len(tc.encoding.Encode(system, nil, nil))
	}
	totalTokens += tokensPerMessage
	totalTokens += len(tc.encoding.Encode("user", nil, nil))
	totalTokens += len(tc.encoding.Encode(user, nil, nil))

	// Every reply is primed with <|start|>assistant<|message|>
	totalTokens += 3

	return totalTokens
}

// GetModel returns the model name this counter is configured for
func (tc *TokenCounter) GetModel() string {
	return tc.model
}

// EstimateTokens provides a rough token estimation for when an accurate
// counter is not available. Roughly 4 characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}
