// Package vector provides embedded vector storage for concept similarity
// search.
package vector

import (
	"context"
	"errors"
)

// ErrDisabled is returned for write operations when no vector index is
// configured.
var ErrDisabled = errors.New("vector index is disabled")

// Provider stores embedding vectors grouped into named collections and
// answers nearest-neighbour queries over them. Embeddings are computed
// externally and passed in pre-computed.
type Provider interface {
	// Name identifies the provider implementation.
	Name() string

	// Upsert adds or replaces a document and its embedding.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// Search returns the topK most similar documents, best first.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Delete removes a document by id.
	Delete(ctx context.Context, collection string, id string) error

	// Count reports how many documents a collection holds.
	Count(ctx context.Context, collection string) (int, error)

	// Close flushes state and releases resources.
	Close() error
}

// Result is a single similarity search hit.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// NilProvider is used when no vector section is configured. Searches return
// no results and writes fail with ErrDisabled.
type NilProvider struct{}

func (NilProvider) Name() string {
	return "nil"
}

func (NilProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	return ErrDisabled
}

func (NilProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	return nil, nil
}

func (NilProvider) Delete(ctx context.Context, collection string, id string) error {
	return ErrDisabled
}

func (NilProvider) Count(ctx context.Context, collection string) (int, error) {
	return 0, nil
}

func (NilProvider) Close() error {
	return nil
}

// Ensure NilProvider implements Provider.
var _ Provider = NilProvider{}
