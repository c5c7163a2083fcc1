package semantic

import (
	"testing"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphStoreFromConfig(t *testing.T) {
	store, err := NewGraphStoreFromConfig(&config.GraphConfig{Provider: config.GraphProviderMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewGraphStoreFromConfig(&config.GraphConfig{
		Provider: config.GraphProviderBlazegraph,
		BaseURL:  "http://localhost:9999/blazegraph",
	})
	require.NoError(t, err)
	assert.IsType(t, &BlazegraphStore{}, store)

	// Empty provider falls back to memory.
	store, err = NewGraphStoreFromConfig(&config.GraphConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNewGraphStoreFromConfig_Errors(t *testing.T) {
	_, err := NewGraphStoreFromConfig(nil)
	assert.Error(t, err)

	_, err = NewGraphStoreFromConfig(&config.GraphConfig{Provider: "neo4j"})
	assert.ErrorContains(t, err, "unsupported graph provider")

	_, err = NewGraphStoreFromConfig(&config.GraphConfig{Provider: config.GraphProviderBlazegraph})
	assert.ErrorContains(t, err, "base_url")
}

func TestGraphRegistry(t *testing.T) {
	reg := NewGraphRegistry()

	store, err := reg.CreateGraphStoreFromConfig("default", &config.GraphConfig{Provider: config.GraphProviderMemory})
	require.NoError(t, err)
	require.NotNil(t, store)

	got, err := reg.GetGraphStore("default")
	require.NoError(t, err)
	assert.Same(t, store, got)

	_, err = reg.GetGraphStore("missing")
	assert.Error(t, err)
}

func TestGraphRegistry_Validation(t *testing.T) {
	reg := NewGraphRegistry()

	assert.Error(t, reg.RegisterGraphStore("", NewMemoryStore()))
	assert.Error(t, reg.RegisterGraphStore("default", nil))

	_, err := reg.CreateGraphStoreFromConfig("", &config.GraphConfig{})
	assert.Error(t, err)
}
