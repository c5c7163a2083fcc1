package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/ontomed/pkg/llms"
	"github.com/kadirpekel/ontomed/pkg/template"
)

const explanationYAML = `template_id: concept_explanation
description: Explains a medical concept
type: text
template: "Explain the concept {{concept_name}} ({{concept_type}}) to a patient."
parameters:
  concept_name:
    type: string
    required: true
  concept_type:
    type: string
`

const embeddingYAML = `template_id: concept_embedding
description: Renders a concept for embedding
type: embedding
template: "{{concept_name}}: {{concept_description}} [{{concept_type}}] related: {{related_terms}}"
parameters:
  concept_name:
    type: string
    required: true
  concept_description:
    type: string
  concept_type:
    type: string
  related_terms:
    type: string
`

// mockLLM records every prompt it receives and answers with canned output.
type mockLLM struct {
	mu        sync.Mutex
	prompts   []string
	lastOpts  *llms.Options
	textOut   string
	textErr   error
	jsonOut   map[string]any
	embedding []float32
	embedErr  error
}

func (m *mockLLM) GenerateText(ctx context.Context, prompt string, opts *llms.Options) (string, llms.Usage, error) {
	m.record(prompt, opts)
	if m.textErr != nil {
		return "", llms.Usage{}, m.textErr
	}
	out := m.textOut
	if out == "" {
		out = "generated text"
	}
	return out, llms.Usage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18}, nil
}

func (m *mockLLM) GenerateStructured(ctx context.Context, prompt string, opts *llms.Options) (map[string]any, llms.Usage, error) {
	m.record(prompt, opts)
	out := m.jsonOut
	if out == nil {
		out = map[string]any{"summary": "ok"}
	}
	return out, llms.Usage{TotalTokens: 9}, nil
}

func (m *mockLLM) AnalyzeText(ctx context.Context, text string) (map[string]any, error) {
	return map[string]any{"analysis": text}, nil
}

func (m *mockLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	m.record(text, nil)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockLLM) GetModelName() string    { return "mock-model" }
func (m *mockLLM) GetMaxTokens() int       { return 1000 }
func (m *mockLLM) GetTemperature() float64 { return 0.7 }
func (m *mockLLM) Close() error            { return nil }

func (m *mockLLM) record(prompt string, opts *llms.Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if opts != nil {
		m.lastOpts = opts
	}
}

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func newTestStore(t *testing.T, files map[string]string) *template.Store {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	store := template.NewStore()
	require.NoError(t, store.LoadDir(dir))
	return store
}

func newTestGenerator(t *testing.T, llm llms.Provider) *ContentGenerator {
	t.Helper()
	store := newTestStore(t, map[string]string{"concept_explanation.yaml": explanationYAML})
	gen, err := NewContentGenerator(store, WithLLM(llm))
	require.NoError(t, err)
	return gen
}

func explainParams() map[string]any {
	return map[string]any{
		"concept_name": "Hypertension",
		"concept_type": "Disease",
	}
}

func TestNewContentGenerator_RequiresStore(t *testing.T) {
	_, err := NewContentGenerator(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template store")
}

func TestGenerate_FillsTemplate(t *testing.T) {
	gen := newTestGenerator(t, nil)

	out, err := gen.Generate(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.Equal(t, "Explain the concept Hypertension (Disease) to a patient.", out)
}

func TestGenerate_NotFound(t *testing.T) {
	gen := newTestGenerator(t, nil)

	_, err := gen.Generate(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.True(t, template.IsNotFound(err))
}

func TestGenerate_IgnoresSamplingOptions(t *testing.T) {
	gen := newTestGenerator(t, nil)

	out, err := gen.Generate(context.Background(), "concept_explanation", explainParams(),
		WithTemperature(0.9), WithMaxTokens(16))
	require.NoError(t, err)
	assert.Equal(t, "Explain the concept Hypertension (Disease) to a patient.", out)
}

func TestGenerateText(t *testing.T) {
	llm := &mockLLM{textOut: "Hypertension is high blood pressure."}
	gen := newTestGenerator(t, llm)

	result, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.Equal(t, "concept_explanation", result.TemplateID)
	assert.Equal(t, "Hypertension is high blood pressure.", result.Content)
	assert.Equal(t, "mock-model", result.Model)
	assert.Equal(t, 18, result.Usage.TotalTokens)
	assert.Positive(t, result.PromptTokens)
	assert.Equal(t, "Explain the concept Hypertension (Disease) to a patient.", llm.lastPrompt())
}

func TestGenerateText_NoLLM(t *testing.T) {
	gen := newTestGenerator(t, nil)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLLM)
}

func TestGenerateText_CreativeInstruction(t *testing.T) {
	llm := &mockLLM{}
	gen := newTestGenerator(t, llm)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams(),
		WithTemperature(0.9))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(llm.lastPrompt(), "Instruction: Be creative"))
	assert.Contains(t, llm.lastPrompt(), "Explain the concept Hypertension")
	require.NotNil(t, llm.lastOpts.Temperature)
	assert.InDelta(t, 0.9, *llm.lastOpts.Temperature, 1e-9)
}

func TestGenerateText_ConciseInstruction(t *testing.T) {
	llm := &mockLLM{}
	gen := newTestGenerator(t, llm)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams(),
		WithTemperature(0.2))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(llm.lastPrompt(), "Instruction: Be concise"))
}

func TestGenerateText_NeutralTemperature(t *testing.T) {
	llm := &mockLLM{}
	gen := newTestGenerator(t, llm)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.lastPrompt(), "Explain the concept"))

	_, err = gen.GenerateText(context.Background(), "concept_explanation", explainParams(),
		WithTemperature(0.5))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.lastPrompt(), "Explain the concept"))
}

func TestGenerateText_DefaultMaxTokens(t *testing.T) {
	llm := &mockLLM{}
	gen := newTestGenerator(t, llm)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, llm.lastOpts.MaxTokens)

	_, err = gen.GenerateText(context.Background(), "concept_explanation", explainParams(),
		WithMaxTokens(64))
	require.NoError(t, err)
	assert.Equal(t, 64, llm.lastOpts.MaxTokens)
}

func TestGenerateText_PropagatesError(t *testing.T) {
	llm := &mockLLM{textErr: errors.New("model unavailable")}
	gen := newTestGenerator(t, llm)

	_, err := gen.GenerateText(context.Background(), "concept_explanation", explainParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestGenerateStructured(t *testing.T) {
	llm := &mockLLM{jsonOut: map[string]any{"name": "Hypertension", "severity": "moderate"}}
	gen := newTestGenerator(t, llm)

	result, err := gen.GenerateStructured(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.Equal(t, "Hypertension", result.Content["name"])
	assert.Equal(t, "moderate", result.Content["severity"])
	assert.Equal(t, "mock-model", result.Model)
}

func TestEmbedTemplate(t *testing.T) {
	llm := &mockLLM{embedding: []float32{0.5, 0.5}}
	gen := newTestGenerator(t, llm)

	result, err := gen.EmbedTemplate(context.Background(), "concept_explanation", explainParams())
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, result.Embedding)
	assert.Equal(t, 2, result.Dimensions)
	assert.Equal(t, "Explain the concept Hypertension (Disease) to a patient.", llm.lastPrompt())
}

func TestConceptParams(t *testing.T) {
	params := ConceptParams(map[string]any{
		"id":          "hypertension",
		"name":        "Hypertension",
		"description": "High blood pressure",
		"type":        "Disease",
		"properties":  map[string]any{"icd10": "I10"},
	})

	assert.Equal(t, "Hypertension", params["concept_name"])
	assert.Equal(t, "High blood pressure", params["concept_description"])
	assert.Equal(t, "Disease", params["concept_type"])
	assert.Equal(t, map[string]any{"icd10": "I10"}, params["concept_properties"])
}

func TestConceptParams_FallsBackToLabelAndID(t *testing.T) {
	params := ConceptParams(map[string]any{"id": "asthma", "label": "Asthma"})
	assert.Equal(t, "Asthma", params["concept_name"])

	params = ConceptParams(map[string]any{"id": "asthma"})
	assert.Equal(t, "asthma", params["concept_name"])
	assert.Equal(t, map[string]any{}, params["concept_properties"])
}
