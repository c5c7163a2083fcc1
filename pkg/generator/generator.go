// Package generator drives content generation from stored templates. It
// fills a template into a prompt, optionally prefixes a style instruction
// derived from the sampling temperature, and hands the prompt to an LLM
// provider for text, structured or embedding output. Concept vectors
// produced here land in a vector index so related concepts can be found by
// similarity search.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/llms"
	"github.com/kadirpekel/ontomed/pkg/observability"
	"github.com/kadirpekel/ontomed/pkg/template"
	"github.com/kadirpekel/ontomed/pkg/utils"
	"github.com/kadirpekel/ontomed/pkg/vector"
)

const (
	// DefaultTemperature is the sampling temperature used when a request
	// does not set one.
	DefaultTemperature = 0.7

	// DefaultMaxTokens caps completion length when a request does not set
	// one.
	DefaultMaxTokens = 500

	// DefaultEmbeddingTemplateID names the template that renders a concept
	// into embedding input text.
	DefaultEmbeddingTemplateID = "concept_embedding"

	tracerName = "ontomed.generator"
)

// Prompts get a style instruction prefix when the requested temperature
// leaves the neutral band.
const (
	creativeInstruction = "Instruction: Be creative and varied in your responses.\n\n"
	conciseInstruction  = "Instruction: Be concise and direct in your responses.\n\n"
)

// Generation modes reported to metrics.
const (
	modeText       = "text"
	modeStructured = "structured"
	modeEmbedding  = "embedding"
)

// ErrNoLLM is returned by model-backed paths when the generator was built
// without an LLM provider. Pure template fills still work.
var ErrNoLLM = errors.New("no LLM provider configured")

// ContentGenerator renders templates and generates content from them.
//
// The zero dependencies degrade instead of failing construction: without an
// LLM every model-backed path returns ErrNoLLM, and without a vector index
// concept embeddings are computed but not stored.
type ContentGenerator struct {
	store  *template.Store
	filler *template.Filler
	llm    llms.Provider
	index  vector.Provider

	counter             *utils.TokenCounter
	collection          string
	similarityThreshold float32
	topK                int
	embeddingTemplateID string
}

// GeneratorOption configures a ContentGenerator at construction time.
type GeneratorOption func(*ContentGenerator)

// WithLLM sets the provider used for text, structured and embedding
// generation.
func WithLLM(provider llms.Provider) GeneratorOption {
	return func(g *ContentGenerator) {
		g.llm = provider
	}
}

// WithVectorIndex sets the vector store that EmbedConcept writes to and
// RelatedConcepts searches. Collection name, similarity threshold and
// result count come from cfg when present.
func WithVectorIndex(provider vector.Provider, cfg *config.VectorConfig) GeneratorOption {
	return func(g *ContentGenerator) {
		if provider != nil {
			g.index = provider
		}
		if cfg == nil {
			return
		}
		if cfg.Collection != "" {
			g.collection = cfg.Collection
		}
		if cfg.SimilarityThreshold > 0 {
			g.similarityThreshold = cfg.SimilarityThreshold
		}
		if cfg.TopK > 0 {
			g.topK = cfg.TopK
		}
	}
}

// WithEmbeddingTemplate overrides the template used to render concepts into
// embedding input text.
func WithEmbeddingTemplate(templateID string) GeneratorOption {
	return func(g *ContentGenerator) {
		if templateID != "" {
			g.embeddingTemplateID = templateID
		}
	}
}

// NewContentGenerator creates a generator over a template store.
func NewContentGenerator(store *template.Store, opts ...GeneratorOption) (*ContentGenerator, error) {
	if store == nil {
		return nil, fmt.Errorf("template store is required")
	}

	g := &ContentGenerator{
		store:               store,
		filler:              template.NewFiller(store),
		index:               vector.NilProvider{},
		collection:          "concepts",
		similarityThreshold: 0.7,
		topK:                5,
		embeddingTemplateID: DefaultEmbeddingTemplateID,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	if g.llm != nil {
		if counter, err := utils.NewTokenCounter(g.llm.GetModelName()); err == nil {
			g.counter = counter
		}
	}

	return g, nil
}

// Options carries per-request generation parameters.
type Options struct {
	// Temperature overrides the provider's sampling temperature. Nil keeps
	// the provider default.
	Temperature *float64

	// MaxTokens caps the completion length. Zero falls back to
	// DefaultMaxTokens.
	MaxTokens int
}

// Option adjusts generation parameters for a single request.
type Option func(*Options)

// WithTemperature sets the sampling temperature for one request.
func WithTemperature(temperature float64) Option {
	return func(o *Options) {
		o.Temperature = &temperature
	}
}

// WithMaxTokens caps the completion length for one request.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func buildOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

// temperature resolves the effective sampling temperature for the style
// instruction decision.
func (o *Options) temperature() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

// llmOptions converts request options into provider options.
func (o *Options) llmOptions() *llms.Options {
	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &llms.Options{
		Temperature: o.Temperature,
		MaxTokens:   maxTokens,
	}
}

// applyStyle prefixes a prompt with a style instruction when the
// temperature leaves the neutral band.
func applyStyle(prompt string, temperature float64) string {
	switch {
	case temperature > 0.7:
		return creativeInstruction + prompt
	case temperature < 0.3:
		return conciseInstruction + prompt
	default:
		return prompt
	}
}

// TextResult is the outcome of a text generation request.
type TextResult struct {
	TemplateID   string     `json:"template_id"`
	Content      string     `json:"content"`
	Model        string     `json:"model,omitempty"`
	PromptTokens int        `json:"prompt_tokens"`
	Usage        llms.Usage `json:"usage"`
}

// StructuredResult is the outcome of a structured generation request.
type StructuredResult struct {
	TemplateID   string         `json:"template_id"`
	Content      map[string]any `json:"content"`
	Model        string         `json:"model,omitempty"`
	PromptTokens int            `json:"prompt_tokens"`
	Usage        llms.Usage     `json:"usage"`
}

// EmbeddingResult is the outcome of an embedding request.
type EmbeddingResult struct {
	TemplateID string    `json:"template_id"`
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
	Model      string    `json:"model,omitempty"`
}

// Generate fills a template into its final text without calling the model.
// It works without an LLM provider and is the path behind the fill
// endpoint. Sampling options are accepted for symmetry with the
// model-backed paths and have no effect on a pure fill.
func (g *ContentGenerator) Generate(ctx context.Context, templateID string, params map[string]any, _ ...Option) (string, error) {
	return g.fill(ctx, templateID, params)
}

// GenerateText fills a template and sends the rendered prompt to the model.
// Temperatures above 0.7 prefix the prompt with a creative style
// instruction, temperatures below 0.3 with a concise one.
func (g *ContentGenerator) GenerateText(ctx context.Context, templateID string, params map[string]any, opts ...Option) (*TextResult, error) {
	options := buildOptions(opts)

	var result *TextResult
	err := g.generate(ctx, templateID, modeText, func(ctx context.Context) error {
		prompt, err := g.fill(ctx, templateID, params)
		if err != nil {
			return err
		}
		prompt = applyStyle(prompt, options.temperature())

		content, usage, err := g.llm.GenerateText(ctx, prompt, options.llmOptions())
		if err != nil {
			return fmt.Errorf("text generation failed for template '%s': %w", templateID, err)
		}

		result = &TextResult{
			TemplateID:   templateID,
			Content:      content,
			Model:        g.llm.GetModelName(),
			PromptTokens: g.countTokens(prompt),
			Usage:        usage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateStructured fills a template and asks the model for a JSON object.
// The same temperature style rules as GenerateText apply.
func (g *ContentGenerator) GenerateStructured(ctx context.Context, templateID string, params map[string]any, opts ...Option) (*StructuredResult, error) {
	options := buildOptions(opts)

	var result *StructuredResult
	err := g.generate(ctx, templateID, modeStructured, func(ctx context.Context) error {
		prompt, err := g.fill(ctx, templateID, params)
		if err != nil {
			return err
		}
		prompt = applyStyle(prompt, options.temperature())

		content, usage, err := g.llm.GenerateStructured(ctx, prompt, options.llmOptions())
		if err != nil {
			return fmt.Errorf("structured generation failed for template '%s': %w", templateID, err)
		}

		result = &StructuredResult{
			TemplateID:   templateID,
			Content:      content,
			Model:        g.llm.GetModelName(),
			PromptTokens: g.countTokens(prompt),
			Usage:        usage,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EmbedTemplate fills a template and embeds the rendered text.
func (g *ContentGenerator) EmbedTemplate(ctx context.Context, templateID string, params map[string]any) (*EmbeddingResult, error) {
	var result *EmbeddingResult
	err := g.generate(ctx, templateID, modeEmbedding, func(ctx context.Context) error {
		prompt, err := g.fill(ctx, templateID, params)
		if err != nil {
			return err
		}

		embedding, err := g.llm.Embed(ctx, prompt)
		if err != nil {
			return fmt.Errorf("embedding failed for template '%s': %w", templateID, err)
		}

		result = &EmbeddingResult{
			TemplateID: templateID,
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

// fill resolves a template against parameters, tracing and counting the
// fill.
func (g *ContentGenerator) fill(ctx context.Context, templateID string, params map[string]any) (string, error) {
	tracer := observability.GetTracer(tracerName)
	ctx, span := tracer.Start(ctx, observability.SpanTemplateFill,
		trace.WithAttributes(
			attribute.String(observability.AttrTemplateID, templateID),
		))
	defer span.End()

	prompt, err := g.filler.Fill(templateID, params)
	observability.GetGlobalMetrics().RecordTemplateFill(ctx, templateID, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetStatus(codes.Ok, "success")
	return prompt, nil
}

// generate wraps a model-backed path with tracing and metrics.
func (g *ContentGenerator) generate(ctx context.Context, templateID, mode string, fn func(ctx context.Context) error) error {
	if g.llm == nil {
		return ErrNoLLM
	}

	tracer := observability.GetTracer(tracerName)
	ctx, span := tracer.Start(ctx, observability.SpanGeneration,
		trace.WithAttributes(
			attribute.String(observability.AttrTemplateID, templateID),
			attribute.String(observability.AttrGenerateMode, mode),
		))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.GetGlobalMetrics().RecordGeneration(ctx, templateID, mode, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// countTokens counts prompt tokens locally, falling back to a character
// estimate when no tokenizer matches the model.
func (g *ContentGenerator) countTokens(prompt string) int {
	if g.counter != nil {
		return g.counter.Count(prompt)
	}
	return utils.EstimateTokens(prompt)
}

// ConceptParams maps a concept payload onto the parameter names generation
// templates conventionally use: concept_name, concept_description,
// concept_type and concept_properties. Both "name" and "label" are accepted
// for the display name, with the id as last resort.
func ConceptParams(concept map[string]any) map[string]any {
	name := stringValue(concept["name"])
	if name == "" {
		name = stringValue(concept["label"])
	}
	if name == "" {
		name = stringValue(concept["id"])
	}

	properties, _ := concept["properties"].(map[string]any)
	if properties == nil {
		properties = map[string]any{}
	}

	return map[string]any{
		"concept_name":        name,
		"concept_description": stringValue(concept["description"]),
		"concept_type":        stringValue(concept["type"]),
		"concept_properties":  properties,
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
