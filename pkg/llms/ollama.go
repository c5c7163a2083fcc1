package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/ontomed/pkg/config"
	"github.com/kadirpekel/ontomed/pkg/httpclient"
	"github.com/kadirpekel/ontomed/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type OllamaProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
	baseURL    string
}

type OllamaRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   any             `json:"format,omitempty"` // "json" string or schema object
	Options  *OllamaOptions  `json:"options,omitempty"`
}

type OllamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OllamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens
}

type OllamaResponse struct {
	Model           string        `json:"model"`
	CreatedAt       string        `json:"created_at"`
	Message         OllamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error,omitempty"`
}

type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func NewOllamaProviderFromConfig(cfg *config.LLMConfig) (*OllamaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &OllamaProvider{
		config:     cfg,
		httpClient: createHTTPClient(cfg),
		baseURL:    baseURL,
	}, nil
}

func (p *OllamaProvider) GenerateText(ctx context.Context, prompt string, opts *Options) (string, Usage, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.Model),
			attribute.String("provider", "ollama"),
		),
	)
	defer span.End()

	request := p.buildRequest(prompt, opts, nil)

	response, err := p.makeRequest(ctx, request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, err)
		return "", Usage{}, err
	}

	if response.Error != "" {
		apiErr := fmt.Errorf("Ollama API error: %s", response.Error)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error)
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, apiErr)
		return "", Usage{}, apiErr
	}

	usage := Usage{
		PromptTokens:     response.PromptEvalCount,
		CompletionTokens: response.EvalCount,
		TotalTokens:      response.PromptEvalCount + response.EvalCount,
	}

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensIn, usage.PromptTokens),
		attribute.Int(observability.AttrLLMTokensOut, usage.CompletionTokens),
	)
	span.SetStatus(codes.Ok, "success")

	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, usage.PromptTokens, usage.CompletionTokens, nil)

	return response.Message.Content, usage, nil
}

func (p *OllamaProvider) GenerateStructured(ctx context.Context, prompt string, opts *Options) (map[string]any, Usage, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.Model),
			attribute.String("provider", "ollama"),
			attribute.Bool("structured", true),
		),
	)
	defer span.End()

	request := p.buildRequest(prompt+jsonInstruction, opts, "json")

	response, err := p.makeRequest(ctx, request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, err)
		return nil, Usage{}, err
	}

	if response.Error != "" {
		apiErr := fmt.Errorf("Ollama API error: %s", response.Error)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error)
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, apiErr)
		return nil, Usage{}, apiErr
	}

	usage := Usage{
		PromptTokens:     response.PromptEvalCount,
		CompletionTokens: response.EvalCount,
		TotalTokens:      response.PromptEvalCount + response.EvalCount,
	}

	result, err := parseJSONObject(response.Message.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, usage.PromptTokens, usage.CompletionTokens, err)
		return nil, usage, err
	}

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensIn, usage.PromptTokens),
		attribute.Int(observability.AttrLLMTokensOut, usage.CompletionTokens),
	)
	span.SetStatus(codes.Ok, "success")

	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, usage.PromptTokens, usage.CompletionTokens, nil)

	return result, usage, nil
}

func (p *OllamaProvider) AnalyzeText(ctx context.Context, text string) (map[string]any, error) {
	result, _, err := p.GenerateStructured(ctx, analyzeInstruction+text, nil)
	return result, err
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanEmbedding,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.EmbeddingModel),
			attribute.String("provider", "ollama"),
		),
	)
	defer span.End()

	request := OllamaEmbedRequest{
		Model:  p.config.EmbeddingModel,
		Prompt: text,
	}

	body, err := p.postJSON(ctx, "/api/embeddings", request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, err)
		return nil, err
	}

	var response OllamaEmbedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		unmarshalErr := fmt.Errorf("failed to unmarshal response: %w", err)
		span.RecordError(unmarshalErr)
		span.SetStatus(codes.Error, unmarshalErr.Error())
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, unmarshalErr)
		return nil, unmarshalErr
	}

	if response.Error != "" {
		apiErr := fmt.Errorf("Ollama API error: %s", response.Error)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error)
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, apiErr)
		return nil, apiErr
	}

	if len(response.Embedding) == 0 {
		emptyErr := fmt.Errorf("received empty embedding from Ollama")
		span.RecordError(emptyErr)
		span.SetStatus(codes.Error, "empty embedding")
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, emptyErr)
		return nil, emptyErr
	}

	span.SetStatus(codes.Ok, "success")
	observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, nil)

	return response.Embedding, nil
}

func (p *OllamaProvider) GetModelName() string {
	return p.config.Model
}

func (p *OllamaProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *OllamaProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *OllamaProvider) Close() error {
	return nil
}

func (p *OllamaProvider) buildRequest(prompt string, opts *Options, format any) OllamaRequest {
	request := OllamaRequest{
		Model: p.config.Model,
		Messages: []OllamaMessage{
			{Role: "user", Content: prompt},
		},
		Stream: false,
		Format: format,
		Options: &OllamaOptions{
			Temperature: resolveTemperature(p.config.Temperature, opts),
		},
	}

	if maxTokens := resolveMaxTokens(p.config.MaxTokens, opts); maxTokens > 0 {
		request.Options.NumPredict = maxTokens
	}

	return request
}

func (p *OllamaProvider) makeRequest(ctx context.Context, request OllamaRequest) (*OllamaResponse, error) {
	body, err := p.postJSON(ctx, "/api/chat", request)
	if err != nil {
		return nil, err
	}

	var response OllamaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

func (p *OllamaProvider) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+path, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			if retryErr, ok := httpclient.AsRetryable(err); ok {
				return nil, fmt.Errorf("Ollama request gave up after retries: %w", retryErr)
			}
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("Ollama API request failed with status %d: %s", resp.StatusCode, string(body))
		}
	}

	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
