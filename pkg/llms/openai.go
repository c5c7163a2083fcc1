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

func createHTTPClient(cfg *config.LLMConfig) *httpclient.Client {
	return httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout.Duration(),
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)
}

type OpenAIProvider struct {
	config     *config.LLMConfig
	httpClient *httpclient.Client
	baseURL    string
}

type OpenAIRequest struct {
	Model          string                `json:"model"`
	Messages       []OpenAIMessage       `json:"messages"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *OpenAIResponseFormat `json:"response_format,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *Error   `json:"error,omitempty"`
}

type Choice struct {
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIResponseFormat struct {
	Type string `json:"type"`
}

type OpenAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type OpenAIEmbedding struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type OpenAIEmbedResponse struct {
	Object string            `json:"object"`
	Data   []OpenAIEmbedding `json:"data"`
	Model  string            `json:"model"`
	Usage  Usage             `json:"usage"`
	Error  *Error            `json:"error,omitempty"`
}

func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	cfg := &config.LLMConfig{
		Provider: config.LLMProviderOpenAI,
		Model:    model,
		APIKey:   apiKey,
	}
	cfg.SetDefaults()

	provider, _ := NewOpenAIProviderFromConfig(cfg)
	return provider
}

func NewOpenAIProviderFromConfig(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: cfg.Timeout.Duration(),
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	)

	return &OpenAIProvider{
		config:     cfg,
		httpClient: httpClient,
		baseURL:    baseURL,
	}, nil
}

func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, opts *Options) (string, Usage, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.Model),
			attribute.String("provider", "openai"),
		),
	)
	defer span.End()

	request := p.buildRequest(prompt, opts)

	response, err := p.makeRequest(ctx, request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, err)
		return "", Usage{}, err
	}

	if response.Error != nil {
		apiErr := fmt.Errorf("OpenAI API error: %s", response.Error.Message)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, apiErr)
		return "", Usage{}, apiErr
	}

	if len(response.Choices) == 0 {
		noChoiceErr := fmt.Errorf("no response choices returned")
		span.RecordError(noChoiceErr)
		span.SetStatus(codes.Error, "no choices")
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, noChoiceErr)
		return "", Usage{}, noChoiceErr
	}

	usage := response.Usage

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensIn, usage.PromptTokens),
		attribute.Int(observability.AttrLLMTokensOut, usage.CompletionTokens),
	)
	span.SetStatus(codes.Ok, "success")

	observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, usage.PromptTokens, usage.CompletionTokens, nil)

	return response.Choices[0].Message.Content, usage, nil
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, prompt string, opts *Options) (map[string]any, Usage, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.Model),
			attribute.String("provider", "openai"),
			attribute.Bool("structured", true),
		),
	)
	defer span.End()

	request := p.buildRequest(prompt+jsonInstruction, opts)
	request.ResponseFormat = &OpenAIResponseFormat{Type: "json_object"}

	response, err := p.makeRequest(ctx, request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, err)
		return nil, Usage{}, err
	}

	if response.Error != nil {
		apiErr := fmt.Errorf("OpenAI API error: %s", response.Error.Message)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, apiErr)
		return nil, Usage{}, apiErr
	}

	if len(response.Choices) == 0 {
		noChoiceErr := fmt.Errorf("no response choices returned")
		span.RecordError(noChoiceErr)
		span.SetStatus(codes.Error, "no choices")
		observability.GetGlobalMetrics().RecordLLMCall(ctx, p.config.Model, duration, 0, 0, noChoiceErr)
		return nil, Usage{}, noChoiceErr
	}

	usage := response.Usage

	result, err := parseJSONObject(response.Choices[0].Message.Content)
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

func (p *OpenAIProvider) AnalyzeText(ctx context.Context, text string) (map[string]any, error) {
	result, _, err := p.GenerateStructured(ctx, analyzeInstruction+text, nil)
	return result, err
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("ontomed.llm")
	ctx, span := tracer.Start(ctx, observability.SpanEmbedding,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.EmbeddingModel),
			attribute.String("provider", "openai"),
		),
	)
	defer span.End()

	request := OpenAIEmbedRequest{
		Model: p.config.EmbeddingModel,
		Input: []string{text},
	}

	body, err := p.postJSON(ctx, "/embeddings", request)
	duration := time.Since(startTime)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, err)
		return nil, err
	}

	var response OpenAIEmbedResponse
	if err := json.Unmarshal(body, &response); err != nil {
		unmarshalErr := fmt.Errorf("failed to unmarshal response: %w", err)
		span.RecordError(unmarshalErr)
		span.SetStatus(codes.Error, unmarshalErr.Error())
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, unmarshalErr)
		return nil, unmarshalErr
	}

	if response.Error != nil {
		apiErr := fmt.Errorf("OpenAI API error: %s", response.Error.Message)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, apiErr)
		return nil, apiErr
	}

	if len(response.Data) == 0 {
		emptyErr := fmt.Errorf("received empty embedding from OpenAI")
		span.RecordError(emptyErr)
		span.SetStatus(codes.Error, "empty embedding")
		observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, emptyErr)
		return nil, emptyErr
	}

	span.SetStatus(codes.Ok, "success")
	observability.GetGlobalMetrics().RecordEmbedding(ctx, p.config.EmbeddingModel, duration, nil)

	return response.Data[0].Embedding, nil
}

func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *OpenAIProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildRequest(prompt string, opts *Options) OpenAIRequest {
	request := OpenAIRequest{
		Model: p.config.Model,
		Messages: []OpenAIMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: resolveTemperature(p.config.Temperature, opts),
	}

	if maxTokens := resolveMaxTokens(p.config.MaxTokens, opts); maxTokens > 0 {
		request.MaxTokens = &maxTokens
	}

	return request
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, request OpenAIRequest) (*OpenAIResponse, error) {
	body, err := p.postJSON(ctx, "/chat/completions", request)
	if err != nil {
		return nil, err
	}

	var response OpenAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

func (p *OpenAIProvider) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
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

	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	// The retrying client can return both a response and an error for non-2xx
	// status codes, so inspect the response first.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			errorBody := string(body)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			if retryErr, ok := httpclient.AsRetryable(err); ok {
				// Keep the chain intact so the API layer can surface the
				// provider's backoff to its own clients.
				if apiErr := parseErrorResponse(body); apiErr != nil {
					return nil, fmt.Errorf("%s: %w", apiErr.Message, retryErr)
				}
				return nil, fmt.Errorf("request gave up after retries: %w", retryErr)
			}
			if apiErr := parseErrorResponse(body); apiErr != nil {
				return nil, fmt.Errorf("API request failed with status %d: %s (type: %s, code: %s)",
					resp.StatusCode, apiErr.Message, apiErr.Type, apiErr.Code)
			}
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, errorBody)
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
