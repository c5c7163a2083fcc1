package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kadirpekel/ontomed/pkg/config"
)

func testOpenAIConfig(host string) *config.LLMConfig {
	return &config.LLMConfig{
		Provider:       config.LLMProviderOpenAI,
		Model:          "gpt-4o",
		EmbeddingModel: "text-embedding-3-small",
		BaseURL:        host,
		APIKey:         "sk-test-key",
		Timeout:        config.Duration(30 * time.Second),
	}
}

func TestNewOpenAIProvider(t *testing.T) {
	provider := NewOpenAIProvider("sk-test-key", "gpt-4o")

	if provider == nil {
		t.Fatal("NewOpenAIProvider() returned nil provider")
	}

	if provider.GetModelName() != "gpt-4o" {
		t.Errorf("NewOpenAIProvider() model = %v, want gpt-4o", provider.GetModelName())
	}

	if provider.GetTemperature() != 0.7 {
		t.Errorf("NewOpenAIProvider() temperature = %v, want 0.7", provider.GetTemperature())
	}

	if provider.GetMaxTokens() != 4096 {
		t.Errorf("NewOpenAIProvider() maxTokens = %v, want 4096", provider.GetMaxTokens())
	}
}

func TestNewOpenAIProviderFromConfig(t *testing.T) {
	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig("https://api.openai.com/v1/"))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v, want nil", err)
	}

	if provider.baseURL != "https://api.openai.com/v1" {
		t.Errorf("NewOpenAIProviderFromConfig() baseURL = %v, want trailing slash trimmed", provider.baseURL)
	}

	if _, err := NewOpenAIProviderFromConfig(nil); err == nil {
		t.Error("NewOpenAIProviderFromConfig(nil) error = nil, want error")
	}
}

func TestOpenAIProvider_GenerateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer sk-test-key") {
			t.Errorf("Expected Bearer token, got %s", auth)
		}

		var req OpenAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req.Model != "gpt-4o" {
			t.Errorf("Expected model gpt-4o, got %s", req.Model)
		}
		if len(req.Messages) != 1 {
			t.Errorf("Expected 1 message, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "user" {
			t.Errorf("Expected user role, got %s", req.Messages[0].Role)
		}
		if req.Messages[0].Content != "Explain hypertension" {
			t.Errorf("Expected prompt passed through, got %s", req.Messages[0].Content)
		}

		response := OpenAIResponse{
			Choices: []Choice{
				{
					Message:      OpenAIMessage{Role: "assistant", Content: "Hypertension is elevated blood pressure."},
					FinishReason: "stop",
				},
			},
			Usage: Usage{PromptTokens: 10, CompletionTokens: 15, TotalTokens: 25},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	text, usage, err := provider.GenerateText(context.Background(), "Explain hypertension", nil)
	if err != nil {
		t.Fatalf("GenerateText() error = %v, want nil", err)
	}
	if text != "Hypertension is elevated blood pressure." {
		t.Errorf("GenerateText() text = %v, want mock content", text)
	}
	if usage.TotalTokens != 25 {
		t.Errorf("GenerateText() total tokens = %v, want 25", usage.TotalTokens)
	}
	if usage.PromptTokens != 10 {
		t.Errorf("GenerateText() prompt tokens = %v, want 10", usage.PromptTokens)
	}
}

func TestOpenAIProvider_GenerateText_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	_, _, err = provider.GenerateText(context.Background(), "Explain hypertension", nil)
	if err == nil {
		t.Fatal("GenerateText() error = nil, want API error")
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("GenerateText() error = %v, want API error message", err)
	}
}

func TestOpenAIProvider_GenerateStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OpenAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("Expected json_object response format, got %+v", req.ResponseFormat)
		}
		if !strings.Contains(req.Messages[0].Content, "JSON") {
			t.Errorf("Expected JSON instruction in prompt, got %s", req.Messages[0].Content)
		}

		content := "```json\n{\"term\": \"Hypertension\", \"severity\": \"moderate\"}\n```"
		response := OpenAIResponse{
			Choices: []Choice{
				{Message: OpenAIMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
			},
			Usage: Usage{PromptTokens: 20, CompletionTokens: 12, TotalTokens: 32},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	result, usage, err := provider.GenerateStructured(context.Background(), "Describe hypertension", nil)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v, want nil", err)
	}
	if result["term"] != "Hypertension" {
		t.Errorf("GenerateStructured() term = %v, want Hypertension", result["term"])
	}
	if result["severity"] != "moderate" {
		t.Errorf("GenerateStructured() severity = %v, want moderate", result["severity"])
	}
	if usage.TotalTokens != 32 {
		t.Errorf("GenerateStructured() total tokens = %v, want 32", usage.TotalTokens)
	}
}

func TestOpenAIProvider_GenerateStructured_BadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := OpenAIResponse{
			Choices: []Choice{
				{Message: OpenAIMessage{Role: "assistant", Content: "I cannot help with that."}, FinishReason: "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	_, _, err = provider.GenerateStructured(context.Background(), "Describe hypertension", nil)
	if err == nil {
		t.Fatal("GenerateStructured() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "no JSON object found") {
		t.Errorf("GenerateStructured() error = %v, want no JSON object found", err)
	}
}

func TestOpenAIProvider_RequestOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OpenAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req.Temperature != 0.2 {
			t.Errorf("Expected temperature 0.2, got %v", req.Temperature)
		}
		if req.MaxTokens == nil || *req.MaxTokens != 64 {
			t.Errorf("Expected max_tokens 64, got %v", req.MaxTokens)
		}

		response := OpenAIResponse{
			Choices: []Choice{
				{Message: OpenAIMessage{Role: "assistant", Content: "ok"}, FinishReason: "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	temperature := 0.2
	opts := &Options{Temperature: &temperature, MaxTokens: 64}

	if _, _, err := provider.GenerateText(context.Background(), "Explain hypertension", opts); err != nil {
		t.Fatalf("GenerateText() error = %v, want nil", err)
	}
}

func TestOpenAIProvider_AnalyzeText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req OpenAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if !strings.Contains(req.Messages[0].Content, "Analyze the following text") {
			t.Errorf("Expected analysis instruction in prompt, got %s", req.Messages[0].Content)
		}

		response := OpenAIResponse{
			Choices: []Choice{
				{Message: OpenAIMessage{Role: "assistant", Content: `{"entities": ["aspirin"]}`}, FinishReason: "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	result, err := provider.AnalyzeText(context.Background(), "Patient takes aspirin daily.")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v, want nil", err)
	}
	if _, ok := result["entities"]; !ok {
		t.Errorf("AnalyzeText() result = %v, want entities key", result)
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("Expected /embeddings, got %s", r.URL.Path)
		}

		var req OpenAIEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		if req.Model != "text-embedding-3-small" {
			t.Errorf("Expected embedding model, got %s", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "Hypertension" {
			t.Errorf("Expected single input, got %v", req.Input)
		}

		response := OpenAIEmbedResponse{
			Object: "list",
			Data: []OpenAIEmbedding{
				{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3}, Index: 0},
			},
			Model: "text-embedding-3-small",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	embedding, err := provider.Embed(context.Background(), "Hypertension")
	if err != nil {
		t.Fatalf("Embed() error = %v, want nil", err)
	}
	if len(embedding) != 3 {
		t.Errorf("Embed() length = %v, want 3", len(embedding))
	}
	if embedding[0] != 0.1 {
		t.Errorf("Embed() first value = %v, want 0.1", embedding[0])
	}
}

func TestOpenAIProvider_Embed_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := OpenAIEmbedResponse{Object: "list", Data: []OpenAIEmbedding{}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	provider, err := NewOpenAIProviderFromConfig(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	if _, err := provider.Embed(context.Background(), "Hypertension"); err == nil {
		t.Error("Embed() error = nil, want empty embedding error")
	}
}

func TestOpenAIProvider_Close(t *testing.T) {
	provider := NewOpenAIProvider("sk-test-key", "gpt-4o")

	if err := provider.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
