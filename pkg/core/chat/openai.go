package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// DefaultOpenAIBaseURL is the default OpenAI API endpoint. Any Chat
	// Completions compatible server works via WithOpenAIBaseURL.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"

	defaultMaxTokens = 4096
)

// OpenAIProvider implements Provider against the OpenAI Chat Completions API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the API endpoint.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithOpenAIModel overrides the model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOpenAIHTTPClient overrides the HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewOpenAI creates a new OpenAI chat provider.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    DefaultOpenAIBaseURL,
		model:      DefaultOpenAIModel,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openaiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model     string              `json:"model"`
	Messages  []openaiChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat sends a non-streaming chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	req := openaiChatRequest{
		Model:     p.model,
		MaxTokens: defaultMaxTokens,
	}
	if system != "" {
		req.Messages = append(req.Messages, openaiChatMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openaiChatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr openaiErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai api error (%d)", resp.StatusCode)
	}

	var out openaiChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
