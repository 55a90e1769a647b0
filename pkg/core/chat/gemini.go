package chat

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider using the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new Gemini chat provider.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// geminiRole maps a pipeline message role onto the Gemini content role.
func geminiRole(role string) genai.Role {
	if role == RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// Chat sends a non-streaming generate content request.
func (p *GeminiProvider) Chat(ctx context.Context, system string, messages []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		contents = append(contents, genai.NewContentFromText(m.Content, geminiRole(m.Role)))
	}

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
