// Package chat provides reasoning providers for the turn pipeline.
package chat

import (
	"context"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of reasoning context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the interface for reasoning services.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string

	// Chat sends the system instructions and ordered messages and returns
	// the assistant's reply text.
	Chat(ctx context.Context, system string, messages []Message) (string, error)
}
