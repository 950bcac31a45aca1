package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatGenerator is implemented by generators that accept a full
// conversation instead of a single prompt.
type ChatGenerator interface {
	TextGenerator
	GenerateChat(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}
