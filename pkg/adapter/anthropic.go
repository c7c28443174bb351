package adapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAssistant implements the Assistant interface for Claude models.
type AnthropicAssistant struct {
	client anthropic.Client
}

// NewAnthropicAssistant creates a new Anthropic assistant.
func NewAnthropicAssistant(apiKey string) (*AnthropicAssistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicAssistant{client: client}, nil
}

// Name returns the assistant identifier.
func (a *AnthropicAssistant) Name() string {
	return "anthropic"
}

// Models returns the list of supported Claude models.
func (a *AnthropicAssistant) Models() []string {
	return []string{
		"claude-opus-4-20250514",
		"claude-sonnet-4-20250514",
		"claude-3-5-haiku-20241022",
	}
}

// GetResponse sends the message and history to Claude.
func (a *AnthropicAssistant) GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, turn := range history {
		block := anthropic.NewTextBlock(turn.Content)
		if turn.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &Response{
		Content: content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}
