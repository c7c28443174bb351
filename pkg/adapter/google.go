package adapter

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleAssistant implements the Assistant interface for Gemini models.
type GoogleAssistant struct {
	client *genai.Client
}

// NewGoogleAssistant creates a new Google Gemini assistant.
func NewGoogleAssistant(apiKey string) (*GoogleAssistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAssistant{client: client}, nil
}

// Name returns the assistant identifier.
func (a *GoogleAssistant) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleAssistant) Models() []string {
	return []string{
		"gemini-2.0-pro",
		"gemini-2.0-flash",
	}
}

// GetResponse sends the message and history to Gemini. History is
// folded into the prompt as labeled turns.
func (a *GoogleAssistant) GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error) {
	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(foldHistory(message, history)), nil)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	out := &Response{Content: content, Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

func foldHistory(message string, history []Message) string {
	if len(history) == 0 {
		return message
	}
	var sb strings.Builder
	for _, turn := range history {
		label := "User"
		if turn.Role == "assistant" {
			label = "Assistant"
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(message)
	return sb.String()
}
