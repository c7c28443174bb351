// Package adapter provides the assistant capability: provider-backed
// clients that turn a message plus history into a model response.
package adapter

import "context"

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a normalized assistant reply. Cost is zero when the
// provider does not report it; callers estimate from Usage instead.
type Response struct {
	Content string  `json:"content"`
	Model   string  `json:"model"`
	Usage   Usage   `json:"usage"`
	Cost    float64 `json:"cost"`
}

// Assistant defines the interface for model-backed chat providers.
type Assistant interface {
	// GetResponse sends a message with optional history to the given model.
	GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error)

	// Name returns the assistant's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// Func adapts a bare string-returning function into an Assistant.
// Responses carry model "unknown" and zero cost.
type Func func(ctx context.Context, message string, history []Message, model string) (string, error)

// GetResponse implements Assistant.
func (f Func) GetResponse(ctx context.Context, message string, history []Message, model string) (*Response, error) {
	content, err := f(ctx, message, history, model)
	if err != nil {
		return nil, err
	}
	return &Response{Content: content, Model: "unknown", Cost: 0}, nil
}

// Name implements Assistant.
func (f Func) Name() string { return "func" }

// Models implements Assistant.
func (f Func) Models() []string { return nil }
