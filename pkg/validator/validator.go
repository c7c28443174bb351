// Package validator judges whether an execution result is adequate.
// It offers a cheap heuristic path for trivial queries and a
// model-backed path for complex ones. The model-backed path fails
// open: validator outages must not trigger retry storms.
package validator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/analyzer"
	"github.com/zen-systems/chainflow/pkg/llmjson"
)

// Result is one validation verdict.
type Result struct {
	IsValid        bool   `json:"is_valid"`
	Score          int    `json:"score"`
	ShouldRetry    bool   `json:"should_retry"`
	SuggestedModel string `json:"suggested_model,omitempty"`
	Reasoning      string `json:"reasoning,omitempty"`

	// Degraded marks verdicts produced by the fail-open path.
	Degraded bool `json:"-"`
}

// refusalMarkers flag responses that dodge the question.
var refusalMarkers = []string{
	"i cannot help with",
	"i can't help with",
	"i'm unable to",
	"as an ai language model",
}

// Agent implements response validation over an assistant.
type Agent struct {
	assistant adapter.Assistant
	model     string
	debug     bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(a *Agent) { a.debug = debug }
}

// New creates a validator agent backed by the given assistant and model.
func New(assistant adapter.Assistant, model string, opts ...Option) *Agent {
	a := &Agent{assistant: assistant, model: model}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ValidateSimple is a pure heuristic verdict with no model call, used
// for low-complexity executions.
func (a *Agent) ValidateSimple(content string) *Result {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return &Result{IsValid: false, Score: 0, ShouldRetry: true, Reasoning: "empty response"}
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return &Result{IsValid: false, Score: 2, ShouldRetry: true, Reasoning: "response refuses the request"}
		}
	}

	if len(trimmed) < 20 {
		return &Result{IsValid: true, Score: 5, Reasoning: "very short but present"}
	}
	return &Result{IsValid: true, Score: 7, Reasoning: "heuristic pass"}
}

// Validate asks the validator model to judge the execution. A
// suggested model outside availableModels is dropped. Internal
// failures fail open (treated as valid, Degraded set); only a
// cancelled or expired context propagates as an error.
func (a *Agent) Validate(ctx context.Context, message string, analysis *analyzer.Result, content string, availableModels []string) (*Result, error) {
	if a.assistant == nil || a.model == "" {
		return failOpen("validator not configured"), nil
	}

	resp, err := a.assistant.GetResponse(ctx, buildValidationPrompt(message, analysis, content, availableModels), nil, a.model)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if a.debug {
			log.Printf("[validator] model call failed, failing open: %v", err)
		}
		return failOpen(fmt.Sprintf("validator call failed: %v", err)), nil
	}

	var parsed Result
	if err := llmjson.Unmarshal(resp.Content, &parsed); err != nil {
		if a.debug {
			log.Printf("[validator] response invalid, failing open: %v", err)
		}
		return failOpen(fmt.Sprintf("validator response invalid: %v", err)), nil
	}

	parsed.Score = clampScore(parsed.Score)
	if parsed.SuggestedModel != "" && !contains(availableModels, parsed.SuggestedModel) {
		parsed.SuggestedModel = ""
	}
	return &parsed, nil
}

func failOpen(reason string) *Result {
	return &Result{IsValid: true, Score: 5, Reasoning: reason, Degraded: true}
}

func buildValidationPrompt(message string, analysis *analyzer.Result, content string, availableModels []string) string {
	var sb strings.Builder
	sb.WriteString("You are a response quality judge. Rate the response to the user query ")
	sb.WriteString("on an integer scale of 0-10 and decide whether it should be retried ")
	sb.WriteString("on a different model.\n")
	sb.WriteString(`Return ONLY JSON: {"is_valid":bool,"score":0-10,"should_retry":bool,"suggested_model":"...","reasoning":"..."}.`)
	sb.WriteString("\nsuggested_model is optional and must be one of the listed models.\n\n")
	if analysis != nil {
		sb.WriteString(fmt.Sprintf("Query complexity: %d, category: %s\n", analysis.Complexity, analysis.Category))
	}
	sb.WriteString("Available models: ")
	sb.WriteString(strings.Join(availableModels, ", "))
	sb.WriteString("\n\nUser query:\n")
	sb.WriteString(message)
	sb.WriteString("\n\nResponse under review:\n")
	sb.WriteString(content)
	return sb.String()
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
