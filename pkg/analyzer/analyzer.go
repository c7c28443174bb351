// Package analyzer scores query complexity and category ahead of
// routing. Analysis is best-effort: model failures degrade to a
// deterministic heuristic instead of propagating.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/llmjson"
	"github.com/zen-systems/chainflow/pkg/tokens"
)

// Result is the outcome of one analysis. Degraded marks results
// produced by the heuristic fallback rather than the model.
type Result struct {
	Complexity int    `json:"complexity"`
	Category   string `json:"category"`
	Reasoning  string `json:"reasoning,omitempty"`
	Degraded   bool   `json:"-"`
}

// Known categories, used to validate model output and drive the
// heuristic fallback.
var categories = []string{"code", "research", "reasoning", "creative", "general"}

// categoryTriggers drives the heuristic category guess.
var categoryTriggers = map[string][]string{
	"code":      {"implement", "code", "function", "debug", "fix", "refactor", "compile", "bug", "api", "script"},
	"research":  {"research", "find", "look up", "what is", "compare", "sources", "summarize"},
	"reasoning": {"reason", "think through", "step by step", "prove", "derive", "deduce", "why does", "analyze"},
	"creative":  {"write a story", "poem", "creative", "brainstorm", "imagine", "draft"},
}

// Agent implements complexity analysis over an assistant.
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

// New creates an analyzer agent backed by the given assistant and model.
func New(assistant adapter.Assistant, model string, opts ...Option) *Agent {
	a := &Agent{assistant: assistant, model: model}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores the message. It returns an error only when the agent
// itself is unusable; every other failure degrades to the heuristic.
func (a *Agent) Analyze(ctx context.Context, message string, history []adapter.Message) (*Result, error) {
	if a.assistant == nil || a.model == "" {
		return nil, fmt.Errorf("analyzer requires an assistant and a model")
	}

	resp, err := a.assistant.GetResponse(ctx, buildAnalysisPrompt(message, history), nil, a.model)
	if err != nil {
		if a.debug {
			log.Printf("[analyzer] model call failed, using heuristic: %v", err)
		}
		return a.heuristic(message, history), nil
	}

	var parsed Result
	if err := llmjson.Unmarshal(resp.Content, &parsed); err != nil {
		if a.debug {
			log.Printf("[analyzer] response invalid, using heuristic: %v", err)
		}
		return a.heuristic(message, history), nil
	}

	parsed.Complexity = clampComplexity(parsed.Complexity)
	if !knownCategory(parsed.Category) {
		parsed.Category = a.heuristic(message, history).Category
	}
	return &parsed, nil
}

// heuristic produces a deterministic fallback analysis from token
// counts and trigger keywords.
func (a *Agent) heuristic(message string, history []adapter.Message) *Result {
	lower := strings.ToLower(message)

	category := "general"
	best := 0
	for _, cat := range categories {
		score := 0
		for _, trig := range categoryTriggers[cat] {
			if strings.Contains(lower, trig) {
				score++
			}
		}
		if score > best {
			best = score
			category = cat
		}
	}

	total := tokens.Count(message)
	for _, turn := range history {
		total += tokens.Count(turn.Content)
	}

	complexity := 1
	switch {
	case total > 4000:
		complexity = 8
	case total > 1500:
		complexity = 6
	case total > 500:
		complexity = 4
	case total > 100:
		complexity = 3
	case total > 25:
		complexity = 2
	}
	if category == "code" || category == "reasoning" {
		complexity += 2
	}

	return &Result{
		Complexity: clampComplexity(complexity),
		Category:   category,
		Reasoning:  fmt.Sprintf("heuristic: %d tokens, category %s", total, category),
		Degraded:   true,
	}
}

func buildAnalysisPrompt(message string, history []adapter.Message) string {
	var sb strings.Builder
	sb.WriteString("You are a query analyzer. Rate the complexity of the user query ")
	sb.WriteString("on an integer scale of 0-10 and pick one category from: ")
	sb.WriteString(strings.Join(categories, ", "))
	sb.WriteString(".\nReturn ONLY JSON: {\"complexity\":0-10,\"category\":\"...\",\"reasoning\":\"...\"}.\n\n")
	if len(history) > 0 {
		sb.WriteString(fmt.Sprintf("The conversation has %d prior turns.\n", len(history)))
	}
	sb.WriteString("User query:\n")
	sb.WriteString(message)
	return sb.String()
}

func clampComplexity(c int) int {
	if c < 0 {
		return 0
	}
	if c > 10 {
		return 10
	}
	return c
}

func knownCategory(cat string) bool {
	for _, c := range categories {
		if c == cat {
			return true
		}
	}
	return false
}
