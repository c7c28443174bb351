// Package catalog holds model metadata used for routing decisions:
// provider, context window, output limits and per-token pricing.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Model describes a single language model backend.
type Model struct {
	ID              string   `yaml:"id"`
	Provider        string   `yaml:"provider"`
	ContextLength   int      `yaml:"context_length"`
	MaxOutputTokens int      `yaml:"max_output_tokens,omitempty"`
	PromptPer1M     float64  `yaml:"prompt_per_1m,omitempty"`
	CompletionPer1M float64  `yaml:"completion_per_1m,omitempty"`
	Modalities      []string `yaml:"modalities,omitempty"`
	Created         int64    `yaml:"created,omitempty"`
}

// AverageCostPer1M returns the mean of prompt and completion pricing.
func (m Model) AverageCostPer1M() float64 {
	return (m.PromptPer1M + m.CompletionPer1M) / 2
}

// IsFree reports whether the model is a free-tier offering.
func (m Model) IsFree() bool {
	if strings.HasSuffix(m.ID, ":free") {
		return true
	}
	return m.PromptPer1M == 0 && m.CompletionPer1M == 0
}

// IsSmall reports whether the model is a sub-4B parameter variant,
// detected by naming convention.
func (m Model) IsSmall() bool {
	return strings.Contains(m.ID, "-1b-") || strings.Contains(m.ID, "-3b-")
}

// HasModality reports whether the model supports the given modality.
// Models that declare no modalities are treated as text-only.
func (m Model) HasModality(modality string) bool {
	if modality == "" || modality == "text" {
		if len(m.Modalities) == 0 {
			return true
		}
	}
	for _, mod := range m.Modalities {
		if strings.EqualFold(mod, modality) {
			return true
		}
	}
	return false
}

// EstimateCost computes the dollar cost of a call from token counts.
func (m Model) EstimateCost(promptTokens, completionTokens int) float64 {
	prompt := float64(promptTokens) / 1_000_000 * m.PromptPer1M
	completion := float64(completionTokens) / 1_000_000 * m.CompletionPer1M
	return prompt + completion
}

// Catalog is an indexed collection of models.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// New builds a catalog from a model list. Later duplicates win.
func New(models []Model) *Catalog {
	c := &Catalog{byID: make(map[string]Model, len(models))}
	for _, m := range models {
		if _, seen := c.byID[m.ID]; !seen {
			c.models = append(c.models, m)
		}
		c.byID[m.ID] = m
	}
	return c
}

// fileCatalog represents the structure of a models.yaml file.
type fileCatalog struct {
	Models []Model `yaml:"models"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	if len(fc.Models) == 0 {
		return nil, fmt.Errorf("catalog %s defines no models", path)
	}
	return New(fc.Models), nil
}

// Get returns a model by ID.
func (c *Catalog) Get(id string) (Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Models returns all models in declaration order.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Subset resolves a list of model IDs against the catalog, dropping
// unknown IDs.
func (c *Catalog) Subset(ids []string) []Model {
	var out []Model
	for _, id := range ids {
		if m, ok := c.byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of models in the catalog.
func (c *Catalog) Len() int {
	return len(c.models)
}

// Default returns the built-in catalog covering the supported providers.
func Default() *Catalog {
	return New([]Model{
		{ID: "claude-opus-4-20250514", Provider: "anthropic", ContextLength: 200_000, MaxOutputTokens: 32_000, PromptPer1M: 15, CompletionPer1M: 75, Created: 1747180800},
		{ID: "claude-sonnet-4-20250514", Provider: "anthropic", ContextLength: 200_000, MaxOutputTokens: 64_000, PromptPer1M: 3, CompletionPer1M: 15, Created: 1747180800},
		{ID: "claude-3-5-haiku-20241022", Provider: "anthropic", ContextLength: 200_000, MaxOutputTokens: 8_192, PromptPer1M: 0.8, CompletionPer1M: 4, Created: 1729555200},
		{ID: "gpt-5.2-pro", Provider: "openai", ContextLength: 400_000, MaxOutputTokens: 128_000, PromptPer1M: 15, CompletionPer1M: 120, Created: 1765152000},
		{ID: "gpt-5.2-thinking", Provider: "openai", ContextLength: 400_000, MaxOutputTokens: 128_000, PromptPer1M: 2.5, CompletionPer1M: 10, Created: 1765152000},
		{ID: "gpt-5.2-codex", Provider: "openai", ContextLength: 400_000, MaxOutputTokens: 128_000, PromptPer1M: 1.25, CompletionPer1M: 10, Created: 1765152000},
		{ID: "gpt-5.2-instant", Provider: "openai", ContextLength: 128_000, MaxOutputTokens: 16_384, PromptPer1M: 0.5, CompletionPer1M: 1.5, Created: 1765152000},
		{ID: "gemini-2.0-pro", Provider: "google", ContextLength: 1_048_576, MaxOutputTokens: 65_536, PromptPer1M: 1.25, CompletionPer1M: 5, Created: 1738800000},
		{ID: "gemini-2.0-flash", Provider: "google", ContextLength: 1_048_576, MaxOutputTokens: 8_192, PromptPer1M: 0.1, CompletionPer1M: 0.4, Created: 1738800000},
		{ID: "deepseek-chat", Provider: "deepseek", ContextLength: 65_536, MaxOutputTokens: 8_192, PromptPer1M: 0.27, CompletionPer1M: 1.1, Created: 1735171200},
		{ID: "deepseek-reasoner", Provider: "deepseek", ContextLength: 65_536, MaxOutputTokens: 65_536, PromptPer1M: 0.55, CompletionPer1M: 2.19, Created: 1735171200},
	})
}
