package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestModelIsFree(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		want  bool
	}{
		{
			name:  "free suffix",
			model: Model{ID: "llama-3.1-70b-instruct:free", PromptPer1M: 0.5, CompletionPer1M: 0.5},
			want:  true,
		},
		{
			name:  "zero pricing",
			model: Model{ID: "local-model"},
			want:  true,
		},
		{
			name:  "paid",
			model: Model{ID: "claude-sonnet-4-20250514", PromptPer1M: 3, CompletionPer1M: 15},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.IsFree(); got != tt.want {
				t.Errorf("IsFree() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelIsSmall(t *testing.T) {
	if !(Model{ID: "llama-3.2-1b-instruct"}).IsSmall() {
		t.Error("expected -1b- model to be small")
	}
	if !(Model{ID: "llama-3.2-3b-instruct"}).IsSmall() {
		t.Error("expected -3b- model to be small")
	}
	if (Model{ID: "claude-sonnet-4-20250514"}).IsSmall() {
		t.Error("expected sonnet not to be small")
	}
}

func TestModelHasModality(t *testing.T) {
	textOnly := Model{ID: "m"}
	if !textOnly.HasModality("text") {
		t.Error("model without modalities should support text")
	}
	if textOnly.HasModality("vision") {
		t.Error("model without modalities should not support vision")
	}

	vision := Model{ID: "m", Modalities: []string{"text", "vision"}}
	if !vision.HasModality("vision") {
		t.Error("expected vision modality")
	}
}

func TestEstimateCost(t *testing.T) {
	m := Model{PromptPer1M: 3, CompletionPer1M: 15}
	got := m.EstimateCost(1_000_000, 1_000_000)
	if got != 18 {
		t.Errorf("EstimateCost = %v, want 18", got)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, m := range c.Models() {
		if m.Provider == "" {
			t.Errorf("model %s has no provider", m.ID)
		}
		if m.ContextLength == 0 {
			t.Errorf("model %s has no context length", m.ID)
		}
		if m.IsFree() {
			t.Errorf("default catalog should not carry free models, got %s", m.ID)
		}
	}
}

func TestCatalogSubset(t *testing.T) {
	c := Default()
	models := c.Subset([]string{"claude-sonnet-4-20250514", "does-not-exist", "gemini-2.0-flash"})
	if len(models) != 2 {
		t.Fatalf("expected 2 resolved models, got %d", len(models))
	}
	if models[0].ID != "claude-sonnet-4-20250514" || models[1].ID != "gemini-2.0-flash" {
		t.Errorf("subset order not preserved: %v", models)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	data := []byte(`models:
  - id: test-model
    provider: anthropic
    context_length: 100000
    prompt_per_1m: 1.0
    completion_per_1m: 2.0
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m, ok := c.Get("test-model")
	if !ok {
		t.Fatal("expected test-model in catalog")
	}
	if m.Provider != "anthropic" || m.ContextLength != 100000 {
		t.Errorf("unexpected model: %+v", m)
	}
}

func TestLoadCatalogEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(path, []byte("models: []\n"), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}
