package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/analyzer"
)

func TestValidateSimple(t *testing.T) {
	agent := New(nil, "")

	tests := []struct {
		name        string
		content     string
		isValid     bool
		shouldRetry bool
	}{
		{name: "empty", content: "", isValid: false, shouldRetry: true},
		{name: "whitespace", content: "  \n ", isValid: false, shouldRetry: true},
		{name: "refusal", content: "I'm unable to answer that question.", isValid: false, shouldRetry: true},
		{name: "short", content: "42", isValid: true, shouldRetry: false},
		{name: "normal", content: "The answer is 42 because of the following reasons.", isValid: true, shouldRetry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agent.ValidateSimple(tt.content)
			if got.IsValid != tt.isValid || got.ShouldRetry != tt.shouldRetry {
				t.Errorf("got %+v, want valid=%v retry=%v", got, tt.isValid, tt.shouldRetry)
			}
			if got.Score < 0 || got.Score > 10 {
				t.Errorf("score %d out of range", got.Score)
			}
		})
	}
}

func TestValidateParsesVerdict(t *testing.T) {
	mock := adapter.NewMock().Script("validator-model",
		`{"is_valid": false, "score": 3, "should_retry": true, "suggested_model": "m2", "reasoning": "shallow"}`)
	agent := New(mock, "validator-model")

	result, err := agent.Validate(context.Background(), "explain raft", &analyzer.Result{Complexity: 7, Category: "reasoning"},
		"raft is a protocol", []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid || !result.ShouldRetry || result.Score != 3 {
		t.Errorf("got %+v", result)
	}
	if result.SuggestedModel != "m2" {
		t.Errorf("suggested = %q, want m2", result.SuggestedModel)
	}
}

func TestValidateDropsUnknownSuggestedModel(t *testing.T) {
	mock := adapter.NewMock().Script("validator-model",
		`{"is_valid": false, "score": 3, "should_retry": true, "suggested_model": "not-available"}`)
	agent := New(mock, "validator-model")

	result, err := agent.Validate(context.Background(), "q", nil, "a", []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.SuggestedModel != "" {
		t.Errorf("expected unknown suggestion dropped, got %q", result.SuggestedModel)
	}
}

func TestValidateFailsOpenOnModelError(t *testing.T) {
	mock := adapter.NewMock().ScriptError("validator-model", errors.New("upstream down"))
	agent := New(mock, "validator-model")

	result, err := agent.Validate(context.Background(), "q", nil, "a", []string{"m1"})
	if err != nil {
		t.Fatalf("expected fail-open, got error: %v", err)
	}
	if !result.IsValid || result.ShouldRetry || !result.Degraded {
		t.Errorf("got %+v, want valid degraded verdict", result)
	}
}

func TestValidateFailsOpenOnGarbage(t *testing.T) {
	mock := adapter.NewMock().Script("validator-model", "looks fine to me!")
	agent := New(mock, "validator-model")

	result, err := agent.Validate(context.Background(), "q", nil, "a", []string{"m1"})
	if err != nil {
		t.Fatalf("expected fail-open, got error: %v", err)
	}
	if !result.IsValid || !result.Degraded {
		t.Errorf("got %+v", result)
	}
}

func TestValidatePropagatesCancellation(t *testing.T) {
	mock := adapter.NewMock().Script("validator-model", `{"is_valid": true, "score": 8}`)
	agent := New(mock, "validator-model")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := agent.Validate(ctx, "q", nil, "a", []string{"m1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
