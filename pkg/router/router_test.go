package router

import (
	"context"
	"testing"

	"github.com/zen-systems/chainflow/pkg/analyzer"
	"github.com/zen-systems/chainflow/pkg/catalog"
	"github.com/zen-systems/chainflow/pkg/selector"
)

func newTestAgent(opts ...Option) *Agent {
	return New(catalog.Default(), selector.New(), opts...)
}

func allModelIDs() []string {
	var ids []string
	for _, m := range catalog.Default().Models() {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestRoutePrimaryAndRankedFallbacks(t *testing.T) {
	agent := newTestAgent()
	analysis := &analyzer.Result{Complexity: 8, Category: "code"}

	plan := agent.Route(context.Background(), analysis, allModelIDs(), false)
	if plan.PrimaryModel == "" {
		t.Fatal("expected a primary model")
	}
	if plan.Strategy != StrategySingle {
		t.Errorf("strategy = %s, want single", plan.Strategy)
	}
	if len(plan.FallbackModels) == 0 || len(plan.FallbackModels) > maxFallbacks {
		t.Fatalf("fallbacks = %v", plan.FallbackModels)
	}
	for _, fb := range plan.FallbackModels {
		if fb == plan.PrimaryModel {
			t.Errorf("primary %s repeated in fallbacks", fb)
		}
	}
	if plan.Degraded {
		t.Error("healthy route should not be degraded")
	}
	if plan.EstimatedCost <= 0 {
		t.Error("expected a positive cost estimate")
	}
}

func TestRouteHighComplexityRequestsValidation(t *testing.T) {
	agent := newTestAgent(WithCostRiskThreshold(1000))

	high := agent.Route(context.Background(), &analyzer.Result{Complexity: 8, Category: "general"}, allModelIDs(), false)
	if !high.ShouldValidate {
		t.Error("complexity 8 should request validation")
	}

	low := agent.Route(context.Background(), &analyzer.Result{Complexity: 4, Category: "general"}, allModelIDs(), false)
	if low.ShouldValidate {
		t.Error("complexity 4 should not request validation")
	}
}

func TestRouteCostRiskRequestsValidation(t *testing.T) {
	agent := newTestAgent(WithValidateThreshold(100), WithCostRiskThreshold(0.0001))
	plan := agent.Route(context.Background(), &analyzer.Result{Complexity: 5, Category: "general"}, allModelIDs(), false)
	if !plan.ShouldValidate {
		t.Error("expected cost risk to trigger validation")
	}
}

func TestRouteCodePrefersAnthropic(t *testing.T) {
	agent := newTestAgent()
	plan := agent.Route(context.Background(), &analyzer.Result{Complexity: 6, Category: "code"}, allModelIDs(), false)

	m, ok := catalog.Default().Get(plan.PrimaryModel)
	if !ok {
		t.Fatalf("primary %s not in catalog", plan.PrimaryModel)
	}
	if m.Provider != "anthropic" {
		t.Errorf("expected anthropic primary for code, got %s (%s)", plan.PrimaryModel, m.Provider)
	}
}

func TestRoutePreferCheapBoundsCost(t *testing.T) {
	agent := newTestAgent()
	plan := agent.Route(context.Background(), &analyzer.Result{Complexity: 8, Category: "general"}, allModelIDs(), true)

	m, ok := catalog.Default().Get(plan.PrimaryModel)
	if !ok {
		t.Fatalf("primary %s not in catalog", plan.PrimaryModel)
	}
	if m.PromptPer1M > 5 {
		t.Errorf("preferCheap picked expensive model %s ($%v/1M prompt)", m.ID, m.PromptPer1M)
	}
}

func TestRouteDegradesWhenNothingSurvives(t *testing.T) {
	agent := newTestAgent()
	// None of these IDs are in the catalog, so selection has nothing
	// to work with.
	plan := agent.Route(context.Background(), &analyzer.Result{Complexity: 9, Category: "code"}, []string{"unknown-a", "unknown-b"}, false)

	if !plan.Degraded {
		t.Fatal("expected degraded plan")
	}
	if plan.PrimaryModel != "unknown-a" {
		t.Errorf("degraded plan should keep the first configured model, got %s", plan.PrimaryModel)
	}
	if plan.ShouldValidate {
		t.Error("degraded plan must not request validation")
	}
}

func TestRouteDegradedPicksCheapestKnown(t *testing.T) {
	agent := newTestAgent()
	plan := agent.degradedPlan([]string{"claude-opus-4-20250514", "gemini-2.0-flash"}, "test")
	if plan.PrimaryModel != "gemini-2.0-flash" {
		t.Errorf("expected cheapest known model, got %s", plan.PrimaryModel)
	}
}
