// Package router turns an analysis result into a routing plan: one
// primary model plus ranked fallbacks.
package router

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/zen-systems/chainflow/pkg/analyzer"
	"github.com/zen-systems/chainflow/pkg/catalog"
	"github.com/zen-systems/chainflow/pkg/selector"
)

// Strategy names how a plan executes its models.
type Strategy string

// StrategySingle runs one model at a time, falling back on failure.
const StrategySingle Strategy = "single"

// Plan is an immutable routing decision for one request.
type Plan struct {
	PrimaryModel   string   `json:"primary_model"`
	FallbackModels []string `json:"fallback_models,omitempty"`
	Strategy       Strategy `json:"strategy"`
	EstimatedCost  float64  `json:"estimated_cost"`
	Reasoning      string   `json:"reasoning,omitempty"`
	ShouldValidate bool     `json:"should_validate"`

	// Degraded marks plans built by the cheapest-model fallback after
	// an internal routing failure.
	Degraded bool `json:"-"`
}

// maxFallbacks caps the fallback chain length.
const maxFallbacks = 3

// Nominal token counts used for per-request cost estimates, scaled by
// complexity.
const (
	nominalPromptTokens     = 600
	nominalCompletionTokens = 300
)

// Agent implements routing plan construction.
type Agent struct {
	catalog           *catalog.Catalog
	selector          *selector.Service
	validateThreshold int
	costRiskThreshold float64
	debug             bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithValidateThreshold sets the complexity at which plans request
// validation.
func WithValidateThreshold(threshold int) Option {
	return func(a *Agent) { a.validateThreshold = threshold }
}

// WithCostRiskThreshold sets the estimated cost (USD) at which plans
// request validation regardless of complexity.
func WithCostRiskThreshold(cost float64) Option {
	return func(a *Agent) { a.costRiskThreshold = cost }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(a *Agent) { a.debug = debug }
}

// New creates a router agent over the given catalog.
func New(cat *catalog.Catalog, sel *selector.Service, opts ...Option) *Agent {
	a := &Agent{
		catalog:           cat,
		selector:          sel,
		validateThreshold: 6,
		costRiskThreshold: 0.05,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Route builds a plan for the analysis over the available model IDs.
// It never fails: when no candidate survives filtering it degrades to
// the cheapest available model with validation disabled.
func (a *Agent) Route(ctx context.Context, analysis *analyzer.Result, available []string, preferCheap bool) *Plan {
	models := a.catalog.Subset(available)
	if len(models) == 0 {
		if a.debug {
			log.Printf("[router] no available model is in the catalog, degrading")
		}
		return a.degradedPlan(available, "no available model found in catalog")
	}

	req := a.requirementsFor(analysis, preferCheap)
	matches := a.selector.AllMatches(models, req)
	if len(matches) == 0 {
		if a.debug {
			log.Printf("[router] no candidate survived filtering, degrading")
		}
		return a.degradedPlan(available, "no model satisfied routing requirements")
	}

	primary := matches[0]
	fallbacks := make([]string, 0, maxFallbacks)
	for _, m := range matches[1:] {
		if len(fallbacks) == maxFallbacks {
			break
		}
		fallbacks = append(fallbacks, m.ModelID)
	}

	estimated := estimateRequestCost(primary.Model, analysis.Complexity)
	plan := &Plan{
		PrimaryModel:   primary.ModelID,
		FallbackModels: fallbacks,
		Strategy:       StrategySingle,
		EstimatedCost:  estimated,
		ShouldValidate: analysis.Complexity >= a.validateThreshold || estimated >= a.costRiskThreshold,
		Reasoning: fmt.Sprintf("complexity %d, category %s: picked %s (score %.2f; %s)",
			analysis.Complexity, analysis.Category, primary.ModelID, primary.Score, primary.Reason),
	}
	return plan
}

// requirementsFor translates an analysis into selection requirements.
func (a *Agent) requirementsFor(analysis *analyzer.Result, preferCheap bool) selector.Requirements {
	req := selector.Requirements{}

	switch {
	case analysis.Complexity >= 7:
		req.PreferQuality = true
		req.MinContextLength = 100_000
	case analysis.Complexity <= 3:
		req.PreferSpeed = true
	}
	if preferCheap {
		req.PreferSpeed = true
		req.PreferQuality = false
		req.MaxPromptCostPer1M = 5
		req.MaxCompletionCostPer1M = 20
	}

	switch strings.ToLower(analysis.Category) {
	case "code":
		req.PreferredProvider = "anthropic"
	case "research":
		req.PreferredProvider = "google"
	case "reasoning":
		if !preferCheap {
			req.PreferQuality = true
		}
	}

	return req
}

// degradedPlan picks the cheapest available model with no validation.
// Unknown model IDs keep their list position so callers with a catalog
// miss still get their first configured model.
func (a *Agent) degradedPlan(available []string, reason string) *Plan {
	if len(available) == 0 {
		return &Plan{Strategy: StrategySingle, Reasoning: reason + "; no models available", Degraded: true}
	}

	known := a.catalog.Subset(available)
	primary := available[0]
	if len(known) > 0 {
		sort.SliceStable(known, func(i, j int) bool {
			return known[i].AverageCostPer1M() < known[j].AverageCostPer1M()
		})
		primary = known[0].ID
	}

	return &Plan{
		PrimaryModel:   primary,
		Strategy:       StrategySingle,
		ShouldValidate: false,
		Reasoning:      reason + "; degraded to cheapest available model",
		Degraded:       true,
	}
}

func estimateRequestCost(m catalog.Model, complexity int) float64 {
	scale := 1 + float64(complexity)/5
	prompt := int(nominalPromptTokens * scale)
	completion := int(nominalCompletionTokens * scale)
	return m.EstimateCost(prompt, completion)
}
