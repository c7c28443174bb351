// Package selector filters candidate models against hard requirements
// and scores the survivors.
package selector

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/zen-systems/chainflow/pkg/catalog"
)

// Models cheaper than this (averaged $/1M tokens) are filtered out
// unless the caller prefers speed over quality.
const qualityCostFloorPer1M = 0.10

// Scoring normalization bounds.
const (
	contextSpanLow  = 8_192
	contextSpanHigh = 1_048_576
	costCeilingPer1M = 10.0
)

// jsonCapableProviders lists providers with reliable JSON-mode output.
var jsonCapableProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"google":    true,
}

// Requirements describes hard constraints and soft preferences for
// model selection. Zero values mean "no constraint".
type Requirements struct {
	MinContextLength       int
	MinOutputTokens        int
	MaxPromptCostPer1M     float64
	MaxCompletionCostPer1M float64
	AllowedProviders       []string
	DeniedProviders        []string
	Modality               string
	PreferredProvider      string
	PreferSpeed            bool
	PreferQuality          bool

	// Predicate is an optional caller-supplied filter. A predicate
	// error excludes the model (fail-safe).
	Predicate func(catalog.Model) (bool, error)
}

// Match is a scored selection candidate.
type Match struct {
	ModelID string
	Model   catalog.Model
	Score   float64
	Reason  string
}

// Service implements model filtering and scoring.
type Service struct {
	debug bool
}

// Option configures a Service.
type Option func(*Service)

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(s *Service) { s.debug = debug }
}

// New creates a selector service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Filter returns the models that survive every hard requirement.
func (s *Service) Filter(models []catalog.Model, req Requirements) []catalog.Model {
	var out []catalog.Model
	for _, m := range models {
		if reason, ok := s.admit(m, req); ok {
			out = append(out, m)
		} else if s.debug {
			log.Printf("[selector] excluded %s: %s", m.ID, reason)
		}
	}
	return out
}

func (s *Service) admit(m catalog.Model, req Requirements) (string, bool) {
	if req.MinContextLength > 0 && m.ContextLength < req.MinContextLength {
		return fmt.Sprintf("context %d below required %d", m.ContextLength, req.MinContextLength), false
	}
	if req.MinOutputTokens > 0 && m.MaxOutputTokens < req.MinOutputTokens {
		return fmt.Sprintf("output cap %d below required %d", m.MaxOutputTokens, req.MinOutputTokens), false
	}
	if req.MaxPromptCostPer1M > 0 && m.PromptPer1M > req.MaxPromptCostPer1M {
		return "prompt cost above limit", false
	}
	if req.MaxCompletionCostPer1M > 0 && m.CompletionPer1M > req.MaxCompletionCostPer1M {
		return "completion cost above limit", false
	}
	if len(req.AllowedProviders) > 0 && !containsFold(req.AllowedProviders, m.Provider) {
		return "provider not in allow-list", false
	}
	if containsFold(req.DeniedProviders, m.Provider) {
		return "provider denied", false
	}
	if req.Modality != "" && !m.HasModality(req.Modality) {
		return "modality mismatch", false
	}
	if m.IsFree() {
		return "free-tier model", false
	}
	if m.IsSmall() {
		return "sub-4B parameter model", false
	}
	if !req.PreferSpeed && m.AverageCostPer1M() < qualityCostFloorPer1M {
		return "below quality cost floor", false
	}
	if req.Predicate != nil {
		ok, err := req.Predicate(m)
		if err != nil {
			return fmt.Sprintf("predicate error: %v", err), false
		}
		if !ok {
			return "predicate rejected", false
		}
	}
	return "", true
}

// Score rates a model for the given requirements on a [0,1] scale.
func (s *Service) Score(m catalog.Model, req Requirements) (float64, string) {
	score := 0.5
	var reasons []string

	if req.PreferQuality {
		bonus := 0.2 * contextBonus(m.ContextLength)
		score += bonus
		reasons = append(reasons, fmt.Sprintf("context bonus %.2f", bonus))
	}
	if req.PreferSpeed || !req.PreferQuality {
		bonus := 0.2 * costBonus(m.AverageCostPer1M())
		score += bonus
		reasons = append(reasons, fmt.Sprintf("cost bonus %.2f", bonus))
	}
	if req.PreferredProvider != "" && strings.EqualFold(m.Provider, req.PreferredProvider) {
		score += 0.1
		reasons = append(reasons, "preferred provider")
	}
	if isLatestVersion(m) {
		score += 0.1
		reasons = append(reasons, "latest version")
	}
	if jsonCapableProviders[strings.ToLower(m.Provider)] {
		score += 0.05
		reasons = append(reasons, "json-capable provider")
	}

	score = clamp(score, 0, 1)
	return score, strings.Join(reasons, ", ")
}

// Select filters and scores candidates, returning the best match or
// nil when nothing survives filtering.
func (s *Service) Select(models []catalog.Model, req Requirements) *Match {
	matches := s.AllMatches(models, req)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

// AllMatches returns every surviving candidate ranked best-first.
// Exposed for diagnostics.
func (s *Service) AllMatches(models []catalog.Model, req Requirements) []Match {
	survivors := s.Filter(models, req)
	matches := make([]Match, 0, len(survivors))
	for _, m := range survivors {
		score, reason := s.Score(m, req)
		matches = append(matches, Match{ModelID: m.ID, Model: m, Score: score, Reason: reason})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ModelID < matches[j].ModelID
		}
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// contextBonus maps a context window onto [0,1] using a log scale
// normalized to the 8k..1M token span.
func contextBonus(contextLength int) float64 {
	if contextLength <= 0 {
		return 0
	}
	span := math.Log(contextSpanHigh) - math.Log(contextSpanLow)
	bonus := (math.Log(float64(contextLength)) - math.Log(contextSpanLow)) / span
	return clamp(bonus, 0, 1)
}

// costBonus rewards cheaper models, normalized against a $10/1M ceiling.
func costBonus(avgCostPer1M float64) float64 {
	return clamp(1-avgCostPer1M/costCeilingPer1M, 0, 1)
}

// isLatestVersion is an explicit hook for a recency signal that is not
// wired yet; it reports false for every model. The catalog Created
// field is reserved for it.
func isLatestVersion(catalog.Model) bool {
	return false
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
