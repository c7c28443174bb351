package chain

import (
	"time"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/structured"
)

// Stage timeout defaults.
const (
	DefaultAnalyzerTimeout  = 30 * time.Second
	DefaultRouterTimeout    = 30 * time.Second
	DefaultExecutionTimeout = 120 * time.Second
	DefaultValidatorTimeout = 30 * time.Second
)

// DefaultMinComplexityForChain is the complexity below which requests
// take the simple path.
const DefaultMinComplexityForChain = 4

// Config controls one orchestrator (or, via Request.Config, one call).
type Config struct {
	AnalyzerModel         string        `yaml:"analyzer_model"`
	RouterModel           string        `yaml:"router_model"`
	ValidatorModel        string        `yaml:"validator_model"`
	AvailableModels       []string      `yaml:"available_models"`
	MinComplexityForChain int           `yaml:"min_complexity_for_chain"`
	MaxRetries            int           `yaml:"max_retries"`
	ValidationEnabled     bool          `yaml:"validation_enabled"`
	PreferCheapModels     bool          `yaml:"prefer_cheap_models"`
	AnalyzerTimeout       time.Duration `yaml:"-"`
	RouterTimeout         time.Duration `yaml:"-"`
	ExecutionTimeout      time.Duration `yaml:"-"`
	ValidatorTimeout      time.Duration `yaml:"-"`
}

func (c *Config) applyDefaults() {
	if c.MinComplexityForChain == 0 {
		c.MinComplexityForChain = DefaultMinComplexityForChain
	}
	if c.AnalyzerTimeout <= 0 {
		c.AnalyzerTimeout = DefaultAnalyzerTimeout
	}
	if c.RouterTimeout <= 0 {
		c.RouterTimeout = DefaultRouterTimeout
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = DefaultExecutionTimeout
	}
	if c.ValidatorTimeout <= 0 {
		c.ValidatorTimeout = DefaultValidatorTimeout
	}
}

// Request is one orchestration call. Cancellation travels through the
// context handed to Orchestrate/OrchestrateStream.
type Request struct {
	UserMessage         string
	ConversationHistory []adapter.Message
	ConversationID      string
	SessionID           string
	ProjectID           string
	UploadedFiles       []structured.File
	UseStructuredQuery  bool

	// Config overrides the orchestrator's configuration for this call.
	Config *Config
}
