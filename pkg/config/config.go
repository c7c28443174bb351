package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/chainflow/pkg/catalog"
	"github.com/zen-systems/chainflow/pkg/chain"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string
	Chain           chain.Config
	Catalog         *catalog.Catalog
	ConfigDir       string
}

// FileConfig represents the structure of ~/.chainflow/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// FileChainConfig represents the structure of ~/.chainflow/chain.yaml.
// Timeouts are given in milliseconds.
type FileChainConfig struct {
	AnalyzerModel         string   `yaml:"analyzer_model"`
	RouterModel           string   `yaml:"router_model"`
	ValidatorModel        string   `yaml:"validator_model"`
	AvailableModels       []string `yaml:"available_models"`
	MinComplexityForChain int      `yaml:"min_complexity_for_chain"`
	MaxRetries            int      `yaml:"max_retries"`
	ValidationEnabled     bool     `yaml:"validation_enabled"`
	PreferCheapModels     bool     `yaml:"prefer_cheap_models"`
	AnalyzerTimeoutMs     int      `yaml:"analyzer_timeout_ms"`
	RouterTimeoutMs       int      `yaml:"router_timeout_ms"`
	ExecutionTimeoutMs    int      `yaml:"execution_timeout_ms"`
	ValidatorTimeoutMs    int      `yaml:"validator_timeout_ms"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		ConfigDir:       configDir,
	}

	chainPath := filepath.Join(configDir, "chain.yaml")
	if _, err := os.Stat(chainPath); err == nil {
		chainCfg, err := LoadChainConfig(chainPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load chain config: %w", err)
		}
		cfg.Chain = chainCfg
	} else {
		cfg.Chain = DefaultChainConfig()
	}

	modelsPath := filepath.Join(configDir, "models.yaml")
	if _, err := os.Stat(modelsPath); err == nil {
		cat, err := catalog.Load(modelsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load model catalog: %w", err)
		}
		cfg.Catalog = cat
	} else {
		cfg.Catalog = catalog.Default()
	}

	return cfg, nil
}

// LoadWithChainFile loads config with a specific chain settings file.
func LoadWithChainFile(chainPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	chainCfg, err := LoadChainConfig(chainPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chain config from %s: %w", chainPath, err)
	}
	cfg.Chain = chainCfg
	return cfg, nil
}

// LoadChainConfig reads orchestration settings from a YAML file.
func LoadChainConfig(path string) (chain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chain.Config{}, err
	}

	var file FileChainConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return chain.Config{}, err
	}
	return file.toChainConfig(), nil
}

// DefaultChainConfig returns orchestration settings for when no
// chain.yaml exists.
func DefaultChainConfig() chain.Config {
	return chain.Config{
		AnalyzerModel:   "claude-3-5-haiku-20241022",
		ValidatorModel:  "claude-3-5-haiku-20241022",
		AvailableModels: []string{"claude-sonnet-4-20250514", "gpt-5.2-thinking", "gemini-2.0-flash", "deepseek-chat"},
		MaxRetries:      2,
	}
}

func (f FileChainConfig) toChainConfig() chain.Config {
	return chain.Config{
		AnalyzerModel:         f.AnalyzerModel,
		RouterModel:           f.RouterModel,
		ValidatorModel:        f.ValidatorModel,
		AvailableModels:       f.AvailableModels,
		MinComplexityForChain: f.MinComplexityForChain,
		MaxRetries:            f.MaxRetries,
		ValidationEnabled:     f.ValidationEnabled,
		PreferCheapModels:     f.PreferCheapModels,
		AnalyzerTimeout:       time.Duration(f.AnalyzerTimeoutMs) * time.Millisecond,
		RouterTimeout:         time.Duration(f.RouterTimeoutMs) * time.Millisecond,
		ExecutionTimeout:      time.Duration(f.ExecutionTimeoutMs) * time.Millisecond,
		ValidatorTimeout:      time.Duration(f.ValidatorTimeoutMs) * time.Millisecond,
	}
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".chainflow")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
