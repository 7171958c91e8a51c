package llm

import (
	"fmt"
	"time"

	"github.com/ADEMSU/insight-flow-rss/pkg/config"
)

// Config holds the shared client configuration plus the per-stage knobs.
// Everything is loaded from environment variables with production defaults.
type Config struct {
	// BaseURL is the root of the OpenAI-compatible API, including the /v1
	// suffix when the service expects one.
	BaseURL string

	// APIKey may be empty for local deployments that do not authenticate.
	APIKey string

	// Per-stage model identifiers.
	RelevanceModel string
	ClassifyModel  string
	AnalyzeModel   string

	// Per-stage sampling temperatures.
	RelevanceTemperature float64
	ClassifyTemperature  float64
	AnalyzeTemperature   float64

	// Timeout bounds a single chat-completion request.
	Timeout time.Duration

	// MaxRetries is the attempt budget per request, including the first.
	MaxRetries int

	// Semaphore capacities per stage.
	MaxConcurrentRelevance int
	MaxConcurrentClassify  int

	// Batch sizes per stage.
	RelevanceBatchSize int
	ClassifyBatchSize  int

	// BatchPause is the sleep between consecutive batches.
	BatchPause time.Duration

	// SummaryBackend selects the Stage C provider: "openai" uses the shared
	// chat-completion client, "anthropic" routes summaries to the Anthropic
	// API instead.
	SummaryBackend string

	// AnthropicAPIKey is required when SummaryBackend is "anthropic".
	AnthropicAPIKey string
}

// LoadConfig loads the orchestrator configuration from environment variables.
//
// Environment variables:
//   - LLM_BASE_URL: API root (default: http://localhost:1234/v1)
//   - LLM_API_KEY: bearer token, optional
//   - LLM_RELEVANCE_MODEL, LLM_CLASSIFY_MODEL, LLM_ANALYZE_MODEL
//   - LLM_TEMPERATURE_RELEVANCE (0.1), LLM_TEMPERATURE_CLASSIFY (0.1),
//     LLM_TEMPERATURE_ANALYZE (0.3)
//   - LLM_TIMEOUT (360s), LLM_MAX_RETRIES (5)
//   - LLM_MAX_CONCURRENT_RELEVANCE (3), LLM_MAX_CONCURRENT_CLASSIFY (2)
//   - LLM_RELEVANCE_BATCH_SIZE (10), LLM_CLASSIFY_BATCH_SIZE (5)
func LoadConfig() Config {
	return Config{
		BaseURL:                config.GetEnvString("LLM_BASE_URL", "http://localhost:1234/v1"),
		APIKey:                 config.GetEnvString("LLM_API_KEY", ""),
		RelevanceModel:         config.GetEnvString("LLM_RELEVANCE_MODEL", "qwen2.5-14b-instruct"),
		ClassifyModel:          config.GetEnvString("LLM_CLASSIFY_MODEL", "qwen2.5-14b-instruct"),
		AnalyzeModel:           config.GetEnvString("LLM_ANALYZE_MODEL", "qwen2.5-14b-instruct"),
		RelevanceTemperature:   config.GetEnvFloat("LLM_TEMPERATURE_RELEVANCE", 0.1),
		ClassifyTemperature:    config.GetEnvFloat("LLM_TEMPERATURE_CLASSIFY", 0.1),
		AnalyzeTemperature:     config.GetEnvFloat("LLM_TEMPERATURE_ANALYZE", 0.3),
		Timeout:                config.GetEnvDuration("LLM_TIMEOUT", 360*time.Second),
		MaxRetries:             config.GetEnvInt("LLM_MAX_RETRIES", 5),
		MaxConcurrentRelevance: config.GetEnvInt("LLM_MAX_CONCURRENT_RELEVANCE", 3),
		MaxConcurrentClassify:  config.GetEnvInt("LLM_MAX_CONCURRENT_CLASSIFY", 2),
		RelevanceBatchSize:     config.GetEnvInt("LLM_RELEVANCE_BATCH_SIZE", 10),
		ClassifyBatchSize:      config.GetEnvInt("LLM_CLASSIFY_BATCH_SIZE", 5),
		BatchPause:             config.GetEnvDuration("LLM_BATCH_PAUSE", time.Second),
		SummaryBackend:         config.GetEnvString("SUMMARY_BACKEND", "openai"),
		AnthropicAPIKey:        config.GetEnvString("ANTHROPIC_API_KEY", ""),
	}
}

// Validate checks that the configuration can drive the orchestrator.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if c.RelevanceModel == "" || c.ClassifyModel == "" || c.AnalyzeModel == "" {
		return fmt.Errorf("every stage needs a model identifier")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", c.MaxRetries)
	}
	if c.MaxConcurrentRelevance <= 0 || c.MaxConcurrentClassify <= 0 {
		return fmt.Errorf("semaphore capacities must be positive")
	}
	if c.RelevanceBatchSize <= 0 || c.ClassifyBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	switch c.SummaryBackend {
	case "", "openai":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic summary backend requires ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unknown summary backend %q", c.SummaryBackend)
	}
	return nil
}
