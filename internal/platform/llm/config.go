package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/platform/envutil"
)

type Config struct {
	// Provider is one of "openai", "anthropic", "gemini" or "mock".
	Provider string

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	Retry     RetryConfig

	// Timeout bounds a single call including retries.
	Timeout time.Duration

	// CacheTTL enables the redis response cache when positive.
	CacheTTL time.Duration
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	EmbeddingModel string
	HTTPClient     *http.Client
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini", EmbeddingModel: defaultEmbeddingModel},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry:     DefaultRetryConfig(),
		Timeout:   90 * time.Second,
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Provider = strings.ToLower(envutil.String("LLM_PROVIDER", cfg.Provider))

	cfg.OpenAI.APIKey = envutil.String("OPENAI_API_KEY", "")
	cfg.OpenAI.Model = envutil.String("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.BaseURL = envutil.String("OPENAI_BASE_URL", "")
	cfg.OpenAI.EmbeddingModel = envutil.String("OPENAI_EMBED_MODEL", cfg.OpenAI.EmbeddingModel)

	cfg.Anthropic.APIKey = envutil.String("ANTHROPIC_API_KEY", "")
	cfg.Anthropic.Model = envutil.String("ANTHROPIC_MODEL", cfg.Anthropic.Model)

	cfg.Gemini.APIKey = envutil.String("GEMINI_API_KEY", "")
	cfg.Gemini.Model = envutil.String("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.Retry.MaxAttempts = envutil.Int("LLM_MAX_ATTEMPTS", cfg.Retry.MaxAttempts)
	cfg.Timeout = time.Duration(envutil.Int("LLM_TIMEOUT_SECONDS", int(cfg.Timeout/time.Second))) * time.Second
	cfg.CacheTTL = time.Duration(envutil.Int("LLM_CACHE_TTL_SECONDS", 0)) * time.Second
	return cfg
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be >= 1")
	}
	return nil
}
