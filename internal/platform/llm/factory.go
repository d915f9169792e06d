package llm

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

// NewProvider builds the configured backend wrapped as
// instrumentation -> cache (optional) -> retry -> base.
// rdb may be nil; obs may be nil.
func NewProvider(ctx context.Context, log *logger.Logger, cfg Config, rdb goredis.Cmdable, obs Observer) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	var p Provider = WithRetry(base, cfg.Retry)
	if rdb != nil && cfg.CacheTTL > 0 {
		p = WithCache(p, rdb, cfg.CacheTTL, log)
	}
	return WithInstrumentation(p, cfg.Provider, log, obs), nil
}

// NewEmbedder returns an OpenAI embedder when a key is configured, otherwise nil.
func NewEmbedder(cfg Config) (Embedder, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, nil
	}
	return NewOpenAIProvider(cfg.OpenAI)
}

// NewImageGenerator returns the OpenAI image generator when a key is configured, otherwise nil.
func NewImageGenerator(cfg Config) (ImageGenerator, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, nil
	}
	return NewOpenAIProvider(cfg.OpenAI)
}
