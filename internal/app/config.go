package app

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/yungbote/lessonforge-backend/internal/platform/gcp"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type Config struct {
	LogMode     string   `envconfig:"LOG_MODE" default:"development"`
	Port        string   `envconfig:"PORT" default:"8080"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Version     string   `envconfig:"APP_VERSION" default:"dev"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"lessonforge:progress"`

	PaidVisuals      bool `envconfig:"PAID_VISUALS_ENABLED" default:"false"`
	SlideConcurrency int  `envconfig:"SLIDE_CONCURRENCY" default:"4"`

	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"lessonforge"`
	// StandardsFile seeds qdrant at startup when set.
	StandardsFile string `envconfig:"STANDARDS_SEED_FILE"`
	// GCPMedia turns on image and voice questions. Google credentials in the environment imply it.
	GCPMedia bool `envconfig:"GCP_MEDIA_ENABLED" default:"false"`

	// LLM is resolved by the llm package from its own variables.
	LLM llm.Config `ignored:"true"`
}

// LoadConfig reads an optional .env file, then the process environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("could not load .env", "error", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.SlideConcurrency < 1 {
		cfg.SlideConcurrency = 1
	}
	cfg.GCPMedia = cfg.GCPMedia || gcp.Enabled()
	cfg.LLM = llm.ConfigFromEnv()
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
