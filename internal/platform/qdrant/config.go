package qdrant

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/platform/envutil"
)

const (
	defaultCollection      = "curriculum_standards"
	defaultNamespacePrefix = "lf"
	// text-embedding-3-small
	defaultVectorDim = 1536
)

type Config struct {
	URL             string
	Collection      string
	NamespacePrefix string
	VectorDim       int
}

type ConfigErrorCode string

const (
	ConfigErrorMissingURL        ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL        ConfigErrorCode = "invalid_url"
	ConfigErrorMissingCollection ConfigErrorCode = "missing_collection"
	ConfigErrorInvalidVectorDim  ConfigErrorCode = "invalid_vector_dim"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "QDRANT_URL is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid QDRANT_URL=%q; expected absolute URL like http://qdrant:6333", e.Value)
	case ConfigErrorMissingCollection:
		return "QDRANT_COLLECTION is required"
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid QDRANT_VECTOR_DIM=%q; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNotConfigured reports whether err only says QDRANT_URL is unset.
// Callers treat that as "vector retrieval disabled" rather than a failure.
func IsNotConfigured(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Code == ConfigErrorMissingURL
}

func ResolveConfigFromEnv() (Config, error) {
	rawDim := envutil.String("QDRANT_VECTOR_DIM", "")
	dim := defaultVectorDim
	if rawDim != "" {
		parsed, err := strconv.Atoi(rawDim)
		if err != nil {
			return Config{}, &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: rawDim, Cause: err}
		}
		dim = parsed
	}
	cfg := Config{
		URL:             envutil.String("QDRANT_URL", ""),
		Collection:      envutil.String("QDRANT_COLLECTION", defaultCollection),
		NamespacePrefix: envutil.String("QDRANT_NAMESPACE_PREFIX", defaultNamespacePrefix),
		VectorDim:       dim,
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if cfg.URL == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.URL, Cause: err}
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return &ConfigError{Code: ConfigErrorMissingCollection}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: strconv.Itoa(cfg.VectorDim)}
	}
	return nil
}
