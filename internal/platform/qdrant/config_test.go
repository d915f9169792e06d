package qdrant

import (
	"errors"
	"testing"
)

func TestResolveConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_VECTOR_DIM", "")
	t.Setenv("QDRANT_NAMESPACE_PREFIX", "")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != defaultCollection {
		t.Fatalf("Collection: want=%q got=%q", defaultCollection, cfg.Collection)
	}
	if cfg.VectorDim != defaultVectorDim {
		t.Fatalf("VectorDim: want=%d got=%d", defaultVectorDim, cfg.VectorDim)
	}
	if cfg.NamespacePrefix != "lf" {
		t.Fatalf("NamespacePrefix: want=%q got=%q", "lf", cfg.NamespacePrefix)
	}
}

func TestResolveConfigFromEnvMissingURLIsNotConfigured(t *testing.T) {
	t.Setenv("QDRANT_URL", "")
	_, err := ResolveConfigFromEnv()
	if !IsNotConfigured(err) {
		t.Fatalf("want not-configured error, got=%v", err)
	}
}

func TestResolveConfigFromEnvInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		code ConfigErrorCode
	}{
		{"bad url", "qdrant:6333", "", ConfigErrorInvalidURL},
		{"non-numeric dim", "http://qdrant:6333", "abc", ConfigErrorInvalidVectorDim},
		{"zero dim", "http://qdrant:6333", "0", ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)
			_, err := ResolveConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, cfgErr.Code)
			}
			if IsNotConfigured(err) {
				t.Fatalf("%s should not read as not-configured", tc.name)
			}
		})
	}
}
