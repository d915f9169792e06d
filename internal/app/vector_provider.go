package app

import (
	"context"
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/qdrant"
)

var (
	resolveQdrantConfig = qdrant.ResolveConfigFromEnv
	newQdrantStore      = func(ctx context.Context, log *logger.Logger, cfg qdrant.Config) (qdrant.VectorStore, error) {
		return qdrant.NewStore(ctx, log, cfg)
	}
)

// resolveStandards builds the standards retrieval service. It returns nil, nil when
// retrieval is disabled (no QDRANT_URL or no embedder); decks are then generated without standards.
func resolveStandards(ctx context.Context, log *logger.Logger, embedder llm.Embedder, metrics *observability.Metrics) (standards.Service, error) {
	qcfg, err := resolveQdrantConfig()
	if err != nil {
		if qdrant.IsNotConfigured(err) {
			log.Info("QDRANT_URL not set; curriculum standards retrieval disabled")
			return nil, nil
		}
		return nil, fmt.Errorf("resolve qdrant config: %w", err)
	}
	if embedder == nil {
		log.Warn("no embedder configured (OPENAI_API_KEY missing); curriculum standards retrieval disabled")
		return nil, nil
	}

	log.Info(
		"Selecting vector store",
		"provider", "qdrant",
		"qdrant_url", qcfg.URL,
		"qdrant_collection", qcfg.Collection,
		"qdrant_namespace_prefix", qcfg.NamespacePrefix,
		"qdrant_vector_dim", qcfg.VectorDim,
	)
	store, err := newQdrantStore(ctx, log, qcfg)
	if err != nil {
		log.Error("Vector store bootstrap failed", "provider", "qdrant", "error", err)
		return nil, fmt.Errorf("init qdrant: %w", err)
	}
	return standards.New(standards.Deps{
		Log:      log,
		Embedder: embedder,
		Store:    instrumentVectorStore(store, metrics),
	})
}
