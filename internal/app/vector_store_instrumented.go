package app

import (
	"context"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/qdrant"
)

const vectorStorePipeline = "vector_store"

type instrumentedVectorStore struct {
	inner   qdrant.VectorStore
	metrics *observability.Metrics
}

// instrumentVectorStore records every store call as a vector_store stage. Without metrics it returns inner.
func instrumentVectorStore(inner qdrant.VectorStore, metrics *observability.Metrics) qdrant.VectorStore {
	if inner == nil || metrics == nil {
		return inner
	}
	return &instrumentedVectorStore{inner: inner, metrics: metrics}
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, namespace string, points []qdrant.Point) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, namespace, points)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) Search(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]qdrant.Match, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, namespace, vector, topK, filter)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) Delete(ctx context.Context, namespace string, ids []string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, namespace, ids)
	s.observe("delete", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStage(vectorStorePipeline, operation, status, dur)
}
