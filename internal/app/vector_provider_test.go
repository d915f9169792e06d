package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/qdrant"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type testVectorStore struct {
	upsertCalls int
	searchCalls int
	deleteErr   error
}

func (s *testVectorStore) Upsert(context.Context, string, []qdrant.Point) error {
	s.upsertCalls++
	return nil
}

func (s *testVectorStore) Search(context.Context, string, []float32, int, map[string]any) ([]qdrant.Match, error) {
	s.searchCalls++
	return []qdrant.Match{{ID: "ICSE-PHY-9-1", Score: 0.8, Payload: map[string]any{"text": "Motion in one dimension"}}}, nil
}

func (s *testVectorStore) Delete(context.Context, string, []string) error {
	return s.deleteErr
}

func stubQdrant(t *testing.T, cfgErr error, store qdrant.VectorStore) *qdrant.Config {
	t.Helper()
	origResolve, origNew := resolveQdrantConfig, newQdrantStore
	t.Cleanup(func() {
		resolveQdrantConfig = origResolve
		newQdrantStore = origNew
	})
	var captured qdrant.Config
	resolveQdrantConfig = func() (qdrant.Config, error) {
		if cfgErr != nil {
			return qdrant.Config{}, cfgErr
		}
		return qdrant.Config{URL: "http://qdrant:6333", Collection: "curriculum_standards", VectorDim: 3}, nil
	}
	newQdrantStore = func(_ context.Context, _ *logger.Logger, cfg qdrant.Config) (qdrant.VectorStore, error) {
		captured = cfg
		return store, nil
	}
	return &captured
}

func TestResolveStandardsDisabledWithoutURL(t *testing.T) {
	stubQdrant(t, &qdrant.ConfigError{Code: qdrant.ConfigErrorMissingURL}, nil)
	svc, err := resolveStandards(context.Background(), logger.NewNop(), stubEmbedder{}, nil)
	if err != nil || svc != nil {
		t.Fatalf("want disabled retrieval, got svc=%v err=%v", svc, err)
	}
}

func TestResolveStandardsInvalidConfigFails(t *testing.T) {
	stubQdrant(t, &qdrant.ConfigError{Code: qdrant.ConfigErrorInvalidURL, Value: "::"}, nil)
	_, err := resolveStandards(context.Background(), logger.NewNop(), stubEmbedder{}, nil)
	var ce *qdrant.ConfigError
	if !errors.As(err, &ce) || ce.Code != qdrant.ConfigErrorInvalidURL {
		t.Fatalf("want invalid url config error, got=%v", err)
	}
}

func TestResolveStandardsDisabledWithoutEmbedder(t *testing.T) {
	stubQdrant(t, nil, &testVectorStore{})
	svc, err := resolveStandards(context.Background(), logger.NewNop(), nil, nil)
	if err != nil || svc != nil {
		t.Fatalf("want disabled retrieval, got svc=%v err=%v", svc, err)
	}
}

func TestResolveStandardsUsesInstrumentedStore(t *testing.T) {
	store := &testVectorStore{}
	captured := stubQdrant(t, nil, store)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	svc, err := resolveStandards(context.Background(), logger.NewNop(), stubEmbedder{}, metrics)
	if err != nil || svc == nil {
		t.Fatalf("resolveStandards: svc=%v err=%v", svc, err)
	}
	if captured.URL != "http://qdrant:6333" {
		t.Fatalf("qdrant url: want=%q got=%q", "http://qdrant:6333", captured.URL)
	}
	if _, err := svc.Retrieve(context.Background(), standards.Query{Topic: "motion", Subject: "Physics", Grade: "9", TopK: 3}); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.searchCalls != 1 {
		t.Fatalf("underlying store not called; search_calls=%d", store.searchCalls)
	}
}

func TestInstrumentVectorStorePassThrough(t *testing.T) {
	inner := &testVectorStore{deleteErr: errors.New("delete failed")}
	if got := instrumentVectorStore(inner, nil); got != qdrant.VectorStore(inner) {
		t.Fatalf("nil metrics should return the inner store")
	}

	vs := instrumentVectorStore(inner, observability.NewMetrics(prometheus.NewRegistry()))
	if err := vs.Upsert(context.Background(), "standards", []qdrant.Point{{ID: "a", Vector: []float32{1}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := vs.Delete(context.Background(), "standards", []string{"a"}); !errors.Is(err, inner.deleteErr) {
		t.Fatalf("Delete: want=%v got=%v", inner.deleteErr, err)
	}
	if inner.upsertCalls != 1 {
		t.Fatalf("upsert calls: want=1 got=%d", inner.upsertCalls)
	}
}
