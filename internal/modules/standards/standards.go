package standards

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/qdrant"
)

// Standard is a curriculum standard as stored in the vector index.
type Standard struct {
	ID               string   `json:"standardId" yaml:"standard_id"`
	Text             string   `json:"text" yaml:"text"`
	Curriculum       string   `json:"curriculum" yaml:"curriculum"`
	Subject          string   `json:"subject" yaml:"subject"`
	Grade            string   `json:"grade" yaml:"grade"`
	Chapter          string   `json:"chapter,omitempty" yaml:"chapter,omitempty"`
	LearningOutcomes []string `json:"learningOutcomes,omitempty" yaml:"learning_outcomes,omitempty"`
	Score            float64  `json:"score,omitempty" yaml:"-"`
}

type Query struct {
	Topic      string
	Subject    string
	Grade      string
	Curriculum string
	TopK       int
}

// Service retrieves standards relevant to a topic. Callers treat any error as "no standards".
type Service interface {
	Retrieve(ctx context.Context, q Query) ([]Standard, error)
	Seed(ctx context.Context, items []Standard) (int, error)
}

const namespace = "standards"

type Deps struct {
	Log      *logger.Logger
	Embedder llm.Embedder
	Store    qdrant.VectorStore
}

type service struct {
	log      *logger.Logger
	embedder llm.Embedder
	store    qdrant.VectorStore
}

func New(deps Deps) (Service, error) {
	if deps.Log == nil || deps.Embedder == nil || deps.Store == nil {
		return nil, fmt.Errorf("standards: missing deps")
	}
	return &service{log: deps.Log.With("service", "StandardsService"), embedder: deps.Embedder, store: deps.Store}, nil
}

func (s *service) Retrieve(ctx context.Context, q Query) ([]Standard, error) {
	topic := strings.TrimSpace(q.Topic)
	if topic == "" {
		return nil, nil
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 5
	}

	vecs, err := s.embedder.Embed(ctx, []string{topic})
	if err != nil {
		return nil, fmt.Errorf("embed topic: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed topic: got %d vectors", len(vecs))
	}

	filter := map[string]any{}
	if v := strings.TrimSpace(q.Subject); v != "" {
		filter["subject"] = v
	}
	if v := strings.TrimSpace(q.Grade); v != "" {
		filter["grade"] = v
	}
	if v := strings.TrimSpace(q.Curriculum); v != "" {
		filter["curriculum"] = v
	}

	matches, err := s.store.Search(ctx, namespace, vecs[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search standards: %w", err)
	}
	out := make([]Standard, 0, len(matches))
	for _, m := range matches {
		out = append(out, fromPayload(m))
	}
	s.log.Info("standards retrieved", "topic", topic, "count", len(out))
	return out, nil
}

// Seed embeds and upserts standards in one batch. Items without an id or text are skipped.
func (s *service) Seed(ctx context.Context, items []Standard) (int, error) {
	valid := make([]Standard, 0, len(items))
	texts := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Text) == "" {
			s.log.Warn("skipping standard without id or text", "standard_id", it.ID)
			continue
		}
		valid = append(valid, it)
		texts = append(texts, it.Text)
	}
	if len(valid) == 0 {
		return 0, nil
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed standards: %w", err)
	}
	points := make([]qdrant.Point, len(valid))
	for i, it := range valid {
		points[i] = qdrant.Point{ID: it.ID, Vector: vecs[i], Payload: toPayload(it)}
	}
	if err := s.store.Upsert(ctx, namespace, points); err != nil {
		return 0, fmt.Errorf("upsert standards: %w", err)
	}
	s.log.Info("standards seeded", "count", len(points))
	return len(points), nil
}

// InjectIntoPrompt appends an alignment block to the prompt. No standards leaves it unchanged.
func InjectIntoPrompt(prompt string, items []Standard) string {
	if len(items) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nCURRICULUM STANDARDS TO ALIGN WITH:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "\n- [%s] %s", it.ID, it.Text)
	}
	b.WriteString("\n\nIMPORTANT: Your lesson content MUST align with these standards.\n")
	return b.String()
}

// IDs returns the standard ids in order.
func IDs(items []Standard) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

//go:embed data/sample_standards.yaml
var sampleStandards []byte

// Samples returns the bundled sample standards.
func Samples() ([]Standard, error) {
	return parseYAML(sampleStandards)
}

// LoadFile reads a YAML list of standards.
func LoadFile(path string) ([]Standard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read standards file: %w", err)
	}
	return parseYAML(raw)
}

func parseYAML(raw []byte) ([]Standard, error) {
	var out []Standard
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse standards yaml: %w", err)
	}
	return out, nil
}

func toPayload(s Standard) map[string]any {
	p := map[string]any{
		"standard_id": s.ID,
		"text":        s.Text,
		"curriculum":  s.Curriculum,
		"subject":     s.Subject,
		"grade":       s.Grade,
	}
	if s.Chapter != "" {
		p["chapter"] = s.Chapter
	}
	if len(s.LearningOutcomes) > 0 {
		p["learning_outcomes"] = s.LearningOutcomes
	}
	return p
}

func fromPayload(m qdrant.Match) Standard {
	str := func(k string) string {
		v, _ := m.Payload[k].(string)
		return v
	}
	out := Standard{
		ID:         str("standard_id"),
		Text:       str("text"),
		Curriculum: str("curriculum"),
		Subject:    str("subject"),
		Grade:      str("grade"),
		Chapter:    str("chapter"),
		Score:      m.Score,
	}
	if out.ID == "" {
		out.ID = m.ID
	}
	if raw, ok := m.Payload["learning_outcomes"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				out.LearningOutcomes = append(out.LearningOutcomes, s)
			}
		}
	}
	return out
}
