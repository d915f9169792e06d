package visuals

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type ClassifierDeps struct {
	Log *logger.Logger
	LLM llm.Client
}

// Classifier decides how a slide should be visualized. Pattern detectors run first and the LLM
// is consulted only when they are not decisive.
type Classifier struct {
	log *logger.Logger
	llm llm.Client
}

func NewClassifier(deps ClassifierDeps) *Classifier {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Classifier{log: log.With("service", "ContentClassifier"), llm: deps.LLM}
}

var classificationSchema = &llm.Schema{
	Name: "visual_classification_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"visualType": map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number"},
			"reasoning":  map[string]any{"type": "string"},
			"metadata":   map[string]any{"type": "object"},
		},
	},
}

// Classify never fails. LLM errors become a "none" verdict with confidence 0.
func (c *Classifier) Classify(ctx context.Context, title, content, subject string) Classification {
	quick := quickDetect(title, content)
	if quick != nil && (quick.Confidence >= shortCircuitScore || quick.VisualType == TypeMath) {
		return *quick
	}

	out := c.classifyLLM(ctx, title, content, subject)
	if quick != nil && quick.Confidence >= 70 && quick.VisualType == out.VisualType {
		out.Confidence = min(100, out.Confidence+10)
	}
	return out
}

func (c *Classifier) classifyLLM(ctx context.Context, title, content, subject string) Classification {
	if c.llm == nil {
		return Classification{VisualType: TypeNone, Metadata: map[string]any{}, Reasoning: "Analysis failed: no completion client configured"}
	}
	obj, err := c.llm.CompleteJSON(ctx, llm.Prompt{
		System:      classifierSystemPrompt,
		User:        classifierUserPrompt(title, content, subject),
		MaxTokens:   500,
		Temperature: 0.3,
		Schema:      classificationSchema,
		Purpose:     "visual_classify",
	})
	if err != nil {
		c.log.Warn("classification failed", "title", title, "error", err)
		return Classification{VisualType: TypeNone, Confidence: 0, Metadata: map[string]any{}, Reasoning: fmt.Sprintf("Analysis failed: %v", err)}
	}
	return decodeClassification(obj)
}

func decodeClassification(obj map[string]any) Classification {
	out := Classification{
		Confidence: clampConfidence(jsonx.Int(obj, "confidence", 50)),
		Metadata:   jsonx.Object(obj, "metadata"),
		Reasoning:  jsonx.String(obj, "reasoning", "AI analysis completed"),
	}
	vt, ok := ParseVisualType(jsonx.String(obj, "visualType", ""))
	if !ok {
		vt = TypeNone
		out.Confidence = 30
	}
	out.VisualType = vt

	if vt == TypeChart {
		if _, present := out.Metadata["dataPoints"]; present {
			out.Metadata["dataPoints"] = dataPointsFrom(out.Metadata["dataPoints"])
		}
	}
	return out
}

func clampConfidence(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

const classifierSystemPrompt = "You are an educational content analyst. You decide which kind of visual, if any, " +
	"helps students understand a slide, and you favour free renderers over paid illustration."

func classifierUserPrompt(title, content, subject string) string {
	return strings.Join([]string{
		"Pick the single best visualization for this slide.",
		"",
		"SLIDE:",
		"Title: " + strings.TrimSpace(title),
		"Content: " + strings.TrimSpace(content),
		"Subject: " + strings.TrimSpace(subject),
		"",
		"TYPES:",
		"- diagram: processes, cycles, timelines, concept maps (set metadata.diagramType to flowchart, mindmap or timeline)",
		"- chart: numerical data, statistics, trends (metadata.chartType bar|line|pie, metadata.dataPoints [{label, value}])",
		"- math: equations and formulas (metadata.equations)",
		"- illustration: scenes that no diagram, chart or equation can convey; it costs money, use rarely",
		"- none: the text stands on its own",
		"",
		"Confidence (0-100) is how much the visual would help.",
		`Return JSON: {"visualType": "...", "confidence": 0, "reasoning": "...", "metadata": {}}`,
	}, "\n")
}
