package slides

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const standardsTopK = 3

type OutlinerDeps struct {
	Log *logger.Logger
	LLM llm.Client
	// Standards is optional. Without it outlines are not aligned to curriculum standards.
	Standards standards.Service
	Metrics   *observability.Metrics
}

type Outliner struct {
	log       *logger.Logger
	llm       llm.Client
	standards standards.Service
	metrics   *observability.Metrics
}

func NewOutliner(deps OutlinerDeps) *Outliner {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Outliner{
		log:       log.With("service", "Outliner"),
		llm:       deps.LLM,
		standards: deps.Standards,
		metrics:   deps.Metrics,
	}
}

// Outline is the slide skeleton of a lesson plus the standards it was aligned to.
type Outline struct {
	Entries    []lesson.OutlineEntry
	Standards  []standards.Standard
	Curriculum lesson.Curriculum
	Warnings   []string
	// Fallback is set when the fixed four-slide skeleton replaced a failed outline.
	Fallback bool
}

// FallbackOutline is the fixed skeleton used when outline generation fails.
func FallbackOutline(topic string) []lesson.OutlineEntry {
	return []lesson.OutlineEntry{
		{Title: "Introduction to " + topic, SlideType: lesson.SlideIntroduction, BloomLevel: lesson.LevelRemember, Objective: "Define key terms"},
		{Title: "Key Concepts", SlideType: lesson.SlideConcept, BloomLevel: lesson.LevelUnderstand, Objective: "Explain main ideas"},
		{Title: "Application", SlideType: lesson.SlideActivity, BloomLevel: lesson.LevelApply, Objective: "Apply knowledge"},
		{Title: "Summary", SlideType: lesson.SlideSummary, BloomLevel: lesson.LevelCreate, Objective: "Synthesize learning"},
	}
}

var outlineSchema = &llm.Schema{
	Name: "lesson_outline_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slides": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":       map[string]any{"type": "string"},
						"slideType":   map[string]any{"type": "string"},
						"bloom_level": map[string]any{"type": "string"},
						"objective":   map[string]any{"type": "string"},
					},
					"required": []any{"title"},
				},
			},
		},
		"required": []any{"slides"},
	},
}

// CreateOutline never fails: any error or an empty outline yields FallbackOutline.
func (o *Outliner) CreateOutline(ctx context.Context, topic, subject, grade string) Outline {
	curriculum := lesson.CurriculumForGrade(grade)
	out := Outline{Curriculum: curriculum, Standards: o.retrieveStandards(ctx, topic, subject, grade, curriculum)}

	entries, err := o.generate(ctx, topic, subject, grade, curriculum, out.Standards)
	if err == nil && len(entries) == 0 {
		err = fmt.Errorf("outline has no slides")
	}
	if err != nil {
		o.log.Error("outline generation failed, using fallback", "topic", topic, "error", err)
		o.metrics.IncFallback("outline")
		out.Entries = FallbackOutline(topic)
		out.Fallback = true
		return out
	}

	levels := make([]lesson.CognitiveLevel, len(entries))
	for i, e := range entries {
		levels[i] = e.BloomLevel
	}
	out.Warnings = lesson.ProgressionWarnings(levels)
	for _, w := range out.Warnings {
		o.log.Warn("cognitive progression", "topic", topic, "warning", w)
	}
	out.Entries = entries
	return out
}

func (o *Outliner) retrieveStandards(ctx context.Context, topic, subject, grade string, curriculum lesson.Curriculum) []standards.Standard {
	if o.standards == nil {
		return []standards.Standard{}
	}
	items, err := o.standards.Retrieve(ctx, standards.Query{
		Topic:      topic,
		Subject:    subject,
		Grade:      fmt.Sprint(lesson.GradeNumber(grade)),
		Curriculum: string(curriculum),
		TopK:       standardsTopK,
	})
	if err != nil {
		o.log.Warn("standards retrieval failed, proceeding without standards", "topic", topic, "error", err)
		return []standards.Standard{}
	}
	if len(items) > 0 {
		o.log.Info("aligned with standards", "standards", strings.Join(standards.IDs(items), ", "))
	}
	return items
}

func (o *Outliner) generate(ctx context.Context, topic, subject, grade string, curriculum lesson.Curriculum, stds []standards.Standard) ([]lesson.OutlineEntry, error) {
	if o.llm == nil {
		return nil, fmt.Errorf("no completion client configured")
	}
	system := outlinerSystemPrompt
	if len(stds) > 0 {
		system = standards.InjectIntoPrompt(system, stds)
	}
	obj, err := o.llm.CompleteJSON(ctx, llm.Prompt{
		System:    system,
		User:      outlinerUserPrompt(topic, subject, grade, curriculum),
		MaxTokens: 1600,
		Schema:    outlineSchema,
		Purpose:   "outline",
	})
	if err != nil {
		return nil, err
	}
	return decodeOutline(o.log, obj), nil
}

// decodeOutline parses enums with their fallbacks and drops untitled entries.
func decodeOutline(log *logger.Logger, obj map[string]any) []lesson.OutlineEntry {
	items := jsonx.ObjectList(obj, "slides")
	out := make([]lesson.OutlineEntry, 0, len(items))
	for i, item := range items {
		title := jsonx.String(item, "title", "")
		if title == "" {
			continue
		}
		st, ok := lesson.ParseSlideType(jsonx.String(item, "slideType", jsonx.String(item, "type", "")))
		if !ok {
			log.Warn("unknown slide type, using CONCEPT", "slide", i, "title", title)
		}
		level, ok := lesson.ParseCognitiveLevel(jsonx.String(item, "bloom_level", jsonx.String(item, "bloomLevel", "")))
		if !ok {
			log.Warn("unknown cognitive level, using UNDERSTAND", "slide", i, "title", title)
		}
		out = append(out, lesson.OutlineEntry{
			Title:      title,
			SlideType:  st,
			BloomLevel: level,
			Objective:  jsonx.String(item, "objective", ""),
		})
	}
	return out
}

const outlinerSystemPrompt = `You are a curriculum designer who sequences lessons along Bloom's taxonomy.

Order slides from REMEMBER through UNDERSTAND, APPLY and ANALYZE, ending at EVALUATE or CREATE.
Teach with "I do, we do, you do" and interleave practice: every CONCEPT slide is followed by an ACTIVITY slide.
When the topic is broad, split it into 3-4 sub-topics and group slides around them.

Slide types:
- INTRODUCTION (1-2, REMEMBER): hook, definitions
- CONCEPT (3-5, UNDERSTAND/APPLY): explanations and worked examples
- ACTIVITY (4-6, APPLY/ANALYZE): practice questions for every sub-topic
- ASSESSMENT (3-4, ANALYZE/EVALUATE): includes a "Final Challenge Round" of 3+ mixed questions
- SUMMARY (1, CREATE): synthesis

Return a JSON object with a "slides" array.`

func outlinerUserPrompt(topic, subject, grade string, curriculum lesson.Curriculum) string {
	return strings.Join([]string{
		"Create a lesson outline.",
		"Topic: " + topic,
		"Subject: " + subject,
		"Grade: " + grade,
		"Curriculum: " + string(curriculum),
		"",
		"Produce 12-18 slides. For each slide give:",
		`- "title"`,
		`- "slideType": INTRODUCTION | CONCEPT | ACTIVITY | ASSESSMENT | SUMMARY`,
		`- "bloom_level": REMEMBER | UNDERSTAND | APPLY | ANALYZE | EVALUATE | CREATE`,
		`- "objective": one measurable learning objective`,
		"",
		`Example: {"slides": [{"title": "What is ` + topic + `?", "slideType": "INTRODUCTION", "bloom_level": "REMEMBER", "objective": "Define ` + topic + ` and its key terms"}]}`,
	}, "\n")
}
