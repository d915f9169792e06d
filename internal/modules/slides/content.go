package slides

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/envutil"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	// PlaceholderContent replaces the body of a slide whose generation failed.
	PlaceholderContent = "Content generation in progress. Please regenerate this slide."

	contentMaxTokens = 800
	notesMaxTokens   = 200
	defaultSlideConc = 4
)

type ContentAgentDeps struct {
	Log *logger.Logger
	LLM llm.Client
	// Images is optional; without it slides carry no image query.
	Images  *ImageDirector
	Metrics *observability.Metrics
	// Concurrency bounds parallel slide generation. Zero reads SLIDE_CONCURRENCY.
	Concurrency int
}

type ContentAgent struct {
	log     *logger.Logger
	llm     llm.Client
	images  *ImageDirector
	metrics *observability.Metrics
	conc    int
}

func NewContentAgent(deps ContentAgentDeps) *ContentAgent {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	conc := deps.Concurrency
	if conc <= 0 {
		conc = envutil.Int("SLIDE_CONCURRENCY", defaultSlideConc)
	}
	if conc <= 0 {
		conc = defaultSlideConc
	}
	return &ContentAgent{
		log:     log.With("service", "ContentAgent"),
		llm:     deps.LLM,
		images:  deps.Images,
		metrics: deps.Metrics,
		conc:    conc,
	}
}

// Expand writes every outline entry into a slide. The result has exactly one slide per entry,
// in outline order; failed slides are placeholders.
func (a *ContentAgent) Expand(ctx context.Context, outline []lesson.OutlineEntry, subject, grade string) []lesson.Slide {
	start := time.Now()
	out := make([]lesson.Slide, len(outline))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.conc)
	for i := range outline {
		i, entry := i, outline[i]
		g.Go(func() error {
			out[i] = a.StreamSlide(gctx, i, entry, subject, grade, nil)
			return nil
		})
	}
	_ = g.Wait()

	a.log.Info("slides expanded", "count", len(out), "subject", subject, "ms", time.Since(start).Milliseconds())
	return out
}

// StreamSlide writes one slide, passing body deltas to onDelta when it is non-nil.
// It never fails: a body failure or a panic in a collaborator yields PlaceholderSlide.
func (a *ContentAgent) StreamSlide(ctx context.Context, index int, entry lesson.OutlineEntry, subject, grade string, onDelta func(string)) (slide lesson.Slide) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = fmt.Sprintf("Slide %d", index+1)
		entry.Title = title
	}
	defer func() {
		if p := recover(); p != nil {
			a.log.Error("slide content panicked", "index", index, "title", title, "panic", p)
			a.metrics.IncFallback("slide_content")
			slide = PlaceholderSlide(index, entry)
		}
	}()

	body, err := a.body(ctx, entry, subject, grade, onDelta)
	if err != nil {
		a.log.Error("slide content failed", "index", index, "title", title, "error", err)
		a.metrics.IncFallback("slide_content")
		return PlaceholderSlide(index, entry)
	}

	slide = lesson.Slide{
		Title:      title,
		Content:    body,
		Order:      index,
		SlideType:  entry.SlideType,
		BloomLevel: entry.BloomLevel,
		Objective:  entry.Objective,
	}
	slide.SpeakerNotes = a.speakerNotes(ctx, slide, grade)
	if q := a.images.Query(ctx, slide, subject, grade); q != nil {
		slide.ImageQuery = lesson.StringPtr(q.Query)
	}
	return slide
}

// PlaceholderSlide keeps the outline header of a slide whose body could not be generated.
func PlaceholderSlide(index int, entry lesson.OutlineEntry) lesson.Slide {
	return lesson.Slide{
		Title:      entry.Title,
		Content:    PlaceholderContent,
		Order:      index,
		SlideType:  entry.SlideType,
		BloomLevel: entry.BloomLevel,
		Objective:  entry.Objective,
	}
}

// TeachingTip is the speaker note used when notes cannot be generated.
func TeachingTip(level lesson.CognitiveLevel) string {
	return fmt.Sprintf("Teaching tip: Focus on %s-level skills when presenting this content.", level.Lower())
}

func (a *ContentAgent) body(ctx context.Context, entry lesson.OutlineEntry, subject, grade string, onDelta func(string)) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("no completion client configured")
	}
	text, err := a.llm.StreamText(ctx, llm.Prompt{
		System:    contentSystemPrompt(subject, grade),
		User:      contentUserPrompt(entry, subject, grade),
		MaxTokens: contentMaxTokens,
		Purpose:   "slide_content",
	}, onDelta)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty slide content")
	}
	return text, nil
}

func (a *ContentAgent) speakerNotes(ctx context.Context, slide lesson.Slide, grade string) string {
	text, err := a.llm.StreamText(ctx, llm.Prompt{
		System: "You write concise speaker notes for teachers. Under 100 words, practical, no headings.",
		User: strings.Join([]string{
			"Write speaker notes for this slide.",
			"Title: " + slide.Title,
			"Cognitive level: " + string(slide.BloomLevel),
			"Grade: " + grade,
			"",
			slide.Content,
			"",
			"Include one delivery tip and one check for understanding.",
		}, "\n"),
		MaxTokens: notesMaxTokens,
		Purpose:   "speaker_notes",
	}, nil)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			a.log.Warn("speaker notes failed", "title", slide.Title, "error", err)
		}
		a.metrics.IncFallback("speaker_notes")
		return TeachingTip(slide.BloomLevel)
	}
	return text
}

var scienceSubjects = []string{"physics", "chemistry", "science", "biology"}

func isScience(subject string) bool {
	s := strings.ToLower(subject)
	for _, k := range scienceSubjects {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func contentSystemPrompt(subject, grade string) string {
	lines := []string{
		fmt.Sprintf("You write slide content for a grade %s %s lesson.", grade, subject),
		"Write 3-6 short bullet points or a worked example. Plain text, no markdown headings.",
		"Use vocabulary appropriate for the grade and end with a question when it helps engagement.",
	}
	if isScience(subject) {
		lines = append(lines,
			"Use correct SI units and notation. Write formulas inline, for example F = m * a.",
			"Connect every concept to an everyday observation or experiment.",
		)
	}
	return strings.Join(lines, "\n")
}

func contentUserPrompt(entry lesson.OutlineEntry, subject, grade string) string {
	return strings.Join([]string{
		"Slide title: " + entry.Title,
		"Slide type: " + string(entry.SlideType),
		"Cognitive level: " + string(entry.BloomLevel),
		"Objective: " + entry.Objective,
		"Subject: " + subject,
		"Grade: " + grade,
		"",
		slideTypeGuidance(entry.SlideType),
	}, "\n")
}

func slideTypeGuidance(t lesson.SlideType) string {
	switch t {
	case lesson.SlideIntroduction:
		return "Open with a hook or real-world question, then define the key terms."
	case lesson.SlideActivity:
		return "Write 2-3 practice questions of rising difficulty with the answer to the first one."
	case lesson.SlideAssessment:
		return "Write assessment questions that require analysis or evaluation. Do not give answers."
	case lesson.SlideSummary:
		return "Summarize the key takeaways and end with a reflection prompt."
	default:
		return "Explain the concept step by step with one worked example."
	}
}
