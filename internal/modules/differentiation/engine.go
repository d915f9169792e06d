package differentiation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	minFilteredSlides = 2
	fallbackSlides    = 5
	defaultConc       = 6
)

type Deps struct {
	Log         *logger.Logger
	LLM         llm.Client
	Metrics     *observability.Metrics
	Concurrency int
}

// Engine derives SUPPORT and EXTENSION variants of a finished core deck.
type Engine struct {
	log     *logger.Logger
	llm     llm.Client
	metrics *observability.Metrics
	conc    int
}

func New(deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	conc := deps.Concurrency
	if conc <= 0 {
		conc = defaultConc
	}
	return &Engine{
		log:     log.With("service", "DifferentiationEngine"),
		llm:     deps.LLM,
		metrics: deps.Metrics,
		conc:    conc,
	}
}

// Rationale is the speaker-note line that explains a level's rewrite.
func Rationale(level lesson.DifferentiationLevel) string {
	switch level {
	case lesson.DiffSupport:
		return "SUPPORT Level: Simplified vocabulary and concepts for struggling learners. Focus on foundational understanding."
	case lesson.DiffExtension:
		return "EXTENSION Level: Advanced content with critical thinking challenges for gifted learners. Emphasizes higher-order skills."
	default:
		return "CORE Level: Standard grade-level content."
	}
}

// FilterSlides keeps the slides whose level is allowed. When fewer than two survive,
// the first five slides of the source are used unfiltered.
func FilterSlides(slides []lesson.Slide, level lesson.DifferentiationLevel) ([]lesson.Slide, bool) {
	allowed := level.AllowedLevels()
	out := make([]lesson.Slide, 0, len(slides))
	for _, s := range slides {
		if allowed[s.BloomLevel] {
			out = append(out, s.Clone())
		}
	}
	if len(out) >= minFilteredSlides {
		return out, false
	}
	n := len(slides)
	if n > fallbackSlides {
		n = fallbackSlides
	}
	out = make([]lesson.Slide, 0, n)
	for _, s := range slides[:n] {
		out = append(out, s.Clone())
	}
	return out, true
}

// Derive returns the core deck itself for CORE. Other levels get a new deck; the core is never mutated.
func (e *Engine) Derive(ctx context.Context, core lesson.Deck, level lesson.DifferentiationLevel) lesson.Deck {
	if level != lesson.DiffSupport && level != lesson.DiffExtension {
		return core
	}
	start := time.Now()
	log := e.log.With("level", string(level), "topic", core.Meta.Topic)

	slides, fellBack := FilterSlides(core.Slides, level)
	if fellBack {
		log.Warn("too few slides after filtering, using the first slides of the core deck", "kept", len(slides))
		e.metrics.IncFallback("differentiation_filter")
	}

	grade := lesson.GradeNumber(core.Meta.Grade)
	out := make([]lesson.Slide, len(slides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.conc)
	for i := range slides {
		i, s := i, slides[i]
		g.Go(func() error {
			out[i] = e.rewrite(gctx, log, s, level, grade, core.Meta.Subject)
			out[i].Order = i
			return nil
		})
	}
	_ = g.Wait()

	d := core.Clone()
	d.Slides = out
	d.Meta.Topic = fmt.Sprintf("%s (%s Level)", core.Meta.Topic, level)
	d.Structure.BloomProgression = lesson.BloomProgression(out)

	log.Info("derived deck", "slides", len(out), "ms", time.Since(start).Milliseconds())
	return d
}

// DeriveAll derives every requested level concurrently.
func (e *Engine) DeriveAll(ctx context.Context, core lesson.Deck, levels ...lesson.DifferentiationLevel) map[lesson.DifferentiationLevel]lesson.Deck {
	out := make(map[lesson.DifferentiationLevel]lesson.Deck, len(levels))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, level := range levels {
		level := level
		g.Go(func() error {
			d := e.Derive(gctx, core, level)
			mu.Lock()
			out[level] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// rewrite returns the slide unmodified when the transform fails.
func (e *Engine) rewrite(ctx context.Context, log *logger.Logger, s lesson.Slide, level lesson.DifferentiationLevel, grade int, subject string) lesson.Slide {
	if e.llm == nil {
		return s
	}
	p := rewritePrompt(s, level, grade, subject)
	text, err := e.llm.StreamText(ctx, p, nil)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = fmt.Errorf("empty rewrite")
	}
	if err != nil {
		log.Error("slide rewrite failed, keeping original", "title", s.Title, "error", err)
		e.metrics.IncFallback("differentiation_rewrite")
		return s
	}
	s.Content = text
	if s.SpeakerNotes == "" {
		s.SpeakerNotes = Rationale(level)
	} else {
		s.SpeakerNotes = s.SpeakerNotes + "\n\n" + Rationale(level)
	}
	return s
}

func rewritePrompt(s lesson.Slide, level lesson.DifferentiationLevel, grade int, subject string) llm.Prompt {
	if level == lesson.DiffSupport {
		target := grade - 2
		if target < 1 {
			target = 1
		}
		return llm.Prompt{
			System: strings.Join([]string{
				"You adapt classroom content for students who need extra support.",
				"Use simple words, short sentences and concrete examples.",
			}, "\n"),
			User: strings.Join([]string{
				fmt.Sprintf("Rewrite this %s slide for struggling learners at grade %d level.", subject, target),
				"Title: " + s.Title,
				"Content:",
				s.Content,
				"",
				"At most 3 bullet points. Explain any technical term in parentheses.",
			}, "\n"),
			MaxTokens: 250,
			Purpose:   "differentiate_support",
		}
	}
	return llm.Prompt{
		System: strings.Join([]string{
			"You adapt classroom content for advanced students.",
			"Add depth and use precise technical vocabulary.",
		}, "\n"),
		User: strings.Join([]string{
			fmt.Sprintf("Rewrite this %s slide for advanced learners at grade %d level.", subject, grade+2),
			"Title: " + s.Title,
			"Content:",
			s.Content,
			"",
			fmt.Sprintf("Include one critical thinking question at %s level or higher and one research challenge.", s.BloomLevel),
		}, "\n"),
		MaxTokens: 350,
		Purpose:   "differentiate_extension",
	}
}
