package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/modules/differentiation"
	"github.com/yungbote/lessonforge-backend/internal/modules/slides"
	"github.com/yungbote/lessonforge-backend/internal/modules/standards"
	"github.com/yungbote/lessonforge-backend/internal/modules/visuals"
	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/realtime/bus"
)

const (
	pipelineAdvanced   = "advanced"
	pipelineStructured = "structured"
	pipelineModify     = "modify"
	pipelineStream     = "stream"
)

// Renderer writes a finished deck to a document format. Implementations are external sinks.
type Renderer interface {
	ContentType() string
	Render(ctx context.Context, d lesson.Deck, w io.Writer) error
}

type ServiceDeps struct {
	Log       *logger.Logger
	LLM       llm.Client
	Standards standards.Service
	Images    llm.ImageGenerator
	Metrics   *observability.Metrics
	// Bus is optional; stream events are also published on it.
	Bus bus.Bus
	// Renderer is optional; Export fails without it.
	Renderer    Renderer
	PaidVisuals bool
	Concurrency int

	// Components built from LLM when nil.
	Outliner        *slides.Outliner
	Content         *slides.ContentAgent
	Router          *visuals.Router
	Visuals         *visuals.Generator
	Differentiation *differentiation.Engine
	Assembler       *Assembler

	Now func() time.Time
}

// Service runs the deck pipelines end to end.
type Service struct {
	log       *logger.Logger
	llm       llm.Client
	metrics   *observability.Metrics
	bus       bus.Bus
	renderer  Renderer
	paid      bool
	outliner  *slides.Outliner
	content   *slides.ContentAgent
	router    *visuals.Router
	visuals   *visuals.Generator
	diff      *differentiation.Engine
	assembler *Assembler
	now       func() time.Time
}

func NewService(deps ServiceDeps) (*Service, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("deck service: missing LLM client")
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	s := &Service{
		log:       log.With("service", "DeckService"),
		llm:       deps.LLM,
		metrics:   deps.Metrics,
		bus:       deps.Bus,
		renderer:  deps.Renderer,
		paid:      deps.PaidVisuals,
		outliner:  deps.Outliner,
		content:   deps.Content,
		router:    deps.Router,
		visuals:   deps.Visuals,
		diff:      deps.Differentiation,
		assembler: deps.Assembler,
		now:       deps.Now,
	}
	if s.outliner == nil {
		s.outliner = slides.NewOutliner(slides.OutlinerDeps{Log: log, LLM: deps.LLM, Standards: deps.Standards, Metrics: deps.Metrics})
	}
	if s.content == nil {
		s.content = slides.NewContentAgent(slides.ContentAgentDeps{
			Log:         log,
			LLM:         deps.LLM,
			Images:      slides.NewImageDirector(log, deps.LLM),
			Metrics:     deps.Metrics,
			Concurrency: deps.Concurrency,
		})
	}
	if s.router == nil {
		s.router = visuals.NewRouter(visuals.RouterDeps{
			Log:         log,
			Classifier:  visuals.NewClassifier(visuals.ClassifierDeps{Log: log, LLM: deps.LLM}),
			Metrics:     deps.Metrics,
			Concurrency: deps.Concurrency,
		})
	}
	if s.visuals == nil {
		s.visuals = visuals.NewGenerator(visuals.GeneratorDeps{
			Log:         log,
			LLM:         deps.LLM,
			Images:      deps.Images,
			Metrics:     deps.Metrics,
			Concurrency: deps.Concurrency,
		})
	}
	if s.diff == nil {
		s.diff = differentiation.New(differentiation.Deps{Log: log, LLM: deps.LLM, Metrics: deps.Metrics, Concurrency: deps.Concurrency})
	}
	if s.assembler == nil {
		s.assembler = NewAssembler(log)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Request describes a deck to generate.
type Request struct {
	Topics           []string `json:"topics"`
	Topic            string   `json:"topic"`
	Subject          string   `json:"subject"`
	GradeLevel       string   `json:"gradeLevel"`
	Chapter          string   `json:"chapter"`
	NumSlides        int      `json:"numSlides"`
	StructuredFormat bool     `json:"structuredFormat"`
	// Levels lists differentiated variants to derive after the core deck, e.g. SUPPORT.
	Levels           []string `json:"levels"`
	Theme            string   `json:"theme"`
	PedagogicalModel string   `json:"pedagogicalModel"`
}

// TopicList prefers Topics and falls back to the single Topic.
func (r Request) TopicList() []string {
	out := make([]string, 0, len(r.Topics)+1)
	for _, t := range r.Topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 && strings.TrimSpace(r.Topic) != "" {
		out = append(out, strings.TrimSpace(r.Topic))
	}
	return out
}

func (r Request) Validate() error {
	if len(r.TopicList()) == 0 {
		return apierr.BadRequest(errors.New("no topics provided"))
	}
	if strings.TrimSpace(r.Subject) == "" {
		return apierr.BadRequest(errors.New("subject is required"))
	}
	if strings.TrimSpace(r.GradeLevel) == "" {
		return apierr.BadRequest(errors.New("gradeLevel is required"))
	}
	return nil
}

// Result is a generated deck with its validation warnings and any derived variants.
type Result struct {
	lesson.Deck
	Warnings         []string                                    `json:"warnings"`
	VisualsGenerated int                                         `json:"visualsGenerated"`
	Variants         map[lesson.DifferentiationLevel]lesson.Deck `json:"variants,omitempty"`
}

// GenerateAdvanced runs outline, per-slide content, visuals and assembly.
func (s *Service) GenerateAdvanced(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topic := strings.Join(req.TopicList(), ", ")
	log := s.log.With("pipeline", pipelineAdvanced, "topic", topic)

	var outline slides.Outline
	_ = s.stage(ctx, pipelineAdvanced, "outline", func(ctx context.Context) error {
		outline = s.outliner.CreateOutline(ctx, topic, req.Subject, req.GradeLevel)
		return nil
	})

	var built []lesson.Slide
	_ = s.stage(ctx, pipelineAdvanced, "content", func(ctx context.Context) error {
		built = s.content.Expand(ctx, outline.Entries, req.Subject, req.GradeLevel)
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := s.finish(ctx, pipelineAdvanced, finishInput{
		meta:     s.metadata(req, topic, outline.Standards),
		slides:   built,
		subject:  req.Subject,
		expected: req.NumSlides,
	})
	if outline.Fallback {
		res.Warnings = append(res.Warnings, "outline generation failed; fallback outline used")
	}
	s.deriveVariants(ctx, res, req.Levels)
	log.Info("deck generated", "slides", len(res.Slides), "visuals", res.VisualsGenerated, "warnings", len(res.Warnings))
	return res, nil
}

type finishInput struct {
	title    string
	meta     lesson.Metadata
	slides   []lesson.Slide
	subject  string
	expected int
}

// finish routes and renders visuals, then assembles the deck.
func (s *Service) finish(ctx context.Context, pipeline string, in finishInput) *Result {
	texts := make([]visuals.SlideText, len(in.slides))
	for i, sl := range in.slides {
		texts[i] = visuals.SlideText{Title: sl.Title, Content: sl.Content}
	}

	var routes []visuals.RoutingDecision
	_ = s.stage(ctx, pipeline, "route_visuals", func(ctx context.Context) error {
		routes = s.router.RouteBatch(ctx, texts, in.subject, s.paid)
		return nil
	})
	var renders []visuals.RenderResult
	_ = s.stage(ctx, pipeline, "render_visuals", func(ctx context.Context) error {
		renders = s.visuals.GenerateBatch(ctx, texts, routes, in.subject)
		return nil
	})
	s.metrics.AddCost("visuals", pipeline, visuals.TotalCost(routes))

	var out Assembled
	_ = s.stage(ctx, pipeline, "assemble", func(ctx context.Context) error {
		out = s.assembler.Assemble(ctx, AssembleInput{
			Title:    in.title,
			Meta:     in.meta,
			Slides:   in.slides,
			Routes:   routes,
			Renders:  renders,
			Expected: in.expected,
		})
		return nil
	})
	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &Result{Deck: out.Deck, Warnings: warnings, VisualsGenerated: out.VisualsGenerated}
}

func (s *Service) deriveVariants(ctx context.Context, res *Result, raw []string) {
	if len(raw) == 0 {
		return
	}
	levels := make([]lesson.DifferentiationLevel, 0, len(raw))
	seen := map[lesson.DifferentiationLevel]bool{}
	for _, r := range raw {
		l, ok := lesson.ParseDifferentiationLevel(r)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("unknown differentiation level %q ignored", r))
			continue
		}
		if l == lesson.DiffCore || seen[l] {
			continue
		}
		seen[l] = true
		levels = append(levels, l)
	}
	if len(levels) == 0 {
		return
	}
	_ = s.stage(ctx, pipelineAdvanced, "differentiate", func(ctx context.Context) error {
		res.Variants = s.diff.DeriveAll(ctx, res.Deck, levels...)
		return nil
	})
}

// Differentiate derives one variant of an existing deck.
func (s *Service) Differentiate(ctx context.Context, core lesson.Deck, level lesson.DifferentiationLevel) lesson.Deck {
	return s.diff.Derive(ctx, core, level)
}

// RouteVisuals classifies and routes slides without rendering them.
func (s *Service) RouteVisuals(ctx context.Context, texts []visuals.SlideText, subject string, paid bool) []visuals.RoutingDecision {
	return s.router.RouteBatch(ctx, texts, subject, paid && s.paid)
}

// Export writes the deck through the configured document renderer and
// returns the content type of what was written.
func (s *Service) Export(ctx context.Context, d lesson.Deck, w io.Writer) (string, error) {
	if s.renderer == nil {
		return "", apierr.New(http.StatusNotImplemented, apierr.CodeUnavailable, errors.New("no document renderer configured"))
	}
	err := s.stage(ctx, "export", "render_document", func(ctx context.Context) error {
		return s.renderer.Render(ctx, d, w)
	})
	if err != nil {
		return "", err
	}
	return s.renderer.ContentType(), nil
}

func (s *Service) metadata(req Request, topic string, stds []standards.Standard) lesson.Metadata {
	meta := lesson.NewMetadata(topic, req.Subject, req.GradeLevel, s.now())
	meta.Standards = standards.IDs(stds)
	if t := strings.TrimSpace(req.Theme); t != "" {
		meta.Theme = t
	}
	if req.PedagogicalModel != "" {
		meta.PedagogicalModel = lesson.ParsePedagogicalModel(req.PedagogicalModel)
	}
	return meta
}

// stage wraps one pipeline step in a span and records its duration.
func (s *Service) stage(ctx context.Context, pipeline, name string, fn func(ctx context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "deck."+name,
		attribute.String("pipeline", pipeline),
		attribute.String("stage", name),
	)
	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStage(pipeline, name, status, time.Since(start))
	observability.EndSpan(span, err)
	return err
}
