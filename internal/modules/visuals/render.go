package visuals

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

type Renderer interface {
	Name() string
	Render(ctx context.Context, in RenderInput) RenderResult
}

type GeneratorDeps struct {
	Log         *logger.Logger
	LLM         llm.Client
	Images      llm.ImageGenerator
	Metrics     *observability.Metrics
	Concurrency int
	// Renderers overrides the default set, keyed by renderer name.
	Renderers map[string]Renderer
}

// Generator dispatches routing decisions to renderers.
type Generator struct {
	log         *logger.Logger
	metrics     *observability.Metrics
	renderers   map[string]Renderer
	concurrency int
}

func NewGenerator(deps GeneratorDeps) *Generator {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	renderers := deps.Renderers
	if renderers == nil {
		renderers = map[string]Renderer{}
		for _, r := range []Renderer{
			NewDiagramRenderer(deps.LLM),
			NewChartRenderer(deps.LLM),
			NewMathRenderer(deps.LLM),
			NewIllustrationRenderer(deps.Images),
		} {
			renderers[r.Name()] = r
		}
	}
	conc := deps.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	return &Generator{
		log:         log.With("service", "VisualGenerator"),
		metrics:     deps.Metrics,
		renderers:   renderers,
		concurrency: conc,
	}
}

// Generate renders one slide. Panics inside a renderer are reported as failures.
func (g *Generator) Generate(ctx context.Context, s SlideText, d RoutingDecision, subject string) (res RenderResult) {
	if d.Skip() || d.GeneratedBy == nil {
		return RenderResult{Success: false, Skipped: true, Reason: "No visual type determined"}
	}
	name := *d.GeneratedBy
	defer func() {
		if p := recover(); p != nil {
			res = failed(string(*d.VisualType), fmt.Errorf("renderer %s panicked: %v", name, p))
		}
		status := "ok"
		if !res.Success {
			status = "failed"
			g.log.Warn("visual generation failed", "renderer", name, "title", truncate(s.Title, 30), "error", res.Error)
		}
		g.metrics.ObserveRender(name, status)
	}()

	r, ok := g.renderers[name]
	if !ok {
		return failed(string(*d.VisualType), fmt.Errorf("unknown renderer %q", name))
	}
	cfg := d.VisualConfig
	if cfg == nil {
		cfg = map[string]any{}
	}
	return r.Render(ctx, RenderInput{Title: s.Title, Content: s.Content, Subject: subject, Config: cfg})
}

// GenerateBatch renders every slide concurrently and keeps input order.
// Missing decisions are treated as skips.
func (g *Generator) GenerateBatch(ctx context.Context, slides []SlideText, decisions []RoutingDecision, subject string) []RenderResult {
	out := make([]RenderResult, len(slides))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i := range slides {
		i := i
		var d RoutingDecision
		if i < len(decisions) {
			d = decisions[i]
		}
		eg.Go(func() error {
			out[i] = g.Generate(gctx, slides[i], d, subject)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}
