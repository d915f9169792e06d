package visuals

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge-backend/internal/observability"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	minRouteConfidence  = 60
	illustrationCostUSD = 0.04
	defaultConcurrency  = 6
)

type RouterDeps struct {
	Log         *logger.Logger
	Classifier  *Classifier
	Metrics     *observability.Metrics
	Concurrency int
}

// Router maps classifications onto renderers under the free-vs-paid policy.
type Router struct {
	log         *logger.Logger
	classifier  *Classifier
	metrics     *observability.Metrics
	concurrency int
}

func NewRouter(deps RouterDeps) *Router {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	conc := deps.Concurrency
	if conc <= 0 {
		conc = defaultConcurrency
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = NewClassifier(ClassifierDeps{Log: log})
	}
	return &Router{
		log:         log.With("service", "VisualRouter"),
		classifier:  classifier,
		metrics:     deps.Metrics,
		concurrency: conc,
	}
}

// Route is pure: identical input yields an identical decision.
func (r *Router) Route(c Classification, paidEnabled bool) RoutingDecision {
	if c.Confidence < minRouteConfidence || c.VisualType == TypeNone {
		return RoutingDecision{
			Confidence: c.Confidence,
			Reasoning:  fmt.Sprintf("Confidence too low (%d%%) or no visual needed", c.Confidence),
		}
	}

	var renderer string
	var cost float64
	switch c.VisualType {
	case TypeDiagram:
		renderer = RendererMermaid
	case TypeChart:
		renderer = RendererChartJS
	case TypeMath:
		renderer = RendererLaTeX
	case TypeIllustration:
		if !paidEnabled {
			r.log.Info("illustration suggested but paid services disabled, skipping visual")
			return RoutingDecision{
				Confidence: c.Confidence,
				Reasoning:  "Illustration requires paid services, which are disabled",
			}
		}
		renderer = RendererDallE3
		cost = illustrationCostUSD
	default:
		return RoutingDecision{Confidence: 0, Reasoning: fmt.Sprintf("Unknown visual type %q", c.VisualType)}
	}

	vt := c.VisualType
	return RoutingDecision{
		VisualType:    &vt,
		VisualConfig:  copyConfig(c.Metadata),
		Confidence:    c.Confidence,
		GeneratedBy:   &renderer,
		EstimatedCost: cost,
		Reasoning:     c.Reasoning,
	}
}

// RouteSlide classifies then routes one slide.
func (r *Router) RouteSlide(ctx context.Context, s SlideText, subject string, paidEnabled bool) RoutingDecision {
	c := r.classifier.Classify(ctx, s.Title, s.Content, subject)
	r.log.Debug("slide classified", "title", truncate(s.Title, 30), "visual_type", c.VisualType, "confidence", c.Confidence)
	return r.Route(c, paidEnabled)
}

// RouteBatch returns one decision per slide in input order.
func (r *Router) RouteBatch(ctx context.Context, slides []SlideText, subject string, paidEnabled bool) []RoutingDecision {
	out := make([]RoutingDecision, len(slides))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range slides {
		i := i
		g.Go(func() error {
			out[i] = r.RouteSlide(gctx, slides[i], subject, paidEnabled)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range out {
		typ, renderer := "", ""
		if d.VisualType != nil {
			typ = string(*d.VisualType)
		}
		if d.GeneratedBy != nil {
			renderer = *d.GeneratedBy
		}
		r.metrics.ObserveRouting(typ, renderer, d.EstimatedCost)
	}
	r.log.Info("batch routing complete", "slides", len(slides), "estimated_cost_usd", fmt.Sprintf("%.2f", TotalCost(out)))
	return out
}

// TotalCost sums the estimated cost of a batch.
func TotalCost(decisions []RoutingDecision) float64 {
	total := 0.0
	for _, d := range decisions {
		total += d.EstimatedCost
	}
	return total
}

func copyConfig(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
