package visuals

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

func newTestRouter() *Router {
	return NewRouter(RouterDeps{Log: logger.NewNop()})
}

func TestRouteConfidenceBoundary(t *testing.T) {
	r := newTestRouter()

	low := r.Route(Classification{VisualType: TypeDiagram, Confidence: 59}, false)
	if !low.Skip() || low.GeneratedBy != nil || low.EstimatedCost != 0 {
		t.Fatalf("confidence 59 should skip, got=%+v", low)
	}
	if low.Confidence != 59 {
		t.Fatalf("skip should keep confidence: got=%d", low.Confidence)
	}
	if low.Reasoning != "Confidence too low (59%) or no visual needed" {
		t.Fatalf("reasoning: got=%q", low.Reasoning)
	}

	at := r.Route(Classification{VisualType: TypeDiagram, Confidence: 60}, false)
	if at.Skip() {
		t.Fatalf("confidence 60 should not skip")
	}
	if *at.GeneratedBy != RendererMermaid {
		t.Fatalf("renderer: want=%s got=%s", RendererMermaid, *at.GeneratedBy)
	}
}

func TestRouteTypeMapping(t *testing.T) {
	r := newTestRouter()
	cases := map[VisualType]string{
		TypeDiagram: RendererMermaid,
		TypeChart:   RendererChartJS,
		TypeMath:    RendererLaTeX,
	}
	for vt, want := range cases {
		d := r.Route(Classification{VisualType: vt, Confidence: 85, Metadata: map[string]any{"k": "v"}}, false)
		if d.Skip() || *d.GeneratedBy != want || d.EstimatedCost != 0 {
			t.Fatalf("%s: want renderer=%s cost=0, got=%+v", vt, want, d)
		}
		if d.VisualConfig["k"] != "v" {
			t.Fatalf("%s: metadata not carried into visualConfig", vt)
		}
	}
}

func TestRouteIllustrationNeedsPaidServices(t *testing.T) {
	r := newTestRouter()
	c := Classification{VisualType: TypeIllustration, Confidence: 95}

	free := r.Route(c, false)
	if free.VisualType != nil || free.GeneratedBy != nil || free.EstimatedCost != 0 {
		t.Fatalf("unpaid illustration should skip, got=%+v", free)
	}

	paid := r.Route(c, true)
	if paid.Skip() || *paid.GeneratedBy != RendererDallE3 || paid.EstimatedCost != 0.04 {
		t.Fatalf("paid illustration: got=%+v", paid)
	}
}

func TestRouteUnknownTypeZeroesConfidence(t *testing.T) {
	d := newTestRouter().Route(Classification{VisualType: "hologram", Confidence: 99}, true)
	if !d.Skip() || d.Confidence != 0 {
		t.Fatalf("unknown type: got=%+v", d)
	}
}

func TestRouteIsIdempotent(t *testing.T) {
	r := newTestRouter()
	in := Classification{VisualType: TypeChart, Confidence: 77, Metadata: map[string]any{"chartType": "line"}, Reasoning: "trend"}
	for _, paid := range []bool{false, true} {
		a := r.Route(in, paid)
		b := r.Route(in, paid)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("decisions differ (-first +second):\n%s", diff)
		}
	}
}

func TestRouteBatchPreservesOrder(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		if strings.Contains(p.User, "Battle") {
			return `{"visualType":"illustration","confidence":90}`, nil
		}
		return `{"visualType":"none","confidence":20}`, nil
	}}
	r := NewRouter(RouterDeps{
		Log:        logger.NewNop(),
		Classifier: NewClassifier(ClassifierDeps{Log: logger.NewNop(), LLM: client}),
	})
	slides := []SlideText{
		{Title: "Quadratics", Content: "Solve x = y + 2 using the formula"},
		{Title: "Battle of Plassey", Content: "Armies met in 1757"},
		{Title: "Reflection", Content: "Think about what you learned"},
	}

	got := r.RouteBatch(context.Background(), slides, "Mixed", true)
	if len(got) != 3 {
		t.Fatalf("decisions: want=3 got=%d", len(got))
	}
	if got[0].Skip() || *got[0].VisualType != TypeMath {
		t.Fatalf("slide 0: want math, got=%+v", got[0])
	}
	if got[1].Skip() || *got[1].GeneratedBy != RendererDallE3 {
		t.Fatalf("slide 1: want dalle3, got=%+v", got[1])
	}
	if !got[2].Skip() {
		t.Fatalf("slide 2: want skip, got=%+v", got[2])
	}
	if TotalCost(got) != 0.04 {
		t.Fatalf("total cost: want=0.04 got=%v", TotalCost(got))
	}
}
