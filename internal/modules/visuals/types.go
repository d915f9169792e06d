package visuals

import "strings"

type VisualType string

const (
	TypeDiagram      VisualType = "diagram"
	TypeChart        VisualType = "chart"
	TypeMath         VisualType = "math"
	TypeIllustration VisualType = "illustration"
	TypeNone         VisualType = "none"
)

func ParseVisualType(raw string) (VisualType, bool) {
	t := VisualType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeDiagram, TypeChart, TypeMath, TypeIllustration, TypeNone:
		return t, true
	default:
		return TypeNone, false
	}
}

// Renderer names recorded as generatedBy.
const (
	RendererMermaid = "mermaid"
	RendererChartJS = "chartjs"
	RendererLaTeX   = "latex"
	RendererDallE3  = "dalle3"
)

// Classification is the verdict on how a slide is best visualized.
type Classification struct {
	VisualType VisualType     `json:"visualType"`
	Confidence int            `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
	Reasoning  string         `json:"reasoning"`
}

// RoutingDecision says which renderer, if any, will visualize a slide.
// A skip has nil VisualType and GeneratedBy.
type RoutingDecision struct {
	VisualType    *VisualType    `json:"visualType"`
	VisualConfig  map[string]any `json:"visualConfig"`
	Confidence    int            `json:"confidence"`
	GeneratedBy   *string        `json:"generatedBy"`
	EstimatedCost float64        `json:"estimatedCost"`
	Reasoning     string         `json:"reasoning"`
}

func (d RoutingDecision) Skip() bool { return d.VisualType == nil }

// SlideText is the part of a slide the visual stages look at.
type SlideText struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type RenderInput struct {
	Title   string
	Content string
	Subject string
	Config  map[string]any
}

type RenderResult struct {
	Success bool           `json:"success"`
	Type    string         `json:"type,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

func failed(kind string, err error) RenderResult {
	return RenderResult{Success: false, Type: kind, Data: map[string]any{}, Error: err.Error()}
}
