package visuals

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

var mermaidKeywords = []string{
	"flowchart", "graph", "sequenceDiagram", "classDiagram", "stateDiagram",
	"erDiagram", "gantt", "pie", "timeline", "mindmap",
}

// ValidateMermaid is a cheap syntax gate: at least ten characters that open with a diagram keyword.
func ValidateMermaid(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < 10 {
		return false
	}
	for _, kw := range mermaidKeywords {
		if strings.HasPrefix(code, kw) {
			return true
		}
	}
	return false
}

// DiagramRenderer turns slide text into Mermaid markup.
type DiagramRenderer struct {
	llm llm.Client
}

func NewDiagramRenderer(client llm.Client) *DiagramRenderer {
	return &DiagramRenderer{llm: client}
}

func (d *DiagramRenderer) Name() string { return RendererMermaid }

var diagramSchema = &llm.Schema{
	Name: "mermaid_diagram_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"mermaidCode": map[string]any{"type": "string"},
			"diagramType": map[string]any{"type": "string"},
			"nodeCount":   map[string]any{"type": "number"},
			"description": map[string]any{"type": "string"},
		},
		"required": []any{"mermaidCode"},
	},
}

func (d *DiagramRenderer) Render(ctx context.Context, in RenderInput) RenderResult {
	style := diagramStyle(in)
	if d.llm == nil {
		return failed(RendererMermaid, fmt.Errorf("no completion client configured"))
	}
	obj, err := d.llm.CompleteJSON(ctx, llm.Prompt{
		System:      "You convert educational content into clear, valid Mermaid.js diagrams.",
		User:        diagramPrompt(in, style),
		MaxTokens:   800,
		Temperature: 0.4,
		Schema:      diagramSchema,
		Purpose:     "visual_diagram",
	})
	if err != nil {
		return failed(RendererMermaid, fmt.Errorf("mermaid generation failed: %w", err))
	}
	code := stripFence(jsonx.String(obj, "mermaidCode", ""))
	if !ValidateMermaid(code) {
		return failed(RendererMermaid, fmt.Errorf("mermaid generation returned invalid syntax"))
	}
	return RenderResult{
		Success: true,
		Type:    RendererMermaid,
		Data: map[string]any{
			"code":        code,
			"diagramType": style,
			"description": jsonx.String(obj, "description", ""),
			"nodeCount":   jsonx.Int(obj, "nodeCount", 0),
		},
	}
}

// diagramStyle prefers the classifier's choice and falls back to keywords in the slide.
func diagramStyle(in RenderInput) string {
	switch s, _ := in.Config["diagramType"].(string); s {
	case "flowchart", "timeline", "mindmap":
		return s
	}
	return DetectDiagramType(in.Title + " " + in.Content)
}

func diagramPrompt(in RenderInput, style string) string {
	var syntax string
	switch style {
	case "timeline":
		syntax = strings.Join([]string{
			"Draw a Mermaid TIMELINE, for example:",
			"timeline",
			"    title Indian Independence Movement",
			"    1885 : Indian National Congress founded",
			"    1930 : Salt March",
			"    1947 : Independence",
		}, "\n")
	case "mindmap":
		syntax = strings.Join([]string{
			"Draw a Mermaid MINDMAP, for example:",
			"mindmap",
			"  root((Photosynthesis))",
			"    Inputs",
			"      Sunlight",
			"      Water",
			"    Outputs",
			"      Glucose",
			"      Oxygen",
		}, "\n")
	default:
		syntax = strings.Join([]string{
			"Draw a Mermaid FLOWCHART using TD or LR direction, for example:",
			"flowchart TD",
			"    A[Evaporation] --> B[Condensation]",
			"    B --> C{Cloud saturated?}",
			"    C -->|Yes| D[Precipitation]",
			"    D --> A",
		}, "\n")
	}
	return strings.Join([]string{
		"Turn this slide into a diagram.",
		"",
		"Title: " + in.Title,
		"Content: " + in.Content,
		"Subject: " + in.Subject,
		"",
		syntax,
		"",
		"Rules: 5 to 10 nodes, labels of at most five words, valid Mermaid only.",
		`Return JSON: {"mermaidCode": "...", "diagramType": "` + style + `", "nodeCount": 0, "description": "..."}`,
	}, "\n")
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "mermaid")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
