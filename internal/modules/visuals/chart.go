package visuals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

var chartPalette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#ef4444",
	"#8b5cf6", "#ec4899", "#06b6d4", "#f97316",
}

var (
	labelColonValueRe = regexp.MustCompile(`(\d{4}|\w+)\s*:\s*(\d+(?:\.\d+)?)`)
	labelParenValueRe = regexp.MustCompile(`(\w+)\s*[(\-]\s*(\d+(?:\.\d+)?)\s*([KMB%])?`)
)

const quickChartBase = "https://quickchart.io/chart"

// ExtractDataPoints finds "label: value" pairs, or failing that "label (value[KMB%])" pairs.
// At most ten points are returned.
func ExtractDataPoints(content string) []DataPoint {
	points := []DataPoint{}
	for _, m := range labelColonValueRe.FindAllStringSubmatch(content, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		points = append(points, DataPoint{Label: m[1], Value: v})
	}
	if len(points) == 0 {
		for _, m := range labelParenValueRe.FindAllStringSubmatch(content, -1) {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[3] {
			case "K":
				v *= 1e3
			case "M":
				v *= 1e6
			case "B":
				v *= 1e9
			}
			points = append(points, DataPoint{Label: m[1], Value: v})
		}
	}
	if len(points) > maxDataPoints {
		points = points[:maxDataPoints]
	}
	return points
}

// BuildChartConfig returns a Chart.js configuration for the points.
func BuildChartConfig(title, chartType string, points []DataPoint) map[string]any {
	labels := make([]any, len(points))
	values := make([]any, len(points))
	for i, p := range points {
		labels[i] = p.Label
		values[i] = p.Value
	}

	var dataset map[string]any
	if chartType == "pie" {
		colors := make([]any, 0, len(points))
		for i := range points {
			if i >= len(chartPalette) {
				break
			}
			colors = append(colors, chartPalette[i])
		}
		dataset = map[string]any{
			"data":            values,
			"backgroundColor": colors,
			"borderWidth":     2,
			"borderColor":     "#ffffff",
		}
	} else {
		dataset = map[string]any{
			"label":           title,
			"data":            values,
			"backgroundColor": chartPalette[0] + "80",
			"borderColor":     chartPalette[0],
			"borderWidth":     2,
			"fill":            chartType == "line",
		}
	}

	y := map[string]any{}
	if chartType != "pie" {
		y["beginAtZero"] = true
	}
	return map[string]any{
		"type": chartType,
		"data": map[string]any{
			"labels":   labels,
			"datasets": []any{dataset},
		},
		"options": map[string]any{
			"responsive": true,
			"plugins": map[string]any{
				"title":  map[string]any{"display": true, "text": title, "font": map[string]any{"size": 16}},
				"legend": map[string]any{"display": chartType == "pie", "position": "bottom"},
			},
			"scales": map[string]any{"y": y},
		},
	}
}

// QuickChartURL serializes the type and data of a Chart.js config into a QuickChart render URL.
func QuickChartURL(cfg map[string]any) string {
	simple := map[string]any{"type": cfg["type"], "data": cfg["data"]}
	raw, err := json.Marshal(simple)
	if err != nil {
		return ""
	}
	return quickChartBase + "?c=" + url.QueryEscape(string(raw)) +
		"&width=1800&height=1200&backgroundColor=white&devicePixelRatio=2.5"
}

// ChartRenderer builds a declarative chart from numbers in the slide.
type ChartRenderer struct {
	llm llm.Client
}

func NewChartRenderer(client llm.Client) *ChartRenderer {
	return &ChartRenderer{llm: client}
}

func (c *ChartRenderer) Name() string { return RendererChartJS }

func (c *ChartRenderer) Render(ctx context.Context, in RenderInput) RenderResult {
	chartType, _ := in.Config["chartType"].(string)
	switch chartType {
	case "bar", "line", "pie", "scatter":
	default:
		chartType = "bar"
	}

	points := dataPointsFrom(in.Config["dataPoints"])
	if len(points) == 0 {
		points = ExtractDataPoints(in.Content)
	}
	if len(points) == 0 {
		points = c.extractWithLLM(ctx, in)
	}
	if len(points) < 2 {
		return failed(RendererChartJS, fmt.Errorf("insufficient data points for chart"))
	}

	cfg := BuildChartConfig(in.Title, chartType, points)
	return RenderResult{
		Success: true,
		Type:    "chart",
		Data: map[string]any{
			"config":        cfg,
			"chartType":     chartType,
			"quickChartUrl": QuickChartURL(cfg),
			"dataPoints":    points,
		},
	}
}

var dataPointsSchema = &llm.Schema{
	Name: "chart_data_points_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dataPoints": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label": map[string]any{"type": "string"},
						"value": map[string]any{"type": "number"},
					},
				},
			},
		},
	},
}

func (c *ChartRenderer) extractWithLLM(ctx context.Context, in RenderInput) []DataPoint {
	if c.llm == nil {
		return nil
	}
	obj, err := c.llm.CompleteJSON(ctx, llm.Prompt{
		System: "You extract numerical data from text as label-value pairs.",
		User: "Title: " + in.Title + "\nContent: " + in.Content +
			"\n\nList up to 10 quantities from the text. Return an empty list if there are none.\n" +
			`Return JSON: {"dataPoints": [{"label": "...", "value": 0}]}`,
		MaxTokens:   400,
		Temperature: 0.3,
		Schema:      dataPointsSchema,
		Purpose:     "visual_chart_data",
	})
	if err != nil {
		return nil
	}
	return dataPointsFrom(obj["dataPoints"])
}
