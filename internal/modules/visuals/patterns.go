package visuals

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
)

var mathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[a-z]\s*=\s*[a-z0-9+\-*/^]+`),
	regexp.MustCompile(`\\frac|\\sqrt|\\sum|\\int`),
	regexp.MustCompile(`\^2|\^3`),
	regexp.MustCompile(`equation|formula|calculate`),
	regexp.MustCompile(`sin|cos|tan|log|ln`),
}

var flowKeywords = []string{
	"process", "cycle", "flow", "steps", "sequence", "stages",
	"pathway", "timeline", "workflow", "→", "->",
}

var dataKeywords = []string{
	"data", "graph", "chart", "statistics", "population",
	"growth", "comparison", "percentage", "rate",
}

var (
	numberRe        = regexp.MustCompile(`\d+`)
	metaEquationRes = []*regexp.Regexp{
		regexp.MustCompile(`([a-zA-Z]+\s*=\s*[^.]+)`),
		regexp.MustCompile(`(\\[a-z]+\{[^}]+\})`),
	}
	metaDataPointRe = regexp.MustCompile(`(\d{4}|\w+)\s*:\s*(\d+)`)
)

const (
	maxMetaEquations  = 5
	maxDataPoints     = 10
	shortCircuitScore = 90
)

// quickDetect runs the pattern detectors in priority order: math, flow, data.
// It returns nil when none of them fires.
func quickDetect(title, content string) *Classification {
	text := strings.ToLower(title + " " + content)

	mathScore := 0
	for _, re := range mathPatterns {
		if re.MatchString(text) {
			mathScore++
		}
	}
	if mathScore >= 2 {
		return &Classification{
			VisualType: TypeMath,
			Confidence: min(95, 70+mathScore*5),
			Metadata:   map[string]any{"equations": ExtractMetaEquations(content)},
			Reasoning:  "Detected mathematical notation and equations",
		}
	}

	flowScore := 0
	for _, kw := range flowKeywords {
		if strings.Contains(text, kw) {
			flowScore++
		}
	}
	if flowScore >= 2 {
		return &Classification{
			VisualType: TypeDiagram,
			Confidence: min(90, 60+flowScore*8),
			Metadata:   map[string]any{"diagramType": DetectDiagramType(text)},
			Reasoning:  "Detected process/flow indicators",
		}
	}

	numbers := len(numberRe.FindAllString(content, -1))
	if numbers >= 3 && containsAny(text, dataKeywords) {
		return &Classification{
			VisualType: TypeChart,
			Confidence: min(90, 65+min(numbers, 5)*5),
			Metadata:   ChartMetadata(content),
			Reasoning:  "Detected numerical data with data visualization keywords",
		}
	}
	return nil
}

// DetectDiagramType picks timeline, mindmap or flowchart from keywords in text.
func DetectDiagramType(text string) string {
	text = strings.ToLower(text)
	switch {
	case containsAny(text, []string{"timeline", "history", "chronology", "era"}):
		return "timeline"
	case containsAny(text, []string{"relationship", "connected", "related", "concept"}):
		return "mindmap"
	default:
		return "flowchart"
	}
}

// ExtractMetaEquations returns at most five equation-like spans for classification metadata.
func ExtractMetaEquations(content string) []string {
	out := []string{}
	for _, re := range metaEquationRes {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if len(out) >= maxMetaEquations {
				return out
			}
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartMetadata extracts "label: number" pairs and guesses a chart type from the wording.
func ChartMetadata(content string) map[string]any {
	points := []DataPoint{}
	for _, m := range metaDataPointRe.FindAllStringSubmatch(content, -1) {
		if len(points) >= maxDataPoints {
			break
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		points = append(points, DataPoint{Label: m[1], Value: v})
	}
	return map[string]any{
		"chartType":  DetectChartType(content),
		"dataPoints": points,
	}
}

func DetectChartType(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "trend") || strings.Contains(lower, "over time"):
		return "line"
	case strings.Contains(lower, "percentage") || strings.Contains(lower, "proportion"):
		return "pie"
	default:
		return "bar"
	}
}

// dataPointsFrom reads data points out of a config value, tolerating both typed and decoded JSON
// shapes. Entries without a numeric value get 0, entries that are bare scalars become labels.
func dataPointsFrom(v any) []DataPoint {
	out := []DataPoint{}
	switch t := v.(type) {
	case []DataPoint:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			switch dp := item.(type) {
			case map[string]any:
				label := strings.TrimSpace(fmt.Sprint(dp["label"]))
				if dp["label"] == nil || label == "" {
					label = "Label"
				}
				value, _ := jsonx.ToFloat(dp["value"])
				out = append(out, DataPoint{Label: label, Value: value})
			case nil:
			default:
				out = append(out, DataPoint{Label: fmt.Sprint(dp)})
			}
		}
	}
	if len(out) > maxDataPoints {
		out = out[:maxDataPoints]
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func stringsFrom(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}
