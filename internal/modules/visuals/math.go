package visuals

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

const maxEquations = 10

var (
	dollarMathRe  = regexp.MustCompile(`\$\$?(.*?)\$\$?`)
	plainEquation = regexp.MustCompile(`([a-zA-Z]\s*=\s*[^.;,\n]+)`)

	latexCommands = []string{
		`\frac`, `\sqrt`, `\sum`, `\int`, `\prod`,
		`\alpha`, `\beta`, `\gamma`, `\delta`,
		`\pi`, `\sigma`, `\theta`,
	}
)

// ExtractEquations prefers $...$ spans and falls back to "x = ..." spans. At most ten are returned.
func ExtractEquations(content string) []string {
	out := []string{}
	for _, m := range dollarMathRe.FindAllStringSubmatch(content, -1) {
		if eq := strings.TrimSpace(m[1]); eq != "" {
			out = append(out, eq)
		}
	}
	if len(out) == 0 {
		for _, m := range plainEquation.FindAllStringSubmatch(content, -1) {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	if len(out) > maxEquations {
		out = out[:maxEquations]
	}
	return out
}

// ValidateLaTeX checks for balanced braces and at least one command or math symbol.
func ValidateLaTeX(s string) bool {
	if len(s) < 2 {
		return false
	}
	if strings.Count(s, "{") != strings.Count(s, "}") {
		return false
	}
	for _, cmd := range latexCommands {
		if strings.Contains(s, cmd) {
			return true
		}
	}
	return strings.ContainsAny(s, "^_=+-*/")
}

// DisplayMode is block for up to three equations, inline beyond that.
func DisplayMode(n int) string {
	if n <= 3 {
		return "block"
	}
	return "inline"
}

func FormatForKaTeX(equations []string, mode string) string {
	parts := make([]string, len(equations))
	if mode == "block" {
		for i, eq := range equations {
			parts[i] = "$$" + eq + "$$"
		}
		return strings.Join(parts, "\n\n")
	}
	for i, eq := range equations {
		parts[i] = "$" + eq + "$"
	}
	return strings.Join(parts, " ; ")
}

// MathRenderer converts informal math in a slide into LaTeX.
type MathRenderer struct {
	llm llm.Client
}

func NewMathRenderer(client llm.Client) *MathRenderer {
	return &MathRenderer{llm: client}
}

func (m *MathRenderer) Name() string { return RendererLaTeX }

var equationsSchema = &llm.Schema{
	Name: "latex_equations_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"equations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
}

func (m *MathRenderer) Render(ctx context.Context, in RenderInput) RenderResult {
	equations := stringsFrom(in.Config["equations"])
	if len(equations) == 0 {
		equations = ExtractEquations(in.Content)
	}
	if len(equations) == 0 {
		equations = m.convertWithLLM(ctx, in)
	}

	valid := make([]string, 0, len(equations))
	for _, eq := range equations {
		if ValidateLaTeX(eq) {
			valid = append(valid, eq)
		}
	}
	if len(valid) > maxEquations {
		valid = valid[:maxEquations]
	}
	if len(valid) == 0 {
		return failed(RendererLaTeX, fmt.Errorf("no mathematical content found"))
	}

	mode := DisplayMode(len(valid))
	return RenderResult{
		Success: true,
		Type:    RendererLaTeX,
		Data: map[string]any{
			"equations":   valid,
			"displayMode": mode,
			"katex":       FormatForKaTeX(valid, mode),
		},
	}
}

func (m *MathRenderer) convertWithLLM(ctx context.Context, in RenderInput) []string {
	if m.llm == nil {
		return nil
	}
	obj, err := m.llm.CompleteJSON(ctx, llm.Prompt{
		System: "You write mathematics in standard LaTeX.",
		User: strings.Join([]string{
			"Rewrite every equation or formula on this slide as LaTeX.",
			"Title: " + in.Title,
			"Content: " + in.Content,
			"",
			`Use \frac{a}{b}, x^{n}, x_{i}, \sqrt{x}, \pi and friends. At most 10 equations; none if the slide has no math.`,
			`Return JSON: {"equations": ["A = \\pi r^2"]}`,
		}, "\n"),
		MaxTokens:   600,
		Temperature: 0.3,
		Schema:      equationsSchema,
		Purpose:     "visual_latex",
	})
	if err != nil {
		return nil
	}
	return stringsFrom(obj["equations"])
}
