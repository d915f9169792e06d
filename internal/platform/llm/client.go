package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/lessonforge-backend/internal/platform/promptstyle"
)

// Prompt is a single-turn completion request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	Schema      *Schema
	Purpose     string
}

// Client is the completion surface used by the content modules.
type Client interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	// CompleteJSON returns *ParseError when the completion is not a JSON object.
	CompleteJSON(ctx context.Context, p Prompt) (map[string]any, error)
	// StreamText calls onDelta for each text fragment and returns the full text.
	StreamText(ctx context.Context, p Prompt, onDelta func(string)) (string, error)
}

type providerClient struct {
	provider Provider
	timeout  time.Duration
}

// NewClient adapts a Provider. A positive timeout bounds each call.
func NewClient(p Provider, timeout time.Duration) Client {
	return &providerClient{provider: p, timeout: timeout}
}

func (c *providerClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *providerClient) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.provider.Generate(ctx, p.request(false))
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *providerClient) CompleteJSON(ctx context.Context, p Prompt) (map[string]any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.provider.Generate(ctx, p.request(true))
	if err != nil {
		var inv *ErrInvalidResponse
		if errors.As(err, &inv) {
			return nil, &ParseError{Raw: inv.Content, Err: inv.Err}
		}
		var trunc *ErrMaxTokensExceeded
		if errors.As(err, &trunc) {
			return nil, &ParseError{Raw: trunc.Content, Err: err}
		}
		return nil, err
	}
	return ParseJSONObject(resp.Content)
}

func (c *providerClient) StreamText(ctx context.Context, p Prompt, onDelta func(string)) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req := p.request(false)
	var (
		resp *Response
		err  error
	)
	if s, ok := c.provider.(Streamer); ok {
		resp, err = s.Stream(ctx, req, onDelta)
	} else {
		resp, err = streamFallback(ctx, c.provider, req, onDelta)
	}
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p Prompt) request(jsonMode bool) Request {
	mode := promptstyle.ModeText
	if jsonMode {
		mode = promptstyle.ModeJSON
	}
	req := UserRequest(promptstyle.ApplySystem(p.System, mode), p.User)
	req.MaxTokens = p.MaxTokens
	req.Temperature = p.Temperature
	req.Purpose = p.Purpose
	req.Schema = p.Schema
	req.JSON = jsonMode && p.Schema == nil
	return req
}

// ParseJSONObject decodes a completion into an object. Markdown code fences and
// prose around the outermost braces are tolerated.
func ParseJSONObject(raw string) (map[string]any, error) {
	v, err := extractJSON(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	out, ok := v.(map[string]any)
	if !ok || out == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("completion is not a JSON object")}
	}
	return out, nil
}

// extractJSON decodes the JSON payload of a completion. An object wrapped in prose
// wins over a bare non-object value; schema validation and ParseJSONObject share it.
func extractJSON(raw string) (any, error) {
	text := stripCodeFence(raw)
	var v any
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		if _, ok := v.(map[string]any); ok {
			return v, nil
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		var obj map[string]any
		if json.Unmarshal([]byte(text[start:end+1]), &obj) == nil && obj != nil {
			return obj, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
