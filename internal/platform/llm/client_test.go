package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lessonforge-backend/internal/platform/promptstyle"
)

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		key  string
	}{
		{"bare", `{"title":"x"}`, "title"},
		{"fenced", "```json\n{\"title\":\"x\"}\n```", "title"},
		{"prose", "Here you go: {\"title\":\"x\"} hope it helps", "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSONObject(tt.in)
			require.NoError(t, err)
			assert.Equal(t, "x", got[tt.key])
		})
	}
}

func TestParseJSONObjectRejectsNonObject(t *testing.T) {
	for _, in := range []string{"not json", "[1,2]", ""} {
		_, err := ParseJSONObject(in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseJSONObject(%q): want ParseError got=%v", in, err)
		}
	}
}

func TestCompleteJSONSetsJSONMode(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: `{"a":1}`})
	c := NewClient(mock, 0)
	got, err := c.CompleteJSON(context.Background(), Prompt{System: "s", User: "u", MaxTokens: 10, Temperature: 0.3, Purpose: "test"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), got["a"])
	require.Len(t, mock.Calls, 1)
	req := mock.Calls[0]
	assert.True(t, req.JSON)
	assert.Equal(t, 10, req.MaxTokens)
	assert.Equal(t, "test", req.Purpose)
	assert.Equal(t, "u", req.Messages[0].Content)
}

func TestCompleteJSONSchemaFailureIsParseError(t *testing.T) {
	schema := &Schema{
		Name: "client_test_title",
		Definition: map[string]any{
			"type":     "object",
			"required": []string{"title"},
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
			},
		},
	}
	mock := NewMockProvider(MockResponse{Content: `{"other":1}`})
	_, err := NewClient(mock, 0).CompleteJSON(context.Background(), Prompt{User: "u", Schema: schema})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, `{"other":1}`, pe.Raw)
}

func TestStreamTextWithoutStreamer(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "hello world"})
	var got string
	text, err := NewClient(mock, 0).StreamText(context.Background(), Prompt{User: "u"}, func(d string) { got += d })
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, text, got)
}

func TestFuncClientStreamsInChunks(t *testing.T) {
	fc := &FuncClient{CompleteFn: func(context.Context, Prompt) (string, error) { return "abcdef", nil }}
	var chunks []string
	text, err := fc.StreamText(context.Background(), Prompt{}, func(d string) { chunks = append(chunks, d) })
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, chunks)
	assert.Equal(t, "abcdef", text)
	assert.Len(t, fc.Calls(), 1)
}

func TestRequestAppliesPromptStyle(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "ok"})
	_, err := NewClient(mock, 0).Complete(context.Background(), Prompt{System: "Write a slide.", User: "u"})
	require.NoError(t, err)
	require.Len(t, mock.Calls, 1)
	sys := mock.Calls[0].System
	assert.True(t, strings.HasSuffix(sys, "Write a slide."))
	assert.Equal(t, "Write a slide.", promptstyle.Strip(sys))
}

func TestCompleteJSONSchemaAcceptsProseWrappedObject(t *testing.T) {
	schema := &Schema{
		Name: "client_test_prose_title",
		Definition: map[string]any{
			"type":       "object",
			"required":   []string{"title"},
			"properties": map[string]any{"title": map[string]any{"type": "string"}},
		},
	}
	mock := NewMockProvider(MockResponse{Content: "Here you go:\n{\"title\":\"Levers\"}\nEnjoy."})
	got, err := NewClient(mock, 0).CompleteJSON(context.Background(), Prompt{User: "u", Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, "Levers", got["title"])
	assert.Equal(t, 1, mock.CallCount())
}
