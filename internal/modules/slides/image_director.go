package slides

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const directorContentLimit = 500

// ImageQuery is a stock-photo search plan for one slide.
type ImageQuery struct {
	Query       string   `json:"imageQuery"`
	Orientation string   `json:"orientation"`
	Keywords    []string `json:"keywords"`
	ImageType   string   `json:"imageType"`
	Confidence  int      `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
}

type ImageDirector struct {
	log *logger.Logger
	llm llm.Client
}

func NewImageDirector(log *logger.Logger, client llm.Client) *ImageDirector {
	if log == nil {
		log = logger.NewNop()
	}
	return &ImageDirector{log: log.With("service", "ImageDirector"), llm: client}
}

var imageQuerySchema = &llm.Schema{
	Name: "slide_image_query_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"imageQuery":  map[string]any{"type": "string"},
			"orientation": map[string]any{"type": "string"},
			"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"imageType":   map[string]any{"type": "string"},
			"confidence":  map[string]any{"type": "number"},
			"reasoning":   map[string]any{"type": "string"},
		},
		"required": []any{"imageQuery"},
	},
}

// Query returns nil for SUMMARY slides, empty queries and any failure.
func (d *ImageDirector) Query(ctx context.Context, slide lesson.Slide, subject, grade string) *ImageQuery {
	if d == nil || d.llm == nil || slide.SlideType == lesson.SlideSummary {
		return nil
	}
	content := clipRunes(slide.Content, directorContentLimit)
	obj, err := d.llm.CompleteJSON(ctx, llm.Prompt{
		System: imageDirectorSystemPrompt,
		User: strings.Join([]string{
			"Slide title: " + slide.Title,
			"Slide type: " + string(slide.SlideType),
			"Subject: " + subject,
			"Grade: " + grade,
			"",
			"Slide content:",
			content,
		}, "\n"),
		MaxTokens:   300,
		Temperature: 0.7,
		Schema:      imageQuerySchema,
		Purpose:     "image_query",
	})
	if err != nil {
		d.log.Warn("image query failed", "title", slide.Title, "error", err)
		return nil
	}
	q := decodeImageQuery(obj)
	if q == nil {
		d.log.Debug("no image query for slide", "title", slide.Title)
	}
	return q
}

func decodeImageQuery(obj map[string]any) *ImageQuery {
	query := strings.TrimSpace(jsonx.String(obj, "imageQuery", ""))
	if query == "" {
		return nil
	}
	return &ImageQuery{
		Query:       query,
		Orientation: jsonx.String(obj, "orientation", "landscape"),
		Keywords:    jsonx.StringList(obj, "keywords"),
		ImageType:   jsonx.String(obj, "imageType", "stock_photo"),
		Confidence:  jsonx.Int(obj, "confidence", 75),
		Reasoning:   jsonx.String(obj, "reasoning", "Generated from slide content"),
	}
}

const imageDirectorSystemPrompt = `You choose stock photographs for classroom slides.
Write a short, concrete search query (3-6 words) a photo site can match: real objects, scenes or people, never abstract ideas or text.
Prefer landscape orientation. Return an empty imageQuery when no photograph would help.
Return JSON with imageQuery, orientation, keywords, imageType, confidence (0-100) and reasoning.`

// clipRunes keeps at most n runes so multi-byte text is never split mid-character.
func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
