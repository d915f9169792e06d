package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

const slidesPerTopic = 5

// StructuredSlideCount is five slides per topic plus one summary.
func StructuredSlideCount(topics int) int {
	return topics*slidesPerTopic + 1
}

var deckSchema = &llm.Schema{
	Name: "deck_slides_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"slides": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"order": map[string]any{"type": "number"},
					},
					"required": []any{"title", "content"},
				},
			},
		},
		"required": []any{"slides"},
	},
}

// GenerateStructured builds a definition, details, three graded questions per topic and a summary
// in one completion. A failed completion fails the request.
func (s *Service) GenerateStructured(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topics := req.TopicList()
	expected := StructuredSlideCount(len(topics))
	heading := strings.TrimSpace(req.Chapter)
	if heading == "" {
		heading = topics[0]
	}
	log := s.log.With("pipeline", pipelineStructured, "topics", len(topics))

	var obj map[string]any
	err := s.stage(ctx, pipelineStructured, "generate", func(ctx context.Context) error {
		var err error
		obj, err = s.llm.CompleteJSON(ctx, llm.Prompt{
			System:      structuredSystemPrompt,
			User:        structuredUserPrompt(req, topics, heading, expected),
			MaxTokens:   4000,
			Temperature: 0.7,
			Schema:      deckSchema,
			Purpose:     "deck_structured",
		})
		return err
	})
	if err != nil {
		log.Error("structured deck generation failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("generate deck: %w", err))
	}
	title, built := decodeDeck(obj, heading+": Complete Teaching Deck")
	if len(built) == 0 {
		return nil, apierr.GenerationFailed(errors.New("generate deck: model returned no slides"))
	}

	res := s.finish(ctx, pipelineStructured, finishInput{
		title:    title,
		meta:     s.metadata(req, heading, nil),
		slides:   built,
		subject:  req.Subject,
		expected: expected,
	})
	s.deriveVariants(ctx, res, req.Levels)
	log.Info("structured deck generated", "slides", len(res.Slides), "expected", expected, "visuals", res.VisualsGenerated)
	return res, nil
}

// ModifyRequest applies teacher feedback to an existing deck.
type ModifyRequest struct {
	CurrentDeck map[string]any `json:"currentDeck"`
	Feedback    string         `json:"feedback"`
	Subject     string         `json:"subject"`
	GradeLevel  string         `json:"gradeLevel"`
}

func (r ModifyRequest) Validate() error {
	if len(r.CurrentDeck) == 0 {
		return apierr.BadRequest(errors.New("currentDeck is required"))
	}
	if strings.TrimSpace(r.Feedback) == "" {
		return apierr.BadRequest(errors.New("feedback is required"))
	}
	return nil
}

// Modify rewrites the deck per the feedback and re-runs visual routing and rendering.
func (s *Service) Modify(ctx context.Context, req ModifyRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := json.MarshalIndent(req.CurrentDeck, "", "  ")
	if err != nil {
		return nil, apierr.BadRequest(fmt.Errorf("encode current deck: %w", err))
	}

	var obj map[string]any
	err = s.stage(ctx, pipelineModify, "generate", func(ctx context.Context) error {
		var err error
		obj, err = s.llm.CompleteJSON(ctx, llm.Prompt{
			System: strings.Join([]string{
				"You are an instructional designer revising a presentation deck based on teacher feedback.",
				"Return the fully updated deck as JSON with the same structure: a title and a slides list.",
			}, "\n"),
			User: strings.Join([]string{
				"Subject: " + req.Subject,
				"Grade: " + req.GradeLevel,
				"",
				"Teacher feedback:",
				req.Feedback,
				"",
				"Current deck JSON:",
				string(current),
				"",
				"Apply the feedback. Add, remove or edit slides as needed and return the complete deck.",
			}, "\n"),
			MaxTokens:   3000,
			Temperature: 0.7,
			Schema:      deckSchema,
			Purpose:     "deck_modify",
		})
		return err
	})
	if err != nil {
		s.log.Error("deck modification failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("modify deck: %w", err))
	}

	title, built := decodeDeck(obj, jsonx.String(req.CurrentDeck, "title", "Untitled"))
	if len(built) == 0 {
		return nil, apierr.GenerationFailed(errors.New("modify deck: model returned no slides"))
	}
	meta := lesson.NewMetadata(title, req.Subject, req.GradeLevel, s.now())
	if prev := jsonx.Object(req.CurrentDeck, "meta"); len(prev) > 0 {
		if err := jsonx.Decode(prev, &meta); err != nil {
			s.log.Warn("current deck meta ignored", "error", err)
			meta = lesson.NewMetadata(title, req.Subject, req.GradeLevel, s.now())
		}
	}

	res := s.finish(ctx, pipelineModify, finishInput{title: title, meta: meta, slides: built, subject: req.Subject})
	s.log.Info("deck modified", "slides", len(res.Slides), "visuals", res.VisualsGenerated)
	return res, nil
}

// decodeDeck reads {title, slides:[{title, content, ...}]}. Content of any JSON shape is flattened to text.
func decodeDeck(obj map[string]any, defTitle string) (string, []lesson.Slide) {
	items := jsonx.ObjectList(obj, "slides")
	out := make([]lesson.Slide, 0, len(items))
	for i, item := range items {
		sl := lesson.Slide{
			Title:        jsonx.String(item, "title", "Untitled"),
			Content:      lesson.FlattenContent(item["content"]),
			Order:        i,
			Objective:    jsonx.String(item, "objective", ""),
			SpeakerNotes: jsonx.String(item, "speakerNotes", ""),
			ImageQuery:   lesson.StringPtr(jsonx.String(item, "imageQuery", "")),
		}
		if raw := jsonx.String(item, "slideType", ""); raw != "" {
			sl.SlideType, _ = lesson.ParseSlideType(raw)
		}
		if raw := jsonx.String(item, "bloomLevel", jsonx.String(item, "bloom_level", "")); raw != "" {
			sl.BloomLevel, _ = lesson.ParseCognitiveLevel(raw)
		}
		out = append(out, sl)
	}
	return jsonx.String(obj, "title", defTitle), out
}

const structuredSystemPrompt = `You are an educational content designer who builds structured teaching decks.
For every topic you create exactly five slides in this order:
1. Definition: a clear, concise definition.
2. Details and explanation: key principles, real-world examples and formulas.
3. Basic question: 1-3 solution steps, answer included.
4. Challenging question: a 4-7 step numerical or application problem with a worked solution.
5. Olympiad question: a competition-level problem with an approach, full solution and answer.
After all topics, add one summary slide. Always respond with valid JSON.`

func structuredUserPrompt(req Request, topics []string, heading string, expected int) string {
	numbered := make([]string, len(topics))
	for i, t := range topics {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, t)
	}
	chapter := req.Chapter
	if chapter == "" {
		chapter = "General"
	}
	return strings.Join([]string{
		"Generate a structured teaching deck.",
		"Subject: " + req.Subject,
		"Grade: " + req.GradeLevel,
		"Chapter: " + chapter,
		fmt.Sprintf("Total slides required: %d (%d topics x 5 + 1 summary)", expected, len(topics)),
		"",
		"Topics, in order:",
		strings.Join(numbered, "\n"),
		"",
		"Slide titles: \"<Topic>: Definition\", \"Understanding <Topic>\", \"<Topic>: Practice Question 1\",",
		"\"<Topic>: Practice Question 2 (Challenging)\", \"<Topic>: Challenge Question (Olympiad Level)\".",
		"The last slide is titled \"Today's Learning Summary\".",
		"",
		fmt.Sprintf(`Output: {"title": "%s: Complete Teaching Deck", "slides": [{"title": "...", "content": "...", "order": 1}]}`, heading),
	}, "\n")
}
