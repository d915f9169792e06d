package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const defaultDuration = 30

type Request struct {
	Topic        string `json:"topic"`
	Subject      string `json:"subject"`
	Duration     int    `json:"duration"`
	ActivityType string `json:"activityType"`
	GradeLevel   string `json:"gradeLevel"`
}

type Activity struct {
	Title            string   `json:"title"`
	Materials        []string `json:"materials"`
	Steps            []string `json:"steps"`
	LearningOutcomes []string `json:"learningOutcomes"`
}

// Generator designs hands-on classroom activities.
type Generator struct {
	log *logger.Logger
	llm llm.Client
}

func New(log *logger.Logger, client llm.Client) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{log: log.With("service", "ActivityGenerator"), llm: client}
}

var activitySchema = &llm.Schema{
	Name: "classroom_activity_v1",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":            map[string]any{"type": "string"},
			"materials":        map[string]any{"type": "array"},
			"steps":            map[string]any{"type": "array"},
			"learningOutcomes": map[string]any{"type": "array"},
		},
		"required": []any{"title"},
	},
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Activity, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, apierr.BadRequest(errors.New("topic is required"))
	}
	duration := req.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	obj, err := g.llm.CompleteJSON(ctx, llm.Prompt{
		System: strings.Join([]string{
			"You are an experienced educator who designs engaging, hands-on classroom activities.",
			"Instructions are clear enough for a substitute teacher, materials are available in a typical classroom.",
			"Always respond with valid JSON.",
		}, "\n"),
		User: strings.Join([]string{
			"Design a classroom activity.",
			fmt.Sprintf("Topic: %q", topic),
			"Subject: " + req.Subject,
			"Grade: " + req.GradeLevel,
			fmt.Sprintf("Duration: %d minutes", duration),
			"Activity type: " + req.ActivityType,
			"",
			"Return JSON with:",
			`- "title": a specific, descriptive title`,
			`- "materials": 5-10 items, optional ones marked "(optional)"`,
			`- "steps": 5-8 steps, each with a timing estimate, starting with a hook and ending with reflection`,
			`- "learningOutcomes": 3-5 measurable outcomes starting "Students will be able to"`,
			fmt.Sprintf("The activity must fit in %d minutes.", duration),
		}, "\n"),
		MaxTokens:   3000,
		Temperature: 0.7,
		Schema:      activitySchema,
		Purpose:     "activity",
	})
	if err != nil {
		g.log.Error("activity generation failed", "topic", topic, "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("generate activity: %w", err))
	}
	out := &Activity{
		Title:            jsonx.String(obj, "title", topic+" Activity"),
		Materials:        jsonx.StringList(obj, "materials"),
		Steps:            jsonx.StringList(obj, "steps"),
		LearningOutcomes: jsonx.StringList(obj, "learningOutcomes"),
	}
	g.log.Info("activity generated", "topic", topic, "steps", len(out.Steps))
	return out, nil
}
