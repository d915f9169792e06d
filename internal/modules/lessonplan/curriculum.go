package lessonplan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

const periodMinutes = 45

type CurriculumChapter struct {
	Name   string            `json:"name"`
	Topics []CurriculumTopic `json:"topics"`
}

type CurriculumTopic struct {
	Name string `json:"name"`
}

type CurriculumRequest struct {
	GradeLevel             string              `json:"gradeLevel"`
	Subject                string              `json:"subject"`
	Chapters               []CurriculumChapter `json:"chapters"`
	AdditionalInstructions string              `json:"additionalInstructions,omitempty"`
}

type TopicPlan struct {
	Name            string   `json:"name"`
	Objectives      []string `json:"objectives"`
	TeachingMinutes int      `json:"teachingMinutes"`
	Periods         int      `json:"periods"`
	KeyPoints       []string `json:"keyPoints"`
}

type ChapterPlan struct {
	Name         string      `json:"name"`
	Topics       []TopicPlan `json:"topics"`
	TotalMinutes int         `json:"totalMinutes"`
	TotalPeriods int         `json:"totalPeriods"`
}

// CurriculumPlan is a year-level teaching plan: objectives and time per topic.
type CurriculumPlan struct {
	Title        string        `json:"title"`
	Subject      string        `json:"subject"`
	GradeLevel   string        `json:"gradeLevel"`
	TotalHours   int           `json:"totalHours"`
	TotalPeriods int           `json:"totalPeriods"`
	Chapters     []ChapterPlan `json:"chapters"`
}

// CurriculumPlan estimates objectives, teaching minutes and key points for every topic.
// Chapter and plan totals are recomputed from the topics rather than trusted.
func (p *Planner) CurriculumPlan(ctx context.Context, req CurriculumRequest) (*CurriculumPlan, error) {
	req.GradeLevel = strings.TrimSpace(req.GradeLevel)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.GradeLevel == "" || req.Subject == "" {
		return nil, apierr.BadRequest(errors.New("gradeLevel and subject are required"))
	}

	obj, err := p.llm.CompleteJSON(ctx, llm.Prompt{
		System:      curriculumSystemPrompt,
		User:        curriculumUserPrompt(req),
		MaxTokens:   4000,
		Temperature: 0.6,
		Purpose:     "curriculum_plan",
	})
	if err != nil {
		p.log.Error("curriculum plan generation failed", "error", err, "subject", req.Subject)
		return nil, apierr.GenerationFailed(fmt.Errorf("generate curriculum plan: %w", err))
	}
	plan := decodeCurriculum(obj, req)
	p.log.Info("curriculum plan generated", "chapters", len(plan.Chapters), "periods", plan.TotalPeriods)
	return plan, nil
}

func decodeCurriculum(obj map[string]any, req CurriculumRequest) *CurriculumPlan {
	plan := &CurriculumPlan{
		Title:      jsonx.String(obj, "title", fmt.Sprintf("Class %s %s - Complete Curriculum Plan", req.GradeLevel, req.Subject)),
		Subject:    jsonx.String(obj, "subject", req.Subject),
		GradeLevel: jsonx.String(obj, "gradeLevel", req.GradeLevel),
		Chapters:   []ChapterPlan{},
	}
	totalMinutes := 0
	for i, co := range jsonx.ObjectList(obj, "chapters") {
		ch := ChapterPlan{
			Name:   jsonx.String(co, "name", fmt.Sprintf("Chapter %d", i+1)),
			Topics: []TopicPlan{},
		}
		for j, to := range jsonx.ObjectList(co, "topics") {
			minutes := jsonx.Int(to, "teachingMinutes", periodMinutes)
			if minutes <= 0 {
				minutes = periodMinutes
			}
			periods := jsonx.Int(to, "periods", 0)
			if periods <= 0 {
				periods = int(math.Ceil(float64(minutes) / periodMinutes))
			}
			ch.Topics = append(ch.Topics, TopicPlan{
				Name:            jsonx.String(to, "name", fmt.Sprintf("Topic %d.%d", i+1, j+1)),
				Objectives:      jsonx.StringList(to, "objectives"),
				TeachingMinutes: minutes,
				Periods:         periods,
				KeyPoints:       jsonx.StringList(to, "keyPoints"),
			})
			ch.TotalMinutes += minutes
			ch.TotalPeriods += periods
		}
		totalMinutes += ch.TotalMinutes
		plan.TotalPeriods += ch.TotalPeriods
		plan.Chapters = append(plan.Chapters, ch)
	}
	plan.TotalHours = int(math.Round(float64(totalMinutes) / 60))
	return plan
}

const curriculumSystemPrompt = `You are a curriculum planner who knows educational standards, pedagogy and classroom time management.
For each topic give 2-3 measurable objectives using Bloom's taxonomy verbs, a realistic time estimate and key teaching points.
One class period is 40-45 minutes and complex topics need more time. Always respond with valid JSON.`

func curriculumUserPrompt(req CurriculumRequest) string {
	var b strings.Builder
	for _, ch := range req.Chapters {
		fmt.Fprintf(&b, "\n**%s**:\n", ch.Name)
		for _, t := range ch.Topics {
			fmt.Fprintf(&b, "  - %s\n", t.Name)
		}
	}
	lines := []string{
		"Generate a curriculum teaching plan.",
		"Grade: Class " + req.GradeLevel,
		"Subject: " + req.Subject,
		"Curriculum overview:" + b.String(),
		"",
		"For every topic of every chapter give:",
		"- objectives: 2-3, starting with an action verb",
		"- teachingMinutes: simple 30-45, moderate 60-90, complex 90-135, very complex 135-180",
		fmt.Sprintf("- periods: number of %d-minute periods", periodMinutes),
		"- keyPoints: 3-5 formulas, definitions, misconceptions or applications",
		"",
		"Return JSON with: title, subject, gradeLevel, totalHours, totalPeriods,",
		"chapters [{name, totalMinutes, totalPeriods, topics [{name, objectives, teachingMinutes, periods, keyPoints}]}].",
		"Every topic from the curriculum must be included.",
	}
	if extra := strings.TrimSpace(req.AdditionalInstructions); extra != "" {
		lines = append(lines, "", "Additional teacher instructions:", extra)
	}
	return strings.Join(lines, "\n")
}
