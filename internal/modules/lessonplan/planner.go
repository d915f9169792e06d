package lessonplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/pkg/jsonx"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	defaultClassMinutes = 45
	topicsPerSession    = 1.5
	// durationTolerance is how far a session's activity minutes may drift from its length.
	durationTolerance = 10
)

type Request struct {
	Topics        []string `json:"topics"`
	Subject       string   `json:"subject"`
	GradeLevel    string   `json:"gradeLevel"`
	ClassDuration int      `json:"classDuration"`
}

type ModifyRequest struct {
	CurrentPlan map[string]any `json:"currentPlan"`
	Feedback    string         `json:"feedback"`
	Subject     string         `json:"subject"`
	GradeLevel  string         `json:"gradeLevel"`
}

type Concept struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Step struct {
	Order     int      `json:"order"`
	Activity  string   `json:"activity"`
	Duration  int      `json:"duration"`
	Method    string   `json:"method"`
	Resources []string `json:"resources"`
	Notes     string   `json:"notes,omitempty"`
}

type Introduction struct {
	Hook           string `json:"hook"`
	PriorKnowledge string `json:"priorKnowledge"`
	AgendaShare    string `json:"agendaShare"`
}

type Check struct {
	Type             string `json:"type"`
	Prompt           string `json:"prompt"`
	ExpectedResponse string `json:"expectedResponse,omitempty"`
}

type Session struct {
	Number                int          `json:"sessionNumber"`
	Title                 string       `json:"title"`
	Duration              int          `json:"duration"`
	Objectives            []string     `json:"objectives"`
	Introduction          Introduction `json:"introduction"`
	Activities            []Step       `json:"activities"`
	CheckForUnderstanding []Check      `json:"checkForUnderstanding"`
	Closure               string       `json:"closure"`
}

// ActivityMinutes sums the durations of the session's activities.
func (s Session) ActivityMinutes() int {
	total := 0
	for _, a := range s.Activities {
		total += a.Duration
	}
	return total
}

type Assessments struct {
	Formative []string `json:"formative"`
	Summative string   `json:"summative"`
}

type Differentiation struct {
	Support        []string `json:"support"`
	Extension      []string `json:"extension"`
	Accommodations []string `json:"accommodations,omitempty"`
}

type Plan struct {
	Title           string          `json:"title"`
	Objectives      []string        `json:"objectives"`
	Prerequisites   []string        `json:"prerequisites"`
	Standards       []string        `json:"standards,omitempty"`
	Concepts        []Concept       `json:"concepts"`
	Sessions        []Session       `json:"sessions"`
	Assessments     Assessments     `json:"assessments"`
	Resources       []string        `json:"resources"`
	Differentiation Differentiation `json:"differentiation"`
	TotalSessions   int             `json:"totalSessions"`
	TotalDuration   int             `json:"totalDuration"`
	// Warnings lists sessions whose activity minutes do not add up.
	Warnings []string `json:"warnings,omitempty"`
}

// Allocation is the per-session minute budget used to pace the plan.
type Allocation struct {
	Sessions     int
	Intro        int
	Main         int
	Assessment   int
	Closure      int
	TotalMinutes int
}

// Allocate splits topics into sessions of classMinutes each.
func Allocate(topics, classMinutes int) Allocation {
	if classMinutes <= 0 {
		classMinutes = defaultClassMinutes
	}
	sessions := int(math.Ceil(float64(topics) / topicsPerSession))
	if sessions < 1 {
		sessions = 1
	}
	m := float64(classMinutes)
	return Allocation{
		Sessions:     sessions,
		Intro:        max(5, int(m*0.12)),
		Main:         int(m * 0.65),
		Assessment:   max(3, int(m*0.10)),
		Closure:      max(5, int(m*0.13)),
		TotalMinutes: sessions * classMinutes,
	}
}

type Planner struct {
	log *logger.Logger
	llm llm.Client
}

func New(log *logger.Logger, client llm.Client) *Planner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Planner{log: log.With("service", "LessonPlanner"), llm: client}
}

func (p *Planner) Generate(ctx context.Context, req Request) (*Plan, error) {
	topics := make([]string, 0, len(req.Topics))
	for _, t := range req.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return nil, apierr.BadRequest(errors.New("no topics provided"))
	}
	classMinutes := req.ClassDuration
	if classMinutes <= 0 {
		classMinutes = defaultClassMinutes
	}
	alloc := Allocate(len(topics), classMinutes)

	obj, err := p.llm.CompleteJSON(ctx, llm.Prompt{
		System:      plannerSystemPrompt,
		User:        plannerUserPrompt(req, topics, classMinutes, alloc),
		MaxTokens:   4000,
		Temperature: 0.6,
		Purpose:     "lesson_plan",
	})
	if err != nil {
		p.log.Error("lesson plan generation failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("generate lesson plan: %w", err))
	}
	plan := p.decode(obj, "Lesson Plan", classMinutes)
	p.log.Info("lesson plan generated", "sessions", plan.TotalSessions, "minutes", plan.TotalDuration, "planned_sessions", alloc.Sessions)
	return plan, nil
}

// Modify applies teacher feedback to an existing plan.
func (p *Planner) Modify(ctx context.Context, req ModifyRequest) (*Plan, error) {
	if len(req.CurrentPlan) == 0 || strings.TrimSpace(req.Feedback) == "" {
		return nil, apierr.BadRequest(errors.New("currentPlan and feedback are required"))
	}
	current, err := json.MarshalIndent(req.CurrentPlan, "", "  ")
	if err != nil {
		return nil, apierr.BadRequest(fmt.Errorf("encode current plan: %w", err))
	}
	obj, err := p.llm.CompleteJSON(ctx, llm.Prompt{
		System: "You revise multi-session lesson plans. Apply the feedback and return the full updated plan as JSON with the same structure.",
		User: strings.Join([]string{
			"Subject: " + req.Subject,
			"Grade: " + req.GradeLevel,
			"",
			"Teacher feedback:",
			req.Feedback,
			"",
			"Current plan JSON:",
			string(current),
		}, "\n"),
		MaxTokens:   4000,
		Temperature: 0.6,
		Purpose:     "lesson_plan_modify",
	})
	if err != nil {
		p.log.Error("lesson plan modification failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("modify lesson plan: %w", err))
	}
	return p.decode(obj, "Updated Lesson Plan", defaultClassMinutes), nil
}

// decode fills defaults, recomputes totals from the sessions and soft-checks session timing.
func (p *Planner) decode(obj map[string]any, defTitle string, classMinutes int) *Plan {
	plan := &Plan{
		Title:         jsonx.String(obj, "title", defTitle),
		Objectives:    jsonx.StringList(obj, "objectives"),
		Prerequisites: jsonx.StringList(obj, "prerequisites"),
		Standards:     jsonx.StringList(obj, "standards"),
		Concepts:      []Concept{},
		Sessions:      []Session{},
		Resources:     jsonx.StringList(obj, "resources"),
	}
	for i, c := range jsonx.ObjectList(obj, "concepts") {
		plan.Concepts = append(plan.Concepts, Concept{
			ID:          jsonx.String(c, "id", fmt.Sprintf("concept-%d", i+1)),
			Name:        jsonx.String(c, "name", ""),
			Description: jsonx.String(c, "description", ""),
		})
	}
	for i, so := range jsonx.ObjectList(obj, "sessions") {
		plan.Sessions = append(plan.Sessions, decodeSession(so, i+1, classMinutes))
	}

	a := jsonx.Object(obj, "assessments")
	plan.Assessments = Assessments{
		Formative: jsonx.StringList(a, "formative"),
		Summative: jsonx.String(a, "summative", "End-of-lesson assessment"),
	}
	d := jsonx.Object(obj, "differentiation")
	plan.Differentiation = Differentiation{
		Support:        jsonx.StringList(d, "support"),
		Extension:      jsonx.StringList(d, "extension"),
		Accommodations: jsonx.StringList(d, "accommodations"),
	}

	for _, s := range plan.Sessions {
		plan.TotalDuration += s.Duration
		if got := s.ActivityMinutes(); abs(got-s.Duration) > durationTolerance {
			w := fmt.Sprintf("session %d duration mismatch: activities=%d, expected=%d", s.Number, got, s.Duration)
			plan.Warnings = append(plan.Warnings, w)
			p.log.Warn("lesson plan timing", "warning", w)
		}
	}
	plan.TotalSessions = len(plan.Sessions)
	return plan
}

func decodeSession(so map[string]any, n, classMinutes int) Session {
	num := jsonx.Int(so, "sessionNumber", n)
	s := Session{
		Number:                num,
		Title:                 jsonx.String(so, "title", fmt.Sprintf("Session %d", num)),
		Duration:              jsonx.Int(so, "duration", classMinutes),
		Objectives:            jsonx.StringList(so, "objectives"),
		Activities:            []Step{},
		CheckForUnderstanding: []Check{},
		Closure:               jsonx.String(so, "closure", ""),
	}
	intro := jsonx.Object(so, "introduction")
	s.Introduction = Introduction{
		Hook:           jsonx.String(intro, "hook", ""),
		PriorKnowledge: jsonx.String(intro, "priorKnowledge", ""),
		AgendaShare:    jsonx.String(intro, "agendaShare", ""),
	}
	for i, a := range jsonx.ObjectList(so, "activities") {
		s.Activities = append(s.Activities, Step{
			Order:     jsonx.Int(a, "order", i+1),
			Activity:  jsonx.String(a, "activity", ""),
			Duration:  jsonx.Int(a, "duration", 0),
			Method:    jsonx.String(a, "method", ""),
			Resources: jsonx.StringList(a, "resources"),
			Notes:     jsonx.String(a, "notes", ""),
		})
	}
	for _, c := range jsonx.ObjectList(so, "checkForUnderstanding") {
		s.CheckForUnderstanding = append(s.CheckForUnderstanding, Check{
			Type:             jsonx.String(c, "type", "questioning"),
			Prompt:           jsonx.String(c, "prompt", ""),
			ExpectedResponse: jsonx.String(c, "expectedResponse", ""),
		})
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

const plannerSystemPrompt = `You are a curriculum specialist who designs lessons with backward design.
Lessons use "I Do, We Do, You Do" scaffolding, open with a hook, weave in formative checks and end with closure.
Include differentiation for struggling and advanced learners. Always respond with valid JSON.`

func plannerUserPrompt(req Request, topics []string, classMinutes int, a Allocation) string {
	joined := strings.Join(topics, ", ")
	return strings.Join([]string{
		"Design a multi-session lesson plan.",
		"Topics: " + joined,
		"Subject: " + req.Subject,
		"Grade: " + req.GradeLevel,
		fmt.Sprintf("Class period: %d minutes per session", classMinutes),
		fmt.Sprintf("Sessions: %d (total %d minutes)", a.Sessions, a.TotalMinutes),
		"",
		"Per session pacing:",
		fmt.Sprintf("- introduction/hook about %d minutes", a.Intro),
		fmt.Sprintf("- learning activities about %d minutes (I Do, We Do, You Do)", a.Main),
		fmt.Sprintf("- checks for understanding about %d minutes", a.Assessment),
		fmt.Sprintf("- closure about %d minutes", a.Closure),
		fmt.Sprintf("Each session's activity durations must sum to %d minutes.", classMinutes),
		fmt.Sprintf("Identify %d key concepts ordered from foundational to advanced.", max(3, len(topics)*2)),
		"",
		"Return JSON with: title, objectives, prerequisites, standards, concepts [{id, name, description}],",
		"sessions [{sessionNumber, title, duration, objectives, introduction {hook, priorKnowledge, agendaShare},",
		"activities [{order, activity, duration, method, resources, notes}], checkForUnderstanding [{type, prompt, expectedResponse}], closure}],",
		"assessments {formative, summative}, resources, differentiation {support, extension, accommodations}.",
	}, "\n")
}
