package doubt

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

type Request struct {
	Question   string `json:"question"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
}

type Response struct {
	Question        string   `json:"question"`
	Solution        string   `json:"solution"`
	Subject         string   `json:"subject"`
	RelatedConcepts []string `json:"relatedConcepts"`
	SimilarProblems []string `json:"similarProblems"`
}

type FollowUpRequest struct {
	OriginalQuestion string `json:"originalQuestion"`
	FollowUpQuestion string `json:"followUpQuestion"`
	PreviousContext  string `json:"previousContext,omitempty"`
}

type FollowUpResponse struct {
	Answer        string `json:"answer"`
	Clarification string `json:"clarification,omitempty"`
}

// Solver tutors students through a question step by step.
type Solver struct {
	log *logger.Logger
	llm llm.Client
	ocr TextExtractor
	stt Transcriber
}

func New(log *logger.Logger, client llm.Client) *Solver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Solver{log: log.With("service", "DoubtSolver"), llm: client}
}

func (s *Solver) SolveText(ctx context.Context, req Request) (*Response, error) {
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return nil, apierr.BadRequest(errors.New("question is required"))
	}
	grade := "general student"
	if req.GradeLevel != "" {
		grade = "Grade Level: " + req.GradeLevel
	}
	subject := "subject to be identified"
	if req.Subject != "" {
		subject = "Subject: " + req.Subject
	}

	obj, err := s.llm.CompleteJSON(ctx, llm.Prompt{
		System:      solverSystemPrompt,
		User:        solverUserPrompt(q, subject, grade),
		MaxTokens:   2800,
		Temperature: 0.6,
		Purpose:     "doubt_solve",
	})
	if err != nil {
		s.log.Error("doubt solving failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("solve doubt: %w", err))
	}
	solution := jsonx.String(obj, "solution", "")
	if solution == "" {
		return nil, apierr.GenerationFailed(errors.New("solve doubt: empty solution"))
	}
	defSubject := req.Subject
	if defSubject == "" {
		defSubject = "General"
	}
	return &Response{
		Question:        jsonx.String(obj, "question", q),
		Solution:        solution,
		Subject:         jsonx.String(obj, "subject", defSubject),
		RelatedConcepts: jsonx.StringList(obj, "relatedConcepts"),
		SimilarProblems: jsonx.StringList(obj, "similarProblems"),
	}, nil
}

func (s *Solver) FollowUp(ctx context.Context, req FollowUpRequest) (*FollowUpResponse, error) {
	if strings.TrimSpace(req.FollowUpQuestion) == "" {
		return nil, apierr.BadRequest(errors.New("followUpQuestion is required"))
	}
	prev := req.PreviousContext
	if prev == "" {
		prev = "Initial explanation was provided"
	}
	obj, err := s.llm.CompleteJSON(ctx, llm.Prompt{
		System: strings.Join([]string{
			"You are a patient tutor continuing a conversation with a student who has a follow-up question.",
			"Answer exactly what they asked, try a different explanation if the first did not land, and connect back to the main concept.",
			"Always respond with valid JSON.",
		}, "\n"),
		User: strings.Join([]string{
			"Original question:",
			req.OriginalQuestion,
			"",
			"Previous explanation:",
			prev,
			"",
			"Follow-up question:",
			req.FollowUpQuestion,
			"",
			`Return JSON {"answer": "...", "clarification": "optional note on a likely misconception"}.`,
		}, "\n"),
		MaxTokens:   1800,
		Temperature: 0.7,
		Purpose:     "doubt_follow_up",
	})
	if err != nil {
		s.log.Error("follow-up failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("answer follow-up: %w", err))
	}
	answer := jsonx.String(obj, "answer", "")
	if answer == "" {
		return nil, apierr.GenerationFailed(errors.New("answer follow-up: empty answer"))
	}
	return &FollowUpResponse{Answer: answer, Clarification: jsonx.String(obj, "clarification", "")}, nil
}

const solverSystemPrompt = `You are a tutor who makes complex ideas clear. You teach students how to solve problems instead of doing their homework.
Explain why before how, build on what the student knows and warn about common mistakes.
Always respond with valid JSON.`

func solverUserPrompt(question, subject, grade string) string {
	return strings.Join([]string{
		"A student needs help with this question:",
		fmt.Sprintf("%q", question),
		"",
		subject,
		grade,
		"",
		"Write the solution in markdown with these sections:",
		"## What We Know, ## Our Approach, ## Step-by-Step Solution, ## Checking Our Answer, ## Key Takeaway.",
		"Explain what each step does and why. Adapt vocabulary to the student's level.",
		"",
		`Return JSON {"question": "...", "solution": "...", "subject": "...", "relatedConcepts": ["3-5 concepts"], "similarProblems": ["2-3 practice problems"]}.`,
	}, "\n")
}
