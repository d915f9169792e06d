// Package textbook turns a pasted table of contents into a chapter/topic tree
// that can seed lesson and curriculum plans.
package textbook

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

// maxDepth bounds recursion on model output; indexes deeper than chapter/section/subsection are flattened away.
const maxDepth = 3

type Request struct {
	RawText    string `json:"rawText"`
	Subject    string `json:"subject,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
}

type TopicNode struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	PageNumber string      `json:"pageNumber,omitempty"`
	Subtopics  []TopicNode `json:"subtopics"`
}

type Index struct {
	Chapters []TopicNode `json:"chapters"`
}

type Parser struct {
	log *logger.Logger
	llm llm.Client
}

func New(log *logger.Logger, client llm.Client) *Parser {
	if log == nil {
		log = logger.NewNop()
	}
	return &Parser{log: log.With("service", "TextbookIndexParser"), llm: client}
}

// ParseIndex structures raw index text, which may carry page numbers, leader dots or OCR noise.
func (p *Parser) ParseIndex(ctx context.Context, req Request) (*Index, error) {
	raw := strings.TrimSpace(req.RawText)
	if raw == "" {
		return nil, apierr.BadRequest(errors.New("rawText is required"))
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "General"
	}
	grade := strings.TrimSpace(req.GradeLevel)
	if grade == "" {
		grade = "Unknown"
	}
	p.log.Info("parsing textbook index", "subject", subject, "grade", grade, "bytes", len(raw))

	obj, err := p.llm.CompleteJSON(ctx, llm.Prompt{
		System:      indexSystemPrompt,
		User:        indexUserPrompt(raw, subject, grade),
		MaxTokens:   2000,
		Temperature: 0.3,
		Purpose:     "textbook_index",
	})
	if err != nil {
		p.log.Error("textbook index parsing failed", "error", err)
		return nil, apierr.GenerationFailed(fmt.Errorf("parse index: %w", err))
	}
	return &Index{Chapters: decodeNodes(obj, "chapters", "ch", 1)}, nil
}

func decodeNodes(obj map[string]any, key, parentID string, depth int) []TopicNode {
	out := []TopicNode{}
	if depth > maxDepth {
		return out
	}
	for i, no := range jsonx.ObjectList(obj, key) {
		id := jsonx.String(no, "id", fmt.Sprintf("%s-%d", parentID, i+1))
		name := jsonx.String(no, "name", "")
		if name == "" {
			continue
		}
		out = append(out, TopicNode{
			ID:         id,
			Name:       name,
			PageNumber: jsonx.String(no, "pageNumber", ""),
			Subtopics:  decodeNodes(no, "subtopics", id, depth+1),
		})
	}
	return out
}

const indexSystemPrompt = `You are an expert educational content structurer. Convert raw text from a textbook's table of contents or index into a clean JSON hierarchy.
The input may be unstructured and contain page numbers, dots or OCR noise.
Identify the chapters or units, then the topics or sections under each chapter.
Ignore authors, prefaces and other text that is not an instructional unit. Preserve the original order.`

func indexUserPrompt(raw, subject, grade string) string {
	return strings.Join([]string{
		"Parse the following textbook index into a hierarchical structure.",
		"",
		"Subject: " + subject,
		"Grade: " + grade,
		"",
		"RAW INDEX CONTENT:",
		raw,
		"",
		`Return JSON: {"chapters":[{"id":"ch-1","name":"Chapter 1: Title","pageNumber":"1","subtopics":[{"id":"ch-1-1","name":"1.1 Topic Name","pageNumber":"2"}]}]}`,
	}, "\n")
}
