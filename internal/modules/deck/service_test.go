package deck

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/modules/visuals"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
	"github.com/yungbote/lessonforge-backend/internal/realtime"
	"github.com/yungbote/lessonforge-backend/internal/realtime/bus"
)

const outlineJSON = `{"slides": [
	{"title": "What is velocity?", "slideType": "INTRODUCTION", "bloom_level": "REMEMBER", "objective": "Define velocity"},
	{"title": "Broken slide", "slideType": "CONCEPT", "bloom_level": "UNDERSTAND", "objective": "Explain speed"},
	{"title": "Race problems", "slideType": "ACTIVITY", "bloom_level": "APPLY", "objective": "Solve problems"},
	{"title": "Wrap up", "slideType": "SUMMARY", "bloom_level": "CREATE", "objective": "Synthesize"}
]}`

// lessonClient answers every prompt the advanced pipeline sends.
func lessonClient() *llm.FuncClient {
	return &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		switch p.Purpose {
		case "outline":
			return outlineJSON, nil
		case "slide_content":
			if strings.Contains(p.User, "Broken slide") {
				return "", errors.New("rate limited")
			}
			return "Velocity tells us how fast and in which direction.", nil
		case "speaker_notes":
			return "Ask for everyday examples.", nil
		case "image_query":
			return `{"imageQuery": "runner on a track"}`, nil
		case "visual_classify":
			return `{"visualType": "none", "confidence": 20, "reasoning": "text only"}`, nil
		case "differentiate_support", "differentiate_extension":
			return "simpler words", nil
		}
		return "", errors.New("unexpected purpose " + p.Purpose)
	}}
}

func newTestService(t *testing.T, client llm.Client, extra func(*ServiceDeps)) *Service {
	t.Helper()
	deps := ServiceDeps{
		LLM:         client,
		Concurrency: 2,
		Now:         func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) },
	}
	if extra != nil {
		extra(&deps)
	}
	s, err := NewService(deps)
	require.NoError(t, err)
	return s
}

func TestNewServiceRequiresClient(t *testing.T) {
	if _, err := NewService(ServiceDeps{}); err == nil {
		t.Fatalf("expected error without LLM client")
	}
}

func TestRequestValidate(t *testing.T) {
	err := Request{Subject: "Physics", GradeLevel: "9"}.Validate()
	ae := apierr.From(err)
	if ae == nil || ae.Status != http.StatusBadRequest || ae.Error() != "no topics provided" {
		t.Fatalf("want 400 no topics, got=%v", err)
	}
	r := Request{Topic: " Motion ", Subject: "Physics", GradeLevel: "9"}
	if err := r.Validate(); err != nil {
		t.Fatalf("single topic should validate: %v", err)
	}
	if got := r.TopicList(); len(got) != 1 || got[0] != "Motion" {
		t.Fatalf("TopicList: got=%v", got)
	}
}

func TestGenerateAdvanced(t *testing.T) {
	s := newTestService(t, lessonClient(), nil)
	res, err := s.GenerateAdvanced(context.Background(), Request{
		Topics:     []string{"Velocity"},
		Subject:    "Physics",
		GradeLevel: "9",
		Levels:     []string{"support", "core", "bogus"},
	})
	require.NoError(t, err)

	require.Len(t, res.Slides, 4)
	require.NoError(t, lesson.CheckOrders(res.Slides))
	assert.Equal(t, "Velocity tells us how fast and in which direction.", res.Slides[0].Content)
	assert.Equal(t, "Broken slide", res.Slides[1].Title)
	assert.Equal(t, "Content generation in progress. Please regenerate this slide.", res.Slides[1].Content)
	assert.Nil(t, res.Slides[1].ImageQuery)
	assert.Nil(t, res.Slides[3].ImageQuery)
	assert.Equal(t, "Velocity", res.Meta.Topic)
	assert.Equal(t, []string{}, res.Meta.Standards)
	assert.Equal(t, "default", res.Meta.Theme)
	assert.Equal(t, 0, res.VisualsGenerated)
	assert.Contains(t, res.Warnings, `unknown differentiation level "bogus" ignored`)

	require.Len(t, res.Variants, 1)
	support := res.Variants[lesson.DiffSupport]
	assert.Equal(t, "Velocity (SUPPORT Level)", support.Meta.Topic)
	assert.Len(t, support.Slides, 2)
}

type fakeRenderer struct {
	name string
	data map[string]any
}

func (f fakeRenderer) Name() string { return f.name }

func (f fakeRenderer) Render(context.Context, visuals.RenderInput) visuals.RenderResult {
	return visuals.RenderResult{Success: true, Type: "math", Data: f.data}
}

func TestGenerateStructured(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		switch p.Purpose {
		case "deck_structured":
			return `{"title": "Kinematics: Complete Teaching Deck", "slides": [
				{"title": "Kinematics: Definition", "content": ["Motion without forces", "Uses position and time"], "order": 1},
				{"title": "Understanding Kinematics", "content": "Equation: v = u + at and s = ut + 1/2 at^2. Calculate the final speed.", "order": 2}
			]}`, nil
		case "visual_classify":
			return `{"visualType": "none", "confidence": 10}`, nil
		}
		return "", errors.New("unexpected purpose " + p.Purpose)
	}}
	gen := visuals.NewGenerator(visuals.GeneratorDeps{Renderers: map[string]visuals.Renderer{
		visuals.RendererLaTeX: fakeRenderer{name: visuals.RendererLaTeX, data: map[string]any{"katex": "$$v = u + at$$"}},
	}})
	s := newTestService(t, client, func(d *ServiceDeps) { d.Visuals = gen })

	res, err := s.GenerateStructured(context.Background(), Request{
		Topics:     []string{"Kinematics"},
		Chapter:    "Motion",
		Subject:    "Physics",
		GradeLevel: "9",
	})
	require.NoError(t, err)
	require.Len(t, res.Slides, 2)
	assert.Equal(t, "Kinematics: Complete Teaching Deck", res.Title)
	assert.Equal(t, "Motion without forces\nUses position and time", res.Slides[0].Content)
	assert.Equal(t, 0, res.Slides[0].Order)
	assert.Equal(t, []string{"generated 2 slides but 6 were expected"}, res.Warnings)

	vm := res.Slides[1].VisualMetadata
	require.NotNil(t, vm)
	assert.Equal(t, "math", vm.VisualType)
	assert.Equal(t, visuals.RendererLaTeX, vm.GeneratedBy)
	assert.Equal(t, 1, res.VisualsGenerated)

	calls := client.Calls()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls[0].User, "Total slides required: 6")
	assert.Equal(t, 4000, calls[0].MaxTokens)
}

func TestGenerateStructuredFailure(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(context.Context, llm.Prompt) (string, error) {
		return "", errors.New("upstream 503")
	}}
	s := newTestService(t, client, nil)
	_, err := s.GenerateStructured(context.Background(), Request{Topics: []string{"Atoms"}, Subject: "Chemistry", GradeLevel: "8"})
	ae := apierr.From(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)
	assert.Equal(t, apierr.CodeGenerationFailed, ae.Code)
	assert.Contains(t, ae.Error(), "upstream 503")
}

func TestModify(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		switch p.Purpose {
		case "deck_modify":
			if !strings.Contains(p.User, "Add a quiz") || !strings.Contains(p.User, `"title": "Cells"`) {
				return "", errors.New("prompt missing feedback or deck")
			}
			return `{"slides": [{"title": "Cells", "content": "Cells are units of life."}, {"title": "Quiz", "content": "Name two organelles."}]}`, nil
		case "visual_classify":
			return `{"visualType": "none"}`, nil
		}
		return "", errors.New("unexpected purpose " + p.Purpose)
	}}
	s := newTestService(t, client, nil)

	_, err := s.Modify(context.Background(), ModifyRequest{CurrentDeck: map[string]any{"title": "Cells"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status)

	res, err := s.Modify(context.Background(), ModifyRequest{
		CurrentDeck: map[string]any{"title": "Cells", "slides": []any{map[string]any{"title": "Cells", "content": "old"}}},
		Feedback:    "Add a quiz",
		Subject:     "Biology",
		GradeLevel:  "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "Cells", res.Title)
	require.Len(t, res.Slides, 2)
	assert.Equal(t, 1, res.Slides[1].Order)
}

type bufferRenderer struct{}

func (bufferRenderer) ContentType() string { return "text/plain" }

func (bufferRenderer) Render(_ context.Context, d lesson.Deck, w io.Writer) error {
	_, err := io.WriteString(w, d.Title)
	return err
}

func TestExport(t *testing.T) {
	s := newTestService(t, lessonClient(), nil)
	_, err := s.Export(context.Background(), lesson.Deck{Title: "Optics"}, io.Discard)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotImplemented, apierr.From(err).Status)

	s = newTestService(t, lessonClient(), func(d *ServiceDeps) { d.Renderer = bufferRenderer{} })
	var buf bytes.Buffer
	ct, err := s.Export(context.Background(), lesson.Deck{Title: "Optics"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ct)
	assert.Equal(t, "Optics", buf.String())
}

func TestStreamEventOrder(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	fwdCtx, stop := context.WithCancel(context.Background())
	defer stop()
	var (
		mu        sync.Mutex
		published int
	)
	require.NoError(t, b.StartForwarder(fwdCtx, func(realtime.Event) {
		mu.Lock()
		published++
		mu.Unlock()
	}))

	s := newTestService(t, lessonClient(), func(d *ServiceDeps) { d.Bus = b })
	var events []realtime.Event
	err := s.Stream(context.Background(), Request{Topic: "Velocity", Subject: "Physics", GradeLevel: "9"}, func(ev realtime.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(events), 4)
	assert.Equal(t, realtime.EventStatus, events[0].Type)
	assert.Equal(t, realtime.EventOutline, events[1].Type)
	assert.Equal(t, realtime.EventDone, events[len(events)-1].Type)

	lessonID := events[0].LessonID
	require.NotEmpty(t, lessonID)
	var order []string
	for _, ev := range events {
		assert.Equal(t, lessonID, ev.LessonID)
		if ev.Type == realtime.EventSlideStart || ev.Type == realtime.EventSlideEnd {
			order = append(order, string(ev.Type)+":"+string(rune('0'+*ev.Index)))
		}
	}
	assert.Equal(t, []string{
		"slide_start:0", "slide_end:0",
		"slide_start:1", "slide_end:1",
		"slide_start:2", "slide_end:2",
		"slide_start:3", "slide_end:3",
	}, order)

	res, ok := events[len(events)-1].Data.(*Result)
	require.True(t, ok)
	assert.Equal(t, lessonID, res.Meta.LessonID.String())
	assert.Len(t, res.Slides, 4)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(events), published)
}

func TestStreamStopsWhenClientGoesAway(t *testing.T) {
	s := newTestService(t, lessonClient(), nil)
	gone := errors.New("client disconnected")
	n := 0
	err := s.Stream(context.Background(), Request{Topic: "Velocity", Subject: "Physics", GradeLevel: "9"}, func(ev realtime.Event) error {
		n++
		if n == 3 {
			return gone
		}
		return nil
	})
	require.ErrorIs(t, err, gone)
	assert.Equal(t, 3, n)
}
