package differentiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

func coreDeck(levels ...lesson.CognitiveLevel) lesson.Deck {
	d := lesson.Deck{Meta: lesson.NewMetadata("Motion", "Physics", "9", time.Unix(0, 0))}
	for i, l := range levels {
		d.Slides = append(d.Slides, lesson.Slide{
			Title:      fmt.Sprintf("S%d", i),
			Content:    fmt.Sprintf("content %d", i),
			Order:      i,
			BloomLevel: l,
		})
	}
	d.Structure.BloomProgression = lesson.BloomProgression(d.Slides)
	return d
}

func tenSlideDeck() lesson.Deck {
	return coreDeck(
		lesson.LevelRemember, lesson.LevelUnderstand,
		lesson.LevelApply, lesson.LevelApply,
		lesson.LevelAnalyze, lesson.LevelAnalyze,
		lesson.LevelEvaluate, lesson.LevelEvaluate,
		lesson.LevelCreate, lesson.LevelCreate,
	)
}

func echoClient() *llm.FuncClient {
	return &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		return "rewritten(" + p.Purpose + ")", nil
	}}
}

func TestDeriveSupportFiltersLowerLevels(t *testing.T) {
	e := New(Deps{LLM: echoClient()})
	core := tenSlideDeck()

	got := e.Derive(context.Background(), core, lesson.DiffSupport)
	if len(got.Slides) != 2 {
		t.Fatalf("slides: want=2 got=%d", len(got.Slides))
	}
	want := []lesson.CognitiveLevel{lesson.LevelRemember, lesson.LevelUnderstand}
	if diff := cmp.Diff(want, got.Structure.BloomProgression); diff != "" {
		t.Fatalf("progression mismatch (-want +got):\n%s", diff)
	}
	for i, s := range got.Slides {
		if s.Order != i {
			t.Fatalf("order: want=%d got=%d", i, s.Order)
		}
		if s.Content != "rewritten(differentiate_support)" {
			t.Fatalf("content: got=%q", s.Content)
		}
		if s.SpeakerNotes != Rationale(lesson.DiffSupport) {
			t.Fatalf("notes: got=%q", s.SpeakerNotes)
		}
	}
	if got.Meta.Topic != "Motion (SUPPORT Level)" {
		t.Fatalf("topic: got=%q", got.Meta.Topic)
	}
	if core.Slides[0].Content != "content 0" || core.Meta.Topic != "Motion" {
		t.Fatalf("core deck was mutated")
	}
}

func TestDeriveSupportFallsBackToFirstFive(t *testing.T) {
	e := New(Deps{LLM: echoClient()})
	core := coreDeck(
		lesson.LevelApply, lesson.LevelAnalyze, lesson.LevelEvaluate, lesson.LevelCreate,
		lesson.LevelApply, lesson.LevelAnalyze, lesson.LevelEvaluate,
	)

	got := e.Derive(context.Background(), core, lesson.DiffSupport)
	if len(got.Slides) != 5 {
		t.Fatalf("slides: want=5 got=%d", len(got.Slides))
	}
	for i, s := range got.Slides {
		if s.Title != core.Slides[i].Title {
			t.Fatalf("slide %d: want=%q got=%q", i, core.Slides[i].Title, s.Title)
		}
	}
}

func TestDeriveCoreIsIdentity(t *testing.T) {
	client := echoClient()
	e := New(Deps{LLM: client})
	core := tenSlideDeck()

	got := e.Derive(context.Background(), core, lesson.DiffCore)
	if diff := cmp.Diff(core, got); diff != "" {
		t.Fatalf("CORE should pass through (-want +got):\n%s", diff)
	}
	if n := len(client.Calls()); n != 0 {
		t.Fatalf("CORE should not call the model, calls=%d", n)
	}
}

func TestDeriveKeepsOriginalOnRewriteFailure(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		if strings.Contains(p.User, "Title: S3") {
			return "", errors.New("boom")
		}
		return "harder", nil
	}}
	e := New(Deps{LLM: client, Concurrency: 2})
	core := tenSlideDeck()
	core.Slides[3].SpeakerNotes = "Use the trolley demo."

	got := e.Derive(context.Background(), core, lesson.DiffExtension)
	if len(got.Slides) != 8 {
		t.Fatalf("slides: want=8 got=%d", len(got.Slides))
	}
	failed := got.Slides[1]
	if failed.Title != "S3" || failed.Content != "content 3" || failed.Order != 1 {
		t.Fatalf("failed slide should keep original content with its new order: %+v", failed)
	}
	if failed.SpeakerNotes != "Use the trolley demo." {
		t.Fatalf("failed slide notes: got=%q", failed.SpeakerNotes)
	}
	if got.Slides[0].Content != "harder" {
		t.Fatalf("content: got=%q", got.Slides[0].Content)
	}

	calls := client.Calls()
	for _, c := range calls {
		if c.MaxTokens != 350 || !strings.Contains(c.User, "grade 11") {
			t.Fatalf("extension prompt: tokens=%d user=%q", c.MaxTokens, c.User)
		}
	}
}

func TestDeriveAppendsRationaleToExistingNotes(t *testing.T) {
	e := New(Deps{LLM: echoClient()})
	core := coreDeck(lesson.LevelRemember, lesson.LevelUnderstand)
	core.Slides[0].SpeakerNotes = "Start with a question."

	got := e.Derive(context.Background(), core, lesson.DiffSupport)
	want := "Start with a question.\n\n" + Rationale(lesson.DiffSupport)
	if got.Slides[0].SpeakerNotes != want {
		t.Fatalf("notes: want=%q got=%q", want, got.Slides[0].SpeakerNotes)
	}
}

func TestDeriveAllRunsEachLevel(t *testing.T) {
	e := New(Deps{LLM: echoClient()})
	got := e.DeriveAll(context.Background(), tenSlideDeck(), lesson.DiffSupport, lesson.DiffExtension)
	if len(got) != 2 {
		t.Fatalf("levels: want=2 got=%d", len(got))
	}
	if n := len(got[lesson.DiffSupport].Slides); n != 2 {
		t.Fatalf("support slides: want=2 got=%d", n)
	}
	if n := len(got[lesson.DiffExtension].Slides); n != 8 {
		t.Fatalf("extension slides: want=8 got=%d", n)
	}
}

func TestSupportTargetGradeFloor(t *testing.T) {
	p := rewritePrompt(lesson.Slide{Title: "Counting"}, lesson.DiffSupport, 2, "Math")
	if !strings.Contains(p.User, "grade 1 level") || p.MaxTokens != 250 {
		t.Fatalf("support prompt: tokens=%d user=%q", p.MaxTokens, p.User)
	}
}

func TestFilterSlidesExtensionKeepsApplyAndAbove(t *testing.T) {
	got, fellBack := FilterSlides(tenSlideDeck().Slides, lesson.DiffExtension)
	if fellBack {
		t.Fatalf("extension should not fall back on the ten-slide deck")
	}
	if len(got) != 8 {
		t.Fatalf("slides: want=8 got=%d", len(got))
	}
	for _, s := range got {
		if s.BloomLevel.Rank() < lesson.LevelApply.Rank() {
			t.Fatalf("extension kept %s slide %q", s.BloomLevel, s.Title)
		}
	}
}

func TestFilterSlidesOnDecodedDeck(t *testing.T) {
	raw := `{"title":"Motion","slides":[
		{"title":"A","content":"a","bloomLevel":"remember"},
		{"title":"B","content":"b","bloomLevel":"understand"},
		{"title":"C","content":"c"},
		{"title":"D","content":"d","bloomLevel":"APPLY"},
		{"title":"E","content":"e","bloomLevel":"ANALYZE"},
		{"title":"F","content":"f","bloomLevel":"CREATE"},
		{"title":"G","content":"g","bloomLevel":"CREATE"}]}`
	var d lesson.Deck
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, fellBack := FilterSlides(d.Slides, lesson.DiffSupport)
	if fellBack {
		t.Fatalf("support should not fall back when levels are parsed")
	}
	var titles []string
	for _, s := range got {
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, titles); diff != "" {
		t.Fatalf("support slides mismatch (-want +got):\n%s", diff)
	}
}
