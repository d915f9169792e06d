package lessonplan

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

func TestAllocate(t *testing.T) {
	tests := []struct {
		topics, minutes int
		want            Allocation
	}{
		{1, 45, Allocation{Sessions: 1, Intro: 5, Main: 29, Assessment: 4, Closure: 5, TotalMinutes: 45}},
		{3, 60, Allocation{Sessions: 2, Intro: 7, Main: 39, Assessment: 6, Closure: 7, TotalMinutes: 120}},
		{4, 30, Allocation{Sessions: 3, Intro: 5, Main: 19, Assessment: 3, Closure: 5, TotalMinutes: 90}},
		{0, 0, Allocation{Sessions: 1, Intro: 5, Main: 29, Assessment: 4, Closure: 5, TotalMinutes: 45}},
	}
	for _, tt := range tests {
		if got := Allocate(tt.topics, tt.minutes); got != tt.want {
			t.Fatalf("Allocate(%d, %d): want=%+v got=%+v", tt.topics, tt.minutes, tt.want, got)
		}
	}
}

const planJSON = `{
	"title": "Forces in Action",
	"objectives": ["SWBAT define force"],
	"concepts": [{"name": "Force", "description": "A push or pull"}],
	"sessions": [
		{"sessionNumber": 1, "duration": 45, "introduction": {"hook": "Tug of war"},
		 "activities": [{"activity": "I Do", "duration": 15}, {"activity": "We Do", "duration": 15}, {"activity": "You Do", "duration": 12}],
		 "checkForUnderstanding": [{"prompt": "What is a force?"}]},
		{"sessionNumber": 2, "title": "Friction", "duration": 45,
		 "activities": [{"activity": "Demo", "duration": 20}]}
	],
	"assessments": {"formative": ["Exit ticket"]},
	"differentiation": {"support": ["Graphic organizer"]}
}`

func TestGenerateDecodesAndSoftChecksTiming(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		return planJSON, nil
	}}
	p := New(nil, client)

	plan, err := p.Generate(context.Background(), Request{Topics: []string{"Force", " ", "Friction"}, Subject: "Physics", GradeLevel: "7"})
	require.NoError(t, err)

	assert.Equal(t, "Forces in Action", plan.Title)
	assert.Equal(t, 2, plan.TotalSessions)
	assert.Equal(t, 90, plan.TotalDuration)
	assert.Equal(t, "concept-1", plan.Concepts[0].ID)
	assert.Equal(t, "Session 1", plan.Sessions[0].Title)
	assert.Equal(t, 3, plan.Sessions[0].Activities[2].Order)
	assert.Equal(t, "questioning", plan.Sessions[0].CheckForUnderstanding[0].Type)
	assert.Equal(t, "End-of-lesson assessment", plan.Assessments.Summative)
	assert.Equal(t, []string{}, plan.Prerequisites)
	assert.Equal(t, []string{}, plan.Differentiation.Extension)

	// Session 1 is 3 minutes short and passes; session 2 is 25 short and is flagged.
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, "session 2 duration mismatch: activities=20, expected=45", plan.Warnings[0])

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 4000, calls[0].MaxTokens)
	assert.InDelta(t, 0.6, calls[0].Temperature, 1e-9)
	assert.Contains(t, calls[0].User, "Sessions: 2 (total 90 minutes)")
	assert.Contains(t, calls[0].User, "Topics: Force, Friction")
}

func TestGenerateErrors(t *testing.T) {
	p := New(nil, &llm.FuncClient{CompleteFn: func(context.Context, llm.Prompt) (string, error) {
		return "", errors.New("timeout")
	}})

	_, err := p.Generate(context.Background(), Request{Subject: "Physics"})
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status)

	_, err = p.Generate(context.Background(), Request{Topics: []string{"Waves"}})
	ae := apierr.From(err)
	require.NotNil(t, ae)
	assert.Equal(t, apierr.CodeGenerationFailed, ae.Code)
	assert.True(t, strings.Contains(ae.Error(), "timeout"))
}

func TestModifyUsesUpdatedDefaults(t *testing.T) {
	client := &llm.FuncClient{CompleteFn: func(_ context.Context, p llm.Prompt) (string, error) {
		if !strings.Contains(p.User, "More group work") {
			return "", errors.New("feedback missing from prompt")
		}
		return `{"sessions": [{"activities": [{"duration": 40}]}]}`, nil
	}}
	p := New(nil, client)

	plan, err := p.Modify(context.Background(), ModifyRequest{CurrentPlan: map[string]any{"title": "Waves"}, Feedback: "More group work"})
	require.NoError(t, err)
	assert.Equal(t, "Updated Lesson Plan", plan.Title)
	assert.Equal(t, 45, plan.Sessions[0].Duration)
	assert.Empty(t, plan.Warnings)

	_, err = p.Modify(context.Background(), ModifyRequest{Feedback: "x"})
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status)
}
