package doubt

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/gcp"
	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) OCRImageBytes(_ context.Context, _ []byte, mimeType string) (*gcp.OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.OCRResult{Provider: "fake", MimeType: mimeType, PrimaryText: f.text}, nil
}

type fakeSTT struct {
	text string
	cfg  gcp.SpeechConfig
}

func (f *fakeSTT) TranscribeAudioBytes(_ context.Context, _ []byte, _ string, cfg gcp.SpeechConfig) (*gcp.SpeechResult, error) {
	f.cfg = cfg
	return &gcp.SpeechResult{Provider: "fake", PrimaryText: f.text}, nil
}

func solvedClient() *llm.FuncClient {
	return &llm.FuncClient{CompleteFn: func(context.Context, llm.Prompt) (string, error) {
		return `{"solution": "## What We Know\n- 2x + 3 = 11"}`, nil
	}}
}

func TestSolveImage(t *testing.T) {
	client := solvedClient()
	s := New(nil, client).WithMedia(fakeOCR{text: "Solve 2x + 3 = 11"}, nil)

	got, err := s.SolveImage(context.Background(), MediaRequest{Data: []byte{0x89, 'P'}, MimeType: "image/png", Subject: "Math", GradeLevel: "8"})
	require.NoError(t, err)
	assert.Equal(t, "Solve 2x + 3 = 11", got.Question)
	assert.Equal(t, "Math", got.Subject)
	assert.Contains(t, client.Calls()[0].User, `"Solve 2x + 3 = 11"`)
	assert.Contains(t, client.Calls()[0].User, "Grade Level: 8")
}

func TestSolveImageErrors(t *testing.T) {
	client := solvedClient()

	_, err := New(nil, client).SolveImage(context.Background(), MediaRequest{Data: []byte{1}})
	assert.Equal(t, http.StatusServiceUnavailable, apierr.From(err).Status)

	s := New(nil, client).WithMedia(fakeOCR{}, nil)
	_, err = s.SolveImage(context.Background(), MediaRequest{})
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status)

	_, err = s.SolveImage(context.Background(), MediaRequest{Data: []byte{1}})
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status, "blank text")

	s = New(nil, client).WithMedia(fakeOCR{err: errors.New("quota")}, nil)
	_, err = s.SolveImage(context.Background(), MediaRequest{Data: []byte{1}})
	assert.Equal(t, apierr.CodeUpstreamFailed, apierr.From(err).Code)

	assert.Empty(t, client.Calls())
}

func TestSolveVoice(t *testing.T) {
	stt := &fakeSTT{text: "why does ice float"}
	s := New(nil, solvedClient()).WithMedia(nil, stt)

	got, err := s.SolveVoice(context.Background(), MediaRequest{Data: []byte{1, 2}, MimeType: "audio/webm", LanguageCode: "en-IN"})
	require.NoError(t, err)
	assert.Equal(t, "why does ice float", got.Question)
	assert.Equal(t, "en-IN", stt.cfg.LanguageCode)
	assert.True(t, stt.cfg.EnableAutomaticPunctuation)

	_, err = s.SolveImage(context.Background(), MediaRequest{Data: []byte{1}})
	assert.Equal(t, http.StatusServiceUnavailable, apierr.From(err).Status, "voice-only solver rejects images")

	stt.text = "  "
	_, err = s.SolveVoice(context.Background(), MediaRequest{Data: []byte{1}})
	assert.Equal(t, http.StatusBadRequest, apierr.From(err).Status)
}
