package doubt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/gcp"
)

type TextExtractor interface {
	OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*gcp.OCRResult, error)
}

type Transcriber interface {
	TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string, cfg gcp.SpeechConfig) (*gcp.SpeechResult, error)
}

// MediaRequest carries an uploaded photo or recording of a question.
type MediaRequest struct {
	Data         []byte
	MimeType     string
	Subject      string
	GradeLevel   string
	LanguageCode string
}

// WithMedia enables image and voice questions. Either argument may be nil.
func (s *Solver) WithMedia(ocr TextExtractor, stt Transcriber) *Solver {
	s.ocr = ocr
	s.stt = stt
	return s
}

// SolveImage reads the question off a photo and solves it as text.
func (s *Solver) SolveImage(ctx context.Context, req MediaRequest) (*Response, error) {
	if s.ocr == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, apierr.CodeUnavailable, errors.New("image questions are not configured"))
	}
	if len(req.Data) == 0 {
		return nil, apierr.BadRequest(errors.New("image is required"))
	}
	res, err := s.ocr.OCRImageBytes(ctx, req.Data, req.MimeType)
	if err != nil {
		s.log.Error("image text extraction failed", "error", err, "mime", req.MimeType)
		return nil, apierr.New(http.StatusBadGateway, apierr.CodeUpstreamFailed, fmt.Errorf("extract image text: %w", err))
	}
	text := ""
	if res != nil {
		text = strings.TrimSpace(res.PrimaryText)
	}
	if text == "" {
		return nil, apierr.BadRequest(errors.New("no readable text found in image"))
	}
	s.log.Info("image question extracted", "chars", len(text))
	return s.SolveText(ctx, Request{Question: text, Subject: req.Subject, GradeLevel: req.GradeLevel})
}

// SolveVoice transcribes a spoken question and solves it as text.
func (s *Solver) SolveVoice(ctx context.Context, req MediaRequest) (*Response, error) {
	if s.stt == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, apierr.CodeUnavailable, errors.New("voice questions are not configured"))
	}
	if len(req.Data) == 0 {
		return nil, apierr.BadRequest(errors.New("audio is required"))
	}
	res, err := s.stt.TranscribeAudioBytes(ctx, req.Data, req.MimeType, gcp.SpeechConfig{
		LanguageCode:               req.LanguageCode,
		EnableAutomaticPunctuation: true,
	})
	if err != nil {
		s.log.Error("audio transcription failed", "error", err, "mime", req.MimeType)
		return nil, apierr.New(http.StatusBadGateway, apierr.CodeUpstreamFailed, fmt.Errorf("transcribe audio: %w", err))
	}
	text := ""
	if res != nil {
		text = strings.TrimSpace(res.PrimaryText)
	}
	if text == "" {
		return nil, apierr.BadRequest(errors.New("no speech recognized in audio"))
	}
	s.log.Info("voice question transcribed", "chars", len(text))
	return s.SolveText(ctx, Request{Question: text, Subject: req.Subject, GradeLevel: req.GradeLevel})
}
