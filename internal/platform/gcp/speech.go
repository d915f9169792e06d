package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

// Short student recordings only; long lectures are not transcribed here.
const speechTimeout = 3 * time.Minute

type Speech interface {
	TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string, cfg SpeechConfig) (*SpeechResult, error)
	Close() error
}

type SpeechConfig struct {
	LanguageCode string
	Model        string

	EnableAutomaticPunctuation bool

	SampleRateHertz int
	Encoding        speechpb.RecognitionConfig_AudioEncoding
}

type SpeechResult struct {
	Provider    string  `json:"provider"`
	PrimaryText string  `json:"primaryText"`
	Confidence  float64 `json:"confidence"`
}

type speechService struct {
	log        *logger.Logger
	client     *speech.Client
	maxRetries int
	backoff    time.Duration
}

func NewSpeech(ctx context.Context, log *logger.Logger) (Speech, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := speech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &speechService{
		log:        log.With("service", "gcp.Speech"),
		client:     c,
		maxRetries: 4,
		backoff:    750 * time.Millisecond,
	}, nil
}

func (s *speechService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *speechService) TranscribeAudioBytes(ctx context.Context, audio []byte, mimeType string, cfg SpeechConfig) (*SpeechResult, error) {
	if len(audio) == 0 {
		return &SpeechResult{Provider: "gcp_speech"}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, speechTimeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(mimeType, cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := retryTransient(ctx, s.maxRetries, s.backoff, func() (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := s.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("speech LongRunningRecognize: %w", err)
	}
	res := transcriptFromResponse(resp)
	s.log.Debug("audio transcribed", "chars", len(res.PrimaryText), "confidence", res.Confidence)
	return res, nil
}

func recognitionConfig(mimeType string, cfg SpeechConfig) *speechpb.RecognitionConfig {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	enc := cfg.Encoding
	if enc == speechpb.RecognitionConfig_ENCODING_UNSPECIFIED {
		enc = inferEncoding(mimeType)
	}
	rate := cfg.SampleRateHertz
	if rate < 0 {
		rate = 0
	}
	return &speechpb.RecognitionConfig{
		LanguageCode:               cfg.LanguageCode,
		Model:                      cfg.Model,
		EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
		Encoding:                   enc,
		SampleRateHertz:            int32(rate),
	}
}

// inferEncoding leaves unknown types unspecified so the API can sniff the header.
func inferEncoding(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"), strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func transcriptFromResponse(resp *speechpb.LongRunningRecognizeResponse) *SpeechResult {
	out := &SpeechResult{Provider: "gcp_speech"}
	if resp == nil {
		return out
	}
	parts := []string{}
	var confSum float64
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		t := strings.TrimSpace(alt.Transcript)
		if t == "" {
			continue
		}
		parts = append(parts, t)
		confSum += float64(alt.Confidence)
	}
	out.PrimaryText = strings.Join(parts, " ")
	if len(parts) > 0 {
		out.Confidence = confSum / float64(len(parts))
	}
	return out
}

// retryTransient retries Unavailable, ResourceExhausted and DeadlineExceeded with capped doubling backoff.
func retryTransient[T any](ctx context.Context, maxRetries int, backoff time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err
		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return zero, err
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return zero, last
}
