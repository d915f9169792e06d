package gcp

import (
	"context"
	"errors"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func TestOCRFromResponse(t *testing.T) {
	resp := &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: "Solve  for x:\n2x + 3 = 11\u00a0",
			Pages: []*visionpb.Page{{Blocks: []*visionpb.Block{
				{Confidence: 0.9}, {Confidence: 0.7}, {Confidence: 0},
			}}},
		},
	}}}
	got, err := ocrFromResponse(resp, "image/png")
	if err != nil {
		t.Fatalf("ocrFromResponse: %v", err)
	}
	if got.PrimaryText != "Solve for x: 2x + 3 = 11" {
		t.Fatalf("text: got=%q", got.PrimaryText)
	}
	if got.Confidence < 0.79 || got.Confidence > 0.81 {
		t.Fatalf("confidence: want=0.8 got=%v", got.Confidence)
	}

	empty, err := ocrFromResponse(&visionpb.BatchAnnotateImagesResponse{}, "image/png")
	if err != nil || empty.PrimaryText != "" {
		t.Fatalf("empty response: got=%+v err=%v", empty, err)
	}

	_, err = ocrFromResponse(&visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{{
		Error: &status.Status{Message: "bad image data"},
	}}}, "image/png")
	if err == nil {
		t.Fatalf("annotate error: want error")
	}
}

func TestTranscriptFromResponse(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " why is the sky blue ", Confidence: 0.8}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "during the day", Confidence: 0.6}}},
	}}
	got := transcriptFromResponse(resp)
	if got.PrimaryText != "why is the sky blue during the day" {
		t.Fatalf("text: got=%q", got.PrimaryText)
	}
	if got.Confidence < 0.69 || got.Confidence > 0.71 {
		t.Fatalf("confidence: want=0.7 got=%v", got.Confidence)
	}
	if transcriptFromResponse(nil).PrimaryText != "" {
		t.Fatalf("nil response: want empty text")
	}
}

func TestInferEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/wav":                speechpb.RecognitionConfig_LINEAR16,
		"audio/x-flac":             speechpb.RecognitionConfig_FLAC,
		"audio/mpeg":               speechpb.RecognitionConfig_MP3,
		"audio/webm;codecs=opus":   speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/ogg":                speechpb.RecognitionConfig_OGG_OPUS,
		"application/octet-stream": speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for mime, want := range cases {
		if got := inferEncoding(mime); got != want {
			t.Fatalf("%s: want=%v got=%v", mime, want, got)
		}
	}
	if rc := recognitionConfig("audio/wav", SpeechConfig{}); rc.LanguageCode != "en-US" {
		t.Fatalf("language default: got=%q", rc.LanguageCode)
	}
}

func TestRetryTransient(t *testing.T) {
	calls := 0
	got, err := retryTransient(context.Background(), 3, time.Millisecond, func() (string, error) {
		calls++
		if calls < 3 {
			return "", grpcstatus.Error(codes.Unavailable, "try again")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" || calls != 3 {
		t.Fatalf("transient: got=%q err=%v calls=%d", got, err, calls)
	}

	calls = 0
	perm := grpcstatus.Error(codes.InvalidArgument, "bad audio")
	_, err = retryTransient(context.Background(), 3, time.Millisecond, func() (string, error) {
		calls++
		return "", perm
	})
	if !errors.Is(err, perm) || calls != 1 {
		t.Fatalf("permanent: err=%v calls=%d", err, calls)
	}
}

func TestClientOptionsFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if Enabled() || len(ClientOptionsFromEnv()) != 0 {
		t.Fatalf("no credentials: want disabled")
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/gcp/key.json")
	if !Enabled() || len(ClientOptionsFromEnv()) != 1 {
		t.Fatalf("credentials file: want enabled with one option")
	}
}
