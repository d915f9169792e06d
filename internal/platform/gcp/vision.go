package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const visionTimeout = 60 * time.Second

type Vision interface {
	OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*OCRResult, error)
	Close() error
}

type OCRResult struct {
	Provider    string  `json:"provider"`
	MimeType    string  `json:"mimeType,omitempty"`
	PrimaryText string  `json:"primaryText"`
	Confidence  float64 `json:"confidence"`
}

type visionService struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewVision(ctx context.Context, log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	c, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &visionService{log: log.With("service", "gcp.Vision"), client: c}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) OCRImageBytes(ctx context.Context, img []byte, mimeType string) (*OCRResult, error) {
	if len(img) == 0 {
		return &OCRResult{Provider: "gcp_vision", MimeType: mimeType}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	resp, err := s.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	res, err := ocrFromResponse(resp, mimeType)
	if err != nil {
		return nil, err
	}
	s.log.Debug("image text extracted", "chars", len(res.PrimaryText), "confidence", res.Confidence)
	return res, nil
}

func ocrFromResponse(resp *visionpb.BatchAnnotateImagesResponse, mimeType string) (*OCRResult, error) {
	out := &OCRResult{Provider: "gcp_vision", MimeType: mimeType}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return out, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return out, nil
	}
	out.PrimaryText = collapseWhitespace(fta.Text)

	var sum float64
	n := 0
	for _, pg := range fta.Pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b != nil && b.Confidence > 0 {
				sum += float64(b.Confidence)
				n++
			}
		}
	}
	if n > 0 {
		out.Confidence = sum / float64(n)
	}
	return out, nil
}
