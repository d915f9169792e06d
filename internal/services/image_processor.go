package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	defaultJPEGQuality = 85
	defaultMaxSizeKB   = 500
	minResizeWidth     = 400
)

// ImageProcessor prepares downloaded photos for slide placeholders.
type ImageProcessor interface {
	CenterCrop(raw []byte, width, height int) ([]byte, error)
	Compress(raw []byte, maxSizeKB int) ([]byte, error)
	Dimensions(raw []byte) (int, int, error)
}

type imageProcessor struct {
	log *logger.Logger
}

func NewImageProcessor(log *logger.Logger) ImageProcessor {
	return &imageProcessor{log: log.With("service", "ImageProcessor")}
}

// CenterCrop crops to the target aspect ratio, scales to width x height and encodes JPEG.
func (p *imageProcessor) CenterCrop(raw []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("target size must be positive")
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	target := float64(width) / float64(height)
	cropW, cropH := srcW, srcH
	if float64(srcW)/float64(srcH) > target {
		cropW = int(float64(srcH) * target)
	} else {
		cropH = int(float64(srcW) / target)
	}
	x0 := b.Min.X + (srcW-cropW)/2
	y0 := b.Min.Y + (srcH-cropH)/2

	cropRect := image.Rect(0, 0, cropW, cropH)
	cropped := image.NewRGBA(cropRect)
	draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	return encodeJPEG(dst, defaultJPEGQuality)
}

// Compress lowers JPEG quality in steps of 10 (down to 25), then shrinks dimensions by 20%
// per step until the output fits maxSizeKB or the width drops to 400px.
func (p *imageProcessor) Compress(raw []byte, maxSizeKB int) ([]byte, error) {
	if maxSizeKB <= 0 {
		maxSizeKB = defaultMaxSizeKB
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	limit := maxSizeKB * 1024

	for q := defaultJPEGQuality; q > 20; q -= 10 {
		out, err := encodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		if len(out) <= limit {
			return out, nil
		}
	}

	p.log.Warn("quality reduction insufficient, resizing", "max_size_kb", maxSizeKB)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var best []byte
	for w > minResizeWidth {
		w, h = int(float64(w)*0.8), int(float64(h)*0.8)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		out, err := encodeJPEG(dst, 75)
		if err != nil {
			return nil, err
		}
		best = out
		if len(out) <= limit {
			return out, nil
		}
	}
	if best == nil {
		return encodeJPEG(img, 25)
	}
	return best, nil
}

func (p *imageProcessor) Dimensions(raw []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
