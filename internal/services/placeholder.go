package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

const (
	PlaceholderWidth  = 1920
	PlaceholderHeight = 1080

	placeholderWrapAt = 50
)

// PlaceholderImageService renders a subject-themed PNG when no photo can be found.
type PlaceholderImageService interface {
	Generate(query, subject string, width, height int) ([]byte, error)
}

type placeholderService struct {
	log        *logger.Logger
	headerFace font.Face
	bodyFace   font.Face
}

type subjectPalette struct {
	Background string
	Accent     string
}

// Order matters: the first key contained in the subject wins.
var subjectPalettes = []struct {
	key     string
	palette subjectPalette
}{
	{"science", subjectPalette{"#1a5f7a", "#57c5b6"}},
	{"mathematics", subjectPalette{"#2c3e50", "#3498db"}},
	{"math", subjectPalette{"#2c3e50", "#3498db"}},
	{"english", subjectPalette{"#8e44ad", "#9b59b6"}},
	{"history", subjectPalette{"#c0392b", "#e74c3c"}},
	{"geography", subjectPalette{"#27ae60", "#2ecc71"}},
	{"physics", subjectPalette{"#2980b9", "#3498db"}},
	{"chemistry", subjectPalette{"#16a085", "#1abc9c"}},
	{"biology", subjectPalette{"#27ae60", "#2ecc71"}},
}

var defaultPalette = subjectPalette{"#34495e", "#7f8c8d"}

func paletteFor(subject string) subjectPalette {
	s := strings.ToLower(subject)
	for _, p := range subjectPalettes {
		if s != "" && strings.Contains(s, p.key) {
			return p.palette
		}
	}
	return defaultPalette
}

// NewPlaceholderImageService uses the bundled Go font unless PLACEHOLDER_FONT points at a TTF file.
func NewPlaceholderImageService(log *logger.Logger) (PlaceholderImageService, error) {
	serviceLog := log.With("service", "PlaceholderImageService")

	fontBytes := goregular.TTF
	if path := strings.TrimSpace(os.Getenv("PLACEHOLDER_FONT")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read placeholder font: %w", err)
		}
		fontBytes = raw
		serviceLog.Info("Loading placeholder font", "font", path)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse placeholder font: %w", err)
	}
	return &placeholderService{
		log:        serviceLog,
		headerFace: newFace(parsed, 36),
		bodyFace:   newFace(parsed, 24),
	}, nil
}

func newFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

func (s *placeholderService) Generate(query, subject string, width, height int) ([]byte, error) {
	if width <= 0 {
		width = PlaceholderWidth
	}
	if height <= 0 {
		height = PlaceholderHeight
	}
	pal := paletteFor(subject)
	w, h := float64(width), float64(height)

	dc := gg.NewContext(width, height)
	dc.SetHexColor(pal.Background)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	// diagonal stripes
	dc.SetHexColor(pal.Accent)
	dc.SetLineWidth(2)
	for i := 0; i < width+height; i += 40 {
		dc.DrawLine(float64(i), 0, 0, float64(i))
	}
	dc.Stroke()

	const margin = 100
	top, bottom := h/3, h*2/3
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 220})
	dc.DrawRoundedRectangle(margin, top, w-2*margin, bottom-top, 20)
	dc.Fill()

	dc.SetFontFace(s.headerFace)
	dc.SetHexColor(pal.Background)
	header := "Image Placeholder"
	hw, hh := dc.MeasureString(header)
	headerY := top + 30 + hh
	dc.DrawString(header, (w-hw)/2, headerY)

	dc.SetFontFace(s.bodyFace)
	dc.SetHexColor("#555555")
	y := headerY + 60
	for _, line := range wrapText(query, placeholderWrapAt) {
		lw, _ := dc.MeasureString(line)
		dc.DrawString(line, (w-lw)/2, y)
		y += 35
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	s.log.Debug("placeholder generated", "query", query, "subject", subject)
	return buf.Bytes(), nil
}

// wrapText breaks on spaces so no line exceeds width runes, except single words longer than width.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w))
		if curLen > 0 && curLen+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
