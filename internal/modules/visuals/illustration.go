package visuals

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/platform/llm"
)

// IllustrationRenderer is the paid renderer. It only runs when routing allowed paid services.
type IllustrationRenderer struct {
	images llm.ImageGenerator
}

func NewIllustrationRenderer(images llm.ImageGenerator) *IllustrationRenderer {
	return &IllustrationRenderer{images: images}
}

func (r *IllustrationRenderer) Name() string { return RendererDallE3 }

func (r *IllustrationRenderer) Render(ctx context.Context, in RenderInput) RenderResult {
	if r.images == nil {
		return failed(RendererDallE3, fmt.Errorf("image generation is not configured"))
	}
	prompt := illustrationPrompt(in)
	img, err := r.images.GenerateImage(ctx, prompt)
	if err != nil {
		return failed(RendererDallE3, fmt.Errorf("illustration failed: %w", err))
	}
	return RenderResult{
		Success: true,
		Type:    "illustration",
		Data: map[string]any{
			"imageUrl":      img.URL,
			"prompt":        prompt,
			"revisedPrompt": img.RevisedPrompt,
		},
	}
}

func illustrationPrompt(in RenderInput) string {
	desc, _ := in.Config["description"].(string)
	if strings.TrimSpace(desc) == "" {
		desc = in.Title + ". " + truncate(in.Content, 300)
	}
	return fmt.Sprintf("Clear, classroom-friendly educational illustration for a %s lesson: %s. No text labels.",
		strings.TrimSpace(in.Subject), strings.TrimSpace(desc))
}
