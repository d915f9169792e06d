package deck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
)

// MarkdownRenderer writes a printable handout: one section per slide with
// speaker notes and visual hints as blockquotes.
type MarkdownRenderer struct{}

func (MarkdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }

func (MarkdownRenderer) Render(ctx context.Context, d lesson.Deck, w io.Writer) error {
	bw := bufio.NewWriter(w)
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = d.Meta.Topic
	}
	fmt.Fprintf(bw, "# %s\n\n", title)
	if d.Meta.Subject != "" || d.Meta.Grade != "" {
		fmt.Fprintf(bw, "_%s, grade %s_\n\n", d.Meta.Subject, d.Meta.Grade)
	}
	if len(d.Meta.Standards) > 0 {
		fmt.Fprintf(bw, "Standards: %s\n\n", strings.Join(d.Meta.Standards, ", "))
	}
	if objs := d.Structure.LearningObjectives; len(objs) > 0 {
		bw.WriteString("## Objectives\n\n")
		for _, o := range objs {
			fmt.Fprintf(bw, "- %s (%s)\n", o.Objective, o.BloomLevel)
		}
		bw.WriteString("\n")
	}

	for i, s := range d.Slides {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(bw, "## %d. %s\n\n", i+1, s.Title)
		if s.BloomLevel != "" {
			fmt.Fprintf(bw, "_%s · %s_\n\n", s.SlideType, s.BloomLevel)
		}
		if c := strings.TrimSpace(s.Content); c != "" {
			bw.WriteString(c)
			bw.WriteString("\n\n")
		}
		if vm := s.VisualMetadata; vm != nil && vm.VisualType != "" {
			fmt.Fprintf(bw, "> Visual: %s via %s\n\n", vm.VisualType, vm.GeneratedBy)
		}
		if n := strings.TrimSpace(s.SpeakerNotes); n != "" {
			for _, line := range strings.Split(n, "\n") {
				fmt.Fprintf(bw, "> %s\n", line)
			}
			bw.WriteString("\n")
		}
	}

	if vocab := d.Structure.Vocabulary; len(vocab) > 0 {
		bw.WriteString("## Vocabulary\n\n")
		for _, v := range vocab {
			fmt.Fprintf(bw, "- **%s**: %s\n", v.Term, v.Definition)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
