package deck

import (
	"context"
	"fmt"

	"github.com/yungbote/lessonforge-backend/internal/domain/lesson"
	"github.com/yungbote/lessonforge-backend/internal/modules/visuals"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

// AssembleInput holds the parallel per-slide results of the earlier stages. Routes and Renders
// are indexed like Slides; missing entries mean "no visual".
type AssembleInput struct {
	Title   string
	Meta    lesson.Metadata
	Slides  []lesson.Slide
	Routes  []visuals.RoutingDecision
	Renders []visuals.RenderResult
	// Expected is the slide count the request asked for. Zero disables the check.
	Expected int
}

type Assembled struct {
	Deck             lesson.Deck `json:"deck"`
	Warnings         []string    `json:"warnings"`
	VisualsGenerated int         `json:"visualsGenerated"`
}

type Assembler struct {
	log *logger.Logger
}

func NewAssembler(log *logger.Logger) *Assembler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assembler{log: log.With("service", "DeckAssembler")}
}

// Assemble merges slides with their visuals. Count and progression mismatches are returned
// as warnings; the deck is always built.
func (a *Assembler) Assemble(_ context.Context, in AssembleInput) Assembled {
	slides := make([]lesson.Slide, len(in.Slides))
	generated := 0
	for i, s := range in.Slides {
		s = s.Clone()
		s.VisualMetadata = nil
		if i < len(in.Routes) && i < len(in.Renders) {
			if vm := visualMetadata(in.Routes[i], in.Renders[i]); vm != nil {
				s.VisualMetadata = vm
				generated++
			}
		}
		slides[i] = s
	}
	lesson.NormalizeOrders(slides)

	var warnings []string
	if in.Expected > 0 && len(slides) != in.Expected {
		warnings = append(warnings, fmt.Sprintf("generated %d slides but %d were expected", len(slides), in.Expected))
	}
	progression := lesson.BloomProgression(slides)
	if hasLevels(progression) {
		warnings = append(warnings, lesson.ProgressionWarnings(progression)...)
	} else {
		progression = []lesson.CognitiveLevel{}
	}
	for _, w := range warnings {
		a.log.Warn("deck validation", "topic", in.Meta.Topic, "warning", w)
	}

	d := lesson.Deck{
		Title:  in.Title,
		Slides: slides,
		Meta:   in.Meta,
		Structure: lesson.LearningStructure{
			LearningObjectives: lesson.ObjectivesFromSlides(slides),
			Vocabulary:         []lesson.VocabularyTerm{},
			Prerequisites:      []string{},
			BloomProgression:   progression,
		},
	}
	if d.Title == "" {
		d.Title = in.Meta.Topic
	}
	if d.Meta.Standards == nil {
		d.Meta.Standards = []string{}
	}

	a.log.Info("deck assembled", "topic", in.Meta.Topic, "slides", len(slides), "visuals", generated)
	return Assembled{Deck: d, Warnings: warnings, VisualsGenerated: generated}
}

// visualMetadata is nil unless the slide was routed and rendered successfully.
func visualMetadata(route visuals.RoutingDecision, res visuals.RenderResult) *lesson.VisualMetadata {
	if route.Skip() || !res.Success {
		return nil
	}
	cfg := make(map[string]any, len(route.VisualConfig)+1)
	for k, v := range route.VisualConfig {
		cfg[k] = v
	}
	cfg["generatedData"] = res.Data
	vm := &lesson.VisualMetadata{
		VisualType:   string(*route.VisualType),
		VisualConfig: cfg,
		Confidence:   route.Confidence,
		Reasoning:    route.Reasoning,
	}
	if route.GeneratedBy != nil {
		vm.GeneratedBy = *route.GeneratedBy
	}
	return vm
}

// hasLevels is false for decks whose slides carry no cognitive level, such as structured decks.
func hasLevels(levels []lesson.CognitiveLevel) bool {
	for _, l := range levels {
		if l != "" {
			return true
		}
	}
	return false
}
