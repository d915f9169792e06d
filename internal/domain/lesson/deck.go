package lesson

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Deck struct {
	Title     string            `json:"title"`
	Slides    []Slide           `json:"slides"`
	Meta      Metadata          `json:"meta"`
	Structure LearningStructure `json:"structure"`
}

type Metadata struct {
	LessonID         uuid.UUID        `json:"lessonId"`
	Topic            string           `json:"topic"`
	Subject          string           `json:"subject"`
	Grade            string           `json:"grade"`
	Standards        []string         `json:"standards"`
	Theme            string           `json:"theme"`
	PedagogicalModel PedagogicalModel `json:"pedagogicalModel"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type LearningObjective struct {
	Objective  string         `json:"objective"`
	BloomLevel CognitiveLevel `json:"bloomLevel"`
}

type VocabularyTerm struct {
	Term             string `json:"term"`
	Definition       string `json:"definition"`
	GradeAppropriate bool   `json:"gradeAppropriate"`
}

type LearningStructure struct {
	LearningObjectives []LearningObjective `json:"learningObjectives"`
	Vocabulary         []VocabularyTerm    `json:"vocabulary"`
	Prerequisites      []string            `json:"prerequisites"`
	BloomProgression   []CognitiveLevel    `json:"bloomProgression"`
}

// NewMetadata fills defaults: a fresh lesson id, theme "default", and the I do / we do / you do model.
func NewMetadata(topic, subject, grade string, now time.Time) Metadata {
	return Metadata{
		LessonID:         uuid.New(),
		Topic:            topic,
		Subject:          subject,
		Grade:            grade,
		Standards:        []string{},
		Theme:            "default",
		PedagogicalModel: defaultPedagogicalModel,
		CreatedAt:        now.UTC(),
	}
}

// Clone deep-copies the deck.
func (d Deck) Clone() Deck {
	out := d
	out.Slides = make([]Slide, len(d.Slides))
	for i, s := range d.Slides {
		out.Slides[i] = s.Clone()
	}
	// slices.Clone keeps empty lists non-nil so they still encode as [].
	out.Meta.Standards = slices.Clone(d.Meta.Standards)
	out.Structure.LearningObjectives = slices.Clone(d.Structure.LearningObjectives)
	out.Structure.Vocabulary = slices.Clone(d.Structure.Vocabulary)
	out.Structure.Prerequisites = slices.Clone(d.Structure.Prerequisites)
	out.Structure.BloomProgression = slices.Clone(d.Structure.BloomProgression)
	return out
}

// BloomProgression returns the cognitive level of every slide in order.
func BloomProgression(slides []Slide) []CognitiveLevel {
	out := make([]CognitiveLevel, 0, len(slides))
	for _, s := range slides {
		out = append(out, s.BloomLevel)
	}
	return out
}

// ObjectivesFromSlides collects the non-empty slide objectives.
func ObjectivesFromSlides(slides []Slide) []LearningObjective {
	out := make([]LearningObjective, 0, len(slides))
	for _, s := range slides {
		if s.Objective == "" {
			continue
		}
		out = append(out, LearningObjective{Objective: s.Objective, BloomLevel: s.BloomLevel})
	}
	return out
}

// NormalizeOrders renumbers slides 0..N-1 in their current sequence.
func NormalizeOrders(slides []Slide) {
	for i := range slides {
		slides[i].Order = i
	}
}

// CheckOrders reports whether orders are unique and contiguous from 0 or from 1.
func CheckOrders(slides []Slide) error {
	if len(slides) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(slides))
	minOrder := slides[0].Order
	for _, s := range slides {
		if seen[s.Order] {
			return fmt.Errorf("duplicate slide order %d", s.Order)
		}
		seen[s.Order] = true
		if s.Order < minOrder {
			minOrder = s.Order
		}
	}
	if minOrder != 0 && minOrder != 1 {
		return fmt.Errorf("slide orders start at %d", minOrder)
	}
	for i := 0; i < len(slides); i++ {
		if !seen[minOrder+i] {
			return fmt.Errorf("slide order %d missing", minOrder+i)
		}
	}
	return nil
}

// ProgressionWarnings validates a cognitive-level sequence. The sequence should start at
// REMEMBER/UNDERSTAND, end at EVALUATE/CREATE, and never drop by more than one step.
// The result is advisory; callers log it and keep the sequence.
func ProgressionWarnings(levels []CognitiveLevel) []string {
	var out []string
	if len(levels) == 0 {
		return out
	}
	prev := -1
	for i, l := range levels {
		rank := l.Rank()
		if rank < 0 {
			out = append(out, fmt.Sprintf("slide %d: invalid cognitive level %q", i, string(l)))
			continue
		}
		if prev >= 0 && rank < prev-1 {
			out = append(out, fmt.Sprintf("slide %d: regression from %s to %s", i, cognitiveOrder[prev], l))
		}
		prev = rank
	}
	if first := levels[0].Rank(); first > LevelUnderstand.Rank() {
		out = append(out, fmt.Sprintf("sequence starts at %s instead of REMEMBER/UNDERSTAND", levels[0]))
	}
	if last := levels[len(levels)-1].Rank(); last >= 0 && last < LevelEvaluate.Rank() {
		out = append(out, fmt.Sprintf("sequence ends at %s instead of EVALUATE/CREATE", levels[len(levels)-1]))
	}
	return out
}
