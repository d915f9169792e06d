package lesson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Slide is a single teachable unit of a deck.
type Slide struct {
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Order          int             `json:"order"`
	SlideType      SlideType       `json:"slideType,omitempty"`
	BloomLevel     CognitiveLevel  `json:"bloomLevel,omitempty"`
	Objective      string          `json:"objective,omitempty"`
	SpeakerNotes   string          `json:"speakerNotes,omitempty"`
	ImageQuery     *string         `json:"imageQuery"`
	VisualMetadata *VisualMetadata `json:"visualMetadata,omitempty"`
}

// VisualMetadata records which renderer visualized a slide and why.
type VisualMetadata struct {
	VisualType   string         `json:"visualType"`
	VisualConfig map[string]any `json:"visualConfig,omitempty"`
	Confidence   int            `json:"confidence"`
	GeneratedBy  string         `json:"generatedBy"`
	Reasoning    string         `json:"reasoning,omitempty"`
}

// OutlineEntry is a slide header produced before any content exists.
type OutlineEntry struct {
	Title      string         `json:"title"`
	SlideType  SlideType      `json:"slideType"`
	BloomLevel CognitiveLevel `json:"bloomLevel"`
	Objective  string         `json:"objective"`
}

// Clone returns a deep copy so derived decks never share mutable state with their source.
func (s Slide) Clone() Slide {
	out := s
	if s.ImageQuery != nil {
		q := *s.ImageQuery
		out.ImageQuery = &q
	}
	if s.VisualMetadata != nil {
		vm := *s.VisualMetadata
		if s.VisualMetadata.VisualConfig != nil {
			vm.VisualConfig = make(map[string]any, len(s.VisualMetadata.VisualConfig))
			for k, v := range s.VisualMetadata.VisualConfig {
				vm.VisualConfig[k] = v
			}
		}
		out.VisualMetadata = &vm
	}
	return out
}

// UnmarshalJSON accepts content as a string, a list, or an object and always stores a string.
// slideType and bloomLevel are parsed into their closed sets; missing or unknown values
// become CONCEPT and UNDERSTAND. bloom_level is accepted as an alias.
func (s *Slide) UnmarshalJSON(data []byte) error {
	type alias Slide
	aux := struct {
		*alias
		Content    any    `json:"content"`
		SlideType  string `json:"slideType"`
		BloomLevel string `json:"bloomLevel"`
		BloomSnake string `json:"bloom_level"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Content = FlattenContent(aux.Content)
	s.SlideType, _ = ParseSlideType(aux.SlideType)
	level := aux.BloomLevel
	if level == "" {
		level = aux.BloomSnake
	}
	s.BloomLevel, _ = ParseCognitiveLevel(level)
	return nil
}

// FlattenContent coerces an arbitrary decoded JSON value into slide text.
// Lists are joined with newlines and objects become their JSON encoding.
func FlattenContent(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, FlattenContent(item))
		}
		return strings.Join(parts, "\n")
	case []string:
		return strings.Join(t, "\n")
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
