package lesson

import (
	"strconv"
	"strings"
)

// CognitiveLevel is a Bloom's taxonomy stage. Levels are ordered; see Rank.
type CognitiveLevel string

const (
	LevelRemember   CognitiveLevel = "REMEMBER"
	LevelUnderstand CognitiveLevel = "UNDERSTAND"
	LevelApply      CognitiveLevel = "APPLY"
	LevelAnalyze    CognitiveLevel = "ANALYZE"
	LevelEvaluate   CognitiveLevel = "EVALUATE"
	LevelCreate     CognitiveLevel = "CREATE"
)

var cognitiveOrder = []CognitiveLevel{
	LevelRemember,
	LevelUnderstand,
	LevelApply,
	LevelAnalyze,
	LevelEvaluate,
	LevelCreate,
}

// CognitiveLevels returns all levels in ascending order.
func CognitiveLevels() []CognitiveLevel {
	out := make([]CognitiveLevel, len(cognitiveOrder))
	copy(out, cognitiveOrder)
	return out
}

// Rank is the zero-based position of the level, or -1 for unknown values.
func (l CognitiveLevel) Rank() int {
	for i, v := range cognitiveOrder {
		if v == l {
			return i
		}
	}
	return -1
}

func (l CognitiveLevel) Valid() bool { return l.Rank() >= 0 }

// Lower returns the lower-case label used in prompts ("apply-level skills").
func (l CognitiveLevel) Lower() string { return strings.ToLower(string(l)) }

// ParseCognitiveLevel maps free-form input onto a level. Unknown input yields UNDERSTAND and ok=false.
func ParseCognitiveLevel(raw string) (CognitiveLevel, bool) {
	l := CognitiveLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if l.Valid() {
		return l, true
	}
	return LevelUnderstand, false
}

type SlideType string

const (
	SlideIntroduction SlideType = "INTRODUCTION"
	SlideConcept      SlideType = "CONCEPT"
	SlideActivity     SlideType = "ACTIVITY"
	SlideAssessment   SlideType = "ASSESSMENT"
	SlideSummary      SlideType = "SUMMARY"
)

func (t SlideType) Valid() bool {
	switch t {
	case SlideIntroduction, SlideConcept, SlideActivity, SlideAssessment, SlideSummary:
		return true
	default:
		return false
	}
}

// ParseSlideType maps free-form input onto a slide type. Unknown input yields CONCEPT and ok=false.
func ParseSlideType(raw string) (SlideType, bool) {
	t := SlideType(strings.ToUpper(strings.TrimSpace(raw)))
	if t.Valid() {
		return t, true
	}
	return SlideConcept, false
}

type DifferentiationLevel string

const (
	DiffSupport   DifferentiationLevel = "SUPPORT"
	DiffCore      DifferentiationLevel = "CORE"
	DiffExtension DifferentiationLevel = "EXTENSION"
)

// AllowedLevels is the set of cognitive levels a differentiation level keeps.
func (d DifferentiationLevel) AllowedLevels() map[CognitiveLevel]bool {
	switch d {
	case DiffSupport:
		return map[CognitiveLevel]bool{LevelRemember: true, LevelUnderstand: true}
	case DiffExtension:
		return map[CognitiveLevel]bool{LevelApply: true, LevelAnalyze: true, LevelEvaluate: true, LevelCreate: true}
	default:
		out := make(map[CognitiveLevel]bool, len(cognitiveOrder))
		for _, l := range cognitiveOrder {
			out[l] = true
		}
		return out
	}
}

func ParseDifferentiationLevel(raw string) (DifferentiationLevel, bool) {
	d := DifferentiationLevel(strings.ToUpper(strings.TrimSpace(raw)))
	switch d {
	case DiffSupport, DiffCore, DiffExtension:
		return d, true
	default:
		return DiffCore, false
	}
}

type PedagogicalModel string

const (
	ModelIDoWeDoYouDo       PedagogicalModel = "I_DO_WE_DO_YOU_DO"
	ModelDirectInstruction  PedagogicalModel = "DIRECT_INSTRUCTION"
	ModelInquiryBased       PedagogicalModel = "INQUIRY_BASED"
	ModelCollaborative      PedagogicalModel = "COLLABORATIVE"
	defaultPedagogicalModel                  = ModelIDoWeDoYouDo
)

func ParsePedagogicalModel(raw string) PedagogicalModel {
	m := PedagogicalModel(strings.ToUpper(strings.TrimSpace(raw)))
	switch m {
	case ModelIDoWeDoYouDo, ModelDirectInstruction, ModelInquiryBased, ModelCollaborative:
		return m
	default:
		return defaultPedagogicalModel
	}
}

type Curriculum string

const (
	CurriculumICSE Curriculum = "ICSE"
	CurriculumISC  Curriculum = "ISC"
)

// defaultGrade is used when a grade label is not numeric.
const defaultGrade = 8

// GradeNumber parses labels like "8", "Grade 10" or "class 7". Non-numeric labels yield 8.
func GradeNumber(raw string) int {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "grade")
	s = strings.TrimPrefix(s, "class")
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultGrade
	}
	return n
}

// CurriculumForGrade returns ISC for grades 11 and above, ICSE otherwise.
func CurriculumForGrade(raw string) Curriculum {
	if GradeNumber(raw) >= 11 {
		return CurriculumISC
	}
	return CurriculumICSE
}
