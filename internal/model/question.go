package model

import (
	"encoding/json"
	"reflect"
	"strings"

	"formpulse/internal/apperr"
)

// QuestionKind defines the type of question
type QuestionKind string

const (
	KindShortText    QuestionKind = "short_text"
	KindParagraph    QuestionKind = "paragraph"
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindDropdown     QuestionKind = "dropdown"
	KindRating       QuestionKind = "rating"
	KindLinearScale  QuestionKind = "linear_scale"
	KindDate         QuestionKind = "date"
	KindTime         QuestionKind = "time"
)

const (
	DefaultScaleMin    = 1
	DefaultScaleMax    = 10
	PlaceholderOption  = "Option 1"
	DefaultPromptLabel = "Question"
)

// Kinds lists every supported kind in builder menu order.
var Kinds = []QuestionKind{
	KindShortText, KindParagraph, KindSingleChoice, KindMultiChoice,
	KindDropdown, KindRating, KindLinearScale, KindDate, KindTime,
}

// Older clients sent these names.
var legacyKinds = map[string]QuestionKind{
	"text":     KindShortText,
	"radio":    KindSingleChoice,
	"multiple": KindMultiChoice,
	"scale":    KindLinearScale,
}

// ParseKind accepts canonical and legacy kind names.
func ParseKind(s string) (QuestionKind, bool) {
	k := QuestionKind(s)
	if k.Valid() {
		return k, true
	}
	if k, ok := legacyKinds[s]; ok {
		return k, true
	}
	return "", false
}

func (k QuestionKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// OptionsRequired reports whether questions of kind carry an option list.
func OptionsRequired(kind QuestionKind) bool {
	switch kind {
	case KindSingleChoice, KindMultiChoice, KindDropdown:
		return true
	}
	return false
}

// IsAnswerableEmpty reports whether value counts as "no answer" for kind.
func IsAnswerableEmpty(kind QuestionKind, value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	switch kind {
	case KindMultiChoice:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return rv.Len() == 0
		}
		return false
	case KindRating, KindLinearScale:
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Pointer && rv.IsNil()
	default:
		return false
	}
}

// Question is one item in a survey
type Question struct {
	ID          string       `json:"id,omitempty" bson:"id"`
	Kind        QuestionKind `json:"kind" bson:"kind"`
	Prompt      string       `json:"prompt" bson:"prompt"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Options     []string     `json:"options,omitempty" bson:"options,omitempty"`   // choice kinds only
	ScaleMin    int          `json:"scaleMin,omitempty" bson:"scaleMin,omitempty"` // linear_scale only
	ScaleMax    int          `json:"scaleMax,omitempty" bson:"scaleMax,omitempty"` // linear_scale only
	Required    bool         `json:"required" bson:"required"`
}

// NewQuestion returns a question of kind with builder defaults applied.
func NewQuestion(id string, kind QuestionKind) Question {
	q := Question{ID: id, Kind: kind}
	if OptionsRequired(kind) {
		q.Options = []string{PlaceholderOption}
	}
	if kind == KindLinearScale {
		q.ScaleMin = DefaultScaleMin
		q.ScaleMax = DefaultScaleMax
	}
	return q
}

// UnmarshalJSON folds the legacy field names (_id, type, question, text,
// min, max) into the canonical shape. This is the only place that happens.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	var raw struct {
		alias
		LegacyID     string `json:"_id"`
		LegacyType   string `json:"type"`
		LegacyPrompt string `json:"question"`
		LegacyText   string `json:"text"`
		LegacyMin    *int   `json:"min"`
		LegacyMax    *int   `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*q = Question(raw.alias)
	if q.ID == "" {
		q.ID = raw.LegacyID
	}
	kind := string(q.Kind)
	if kind == "" {
		kind = raw.LegacyType
	}
	if k, ok := ParseKind(kind); ok {
		q.Kind = k
	} else {
		q.Kind = QuestionKind(kind)
	}
	if q.Prompt == "" {
		q.Prompt = raw.LegacyPrompt
	}
	if q.Prompt == "" {
		q.Prompt = raw.LegacyText
	}
	if q.ScaleMin == 0 && raw.LegacyMin != nil {
		q.ScaleMin = *raw.LegacyMin
	}
	if q.ScaleMax == 0 && raw.LegacyMax != nil {
		q.ScaleMax = *raw.LegacyMax
	}
	return nil
}

// Clone returns a deep copy.
func (q Question) Clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

// Label is the header text used for exports.
func (q Question) Label() string {
	if strings.TrimSpace(q.Prompt) == "" {
		return DefaultPromptLabel
	}
	return q.Prompt
}

// Normalize drops fields that are meaningless for the kind and fills scale
// defaults.
func (q *Question) Normalize() {
	if !OptionsRequired(q.Kind) {
		q.Options = nil
	}
	if q.Kind == KindLinearScale {
		if q.ScaleMin == 0 && q.ScaleMax == 0 {
			q.ScaleMin, q.ScaleMax = DefaultScaleMin, DefaultScaleMax
		}
	} else {
		q.ScaleMin, q.ScaleMax = 0, 0
	}
}

// Validate applies the publish-time structural rules.
func (q Question) Validate() error {
	if !q.Kind.Valid() {
		return apperr.Validation("kind", "unknown question kind "+string(q.Kind))
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return apperr.Validation("prompt", "question text is required")
	}
	if OptionsRequired(q.Kind) {
		if len(q.Options) == 0 {
			return apperr.Validation("options", "at least one option is required")
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return apperr.Validation("options", "options cannot be empty")
			}
		}
	}
	if q.Kind == KindLinearScale && q.ScaleMin >= q.ScaleMax {
		return apperr.Validation("scale", "scale minimum must be below maximum")
	}
	return nil
}
