package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpulse/internal/apperr"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want QuestionKind
		ok   bool
	}{
		{"short_text", KindShortText, true},
		{"text", KindShortText, true},
		{"radio", KindSingleChoice, true},
		{"multiple", KindMultiChoice, true},
		{"scale", KindLinearScale, true},
		{"time", KindTime, true},
		{"slider", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKind(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewQuestionDefaults(t *testing.T) {
	q := NewQuestion("a", KindDropdown)
	assert.Equal(t, []string{PlaceholderOption}, q.Options)

	q = NewQuestion("b", KindLinearScale)
	assert.Equal(t, DefaultScaleMin, q.ScaleMin)
	assert.Equal(t, DefaultScaleMax, q.ScaleMax)
	assert.Nil(t, q.Options)

	q = NewQuestion("c", KindDate)
	assert.Nil(t, q.Options)
	assert.Zero(t, q.ScaleMax)
}

func TestQuestionUnmarshal_LegacyFields(t *testing.T) {
	var q Question
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"old","type":"scale","question":"Rate us","min":0,"max":5,"required":true}`), &q))
	assert.Equal(t, "old", q.ID)
	assert.Equal(t, KindLinearScale, q.Kind)
	assert.Equal(t, "Rate us", q.Prompt)
	assert.Equal(t, 0, q.ScaleMin)
	assert.Equal(t, 5, q.ScaleMax)
	assert.True(t, q.Required)

	q = Question{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"new","kind":"paragraph","prompt":"Tell us","text":"ignored"}`), &q))
	assert.Equal(t, "new", q.ID)
	assert.Equal(t, KindParagraph, q.Kind)
	assert.Equal(t, "Tell us", q.Prompt)
}

func TestQuestionNormalize(t *testing.T) {
	q := Question{Kind: KindShortText, Options: []string{"x"}, ScaleMin: 1, ScaleMax: 3}
	q.Normalize()
	assert.Nil(t, q.Options)
	assert.Zero(t, q.ScaleMin)
	assert.Zero(t, q.ScaleMax)

	q = Question{Kind: KindLinearScale}
	q.Normalize()
	assert.Equal(t, DefaultScaleMin, q.ScaleMin)
	assert.Equal(t, DefaultScaleMax, q.ScaleMax)
}

func TestQuestionCloneIsDeep(t *testing.T) {
	q := Question{Kind: KindSingleChoice, Options: []string{"a", "b"}}
	c := q.Clone()
	c.Options[0] = "z"
	assert.Equal(t, "a", q.Options[0])
}

func TestQuestionLabel(t *testing.T) {
	assert.Equal(t, DefaultPromptLabel, Question{Prompt: "  "}.Label())
	assert.Equal(t, "Age", Question{Prompt: "Age"}.Label())
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name  string
		q     Question
		field string
	}{
		{"ok", Question{Kind: KindSingleChoice, Prompt: "Pick", Options: []string{"a"}}, ""},
		{"unknown kind", Question{Kind: "slider", Prompt: "x"}, "kind"},
		{"blank prompt", Question{Kind: KindShortText, Prompt: " "}, "prompt"},
		{"no options", Question{Kind: KindDropdown, Prompt: "Pick"}, "options"},
		{"blank option", Question{Kind: KindMultiChoice, Prompt: "Pick", Options: []string{"a", ""}}, "options"},
		{"inverted scale", Question{Kind: KindLinearScale, Prompt: "Rate", ScaleMin: 5, ScaleMax: 5}, "scale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestIsAnswerableEmpty(t *testing.T) {
	var nilRating *int
	three := 3
	tests := []struct {
		name  string
		kind  QuestionKind
		value any
		want  bool
	}{
		{"nil", KindShortText, nil, true},
		{"blank string", KindShortText, "  \t", true},
		{"text", KindShortText, "hi", false},
		{"empty selection", KindMultiChoice, []any{}, true},
		{"selection", KindMultiChoice, []string{"a"}, false},
		{"nil rating", KindRating, nilRating, true},
		{"rating", KindRating, &three, false},
		{"zero scale", KindLinearScale, 0.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAnswerableEmpty(tt.kind, tt.value))
		})
	}
}

func TestSavePayloadExpiresAt(t *testing.T) {
	p := SavePayload{}
	at, err := p.ExpiresAt()
	require.NoError(t, err)
	assert.Nil(t, at)

	s := "2030-01-01T00:00:00Z"
	p.ExpirationDate = &s
	at, err = p.ExpiresAt()
	require.NoError(t, err)
	assert.Equal(t, 2030, at.Year())

	bad := "tomorrow"
	p.ExpirationDate = &bad
	_, err = p.ExpiresAt()
	assert.Error(t, err)
}
