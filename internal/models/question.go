package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MCQ        QuestionType = "mcq"
	TrueFalse  QuestionType = "true_false"
	FillBlank  QuestionType = "fill_blank"
	Subjective QuestionType = "subjective"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MCQ, TrueFalse, FillBlank, Subjective:
		return true
	}
	return false
}

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	TestID uint         `json:"test_id" gorm:"not null;index"`
	Type   QuestionType `json:"type" gorm:"not null;index"`
	Text   string       `json:"text" gorm:"type:text;not null"`
	Order  int          `json:"order" gorm:"default:0"`

	// Correct answer, shape depends on Type (see key schemas below)
	AnswerKey datatypes.JSON `json:"answer_key,omitempty" gorm:"type:jsonb"`

	// Scoring. NegativePoints is the penalty for an answered, incorrect
	// response; zero disables negative marking for the question.
	Points         float64 `json:"points" gorm:"not null;default:0"`
	NegativePoints float64 `json:"negative_points" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ===== ANSWER KEY SCHEMAS =====

// ChoiceKey holds the full set of correct option ids for an mcq question.
// A submission is correct only when it matches the set exactly.
type ChoiceKey struct {
	Options []string `json:"options"`
}

type BoolKey struct {
	Value bool `json:"value"`
}

// TextKey holds the canonical fill-in answer plus optional alternatives.
type TextKey struct {
	Text         string   `json:"text"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// KeywordKey holds the keywords used to auto-grade a subjective question.
// An empty keyword set means the question is never auto-gradable as correct.
type KeywordKey struct {
	Keywords []string `json:"keywords"`
}

// AnswerKey is the decoded, tagged form of a question's answer key. Exactly
// one field is non-nil, matching the question's type.
type AnswerKey struct {
	Choice   *ChoiceKey
	Bool     *BoolKey
	Text     *TextKey
	Keywords *KeywordKey
}

// ParseAnswerKey decodes the raw JSONB key column into its tagged variant.
func ParseAnswerKey(t QuestionType, raw json.RawMessage) (AnswerKey, error) {
	if len(raw) == 0 {
		return AnswerKey{}, fmt.Errorf("answer key is empty")
	}

	var key AnswerKey
	switch t {
	case MCQ:
		var k ChoiceKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return AnswerKey{}, fmt.Errorf("invalid mcq answer key: %w", err)
		}
		key.Choice = &k
	case TrueFalse:
		var k BoolKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return AnswerKey{}, fmt.Errorf("invalid true/false answer key: %w", err)
		}
		key.Bool = &k
	case FillBlank:
		var k TextKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return AnswerKey{}, fmt.Errorf("invalid fill blank answer key: %w", err)
		}
		key.Text = &k
	case Subjective:
		var k KeywordKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return AnswerKey{}, fmt.Errorf("invalid subjective answer key: %w", err)
		}
		key.Keywords = &k
	default:
		return AnswerKey{}, fmt.Errorf("unsupported question type: %s", t)
	}

	return key, nil
}

// Key decodes the question's stored answer key.
func (q *Question) Key() (AnswerKey, error) {
	return ParseAnswerKey(q.Type, json.RawMessage(q.AnswerKey))
}

// Sanitized returns a copy of the question with the answer key removed,
// for serving to a student with an attempt in progress.
func (q *Question) Sanitized() *Question {
	sanitized := *q
	sanitized.AnswerKey = nil
	return &sanitized
}
