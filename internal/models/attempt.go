package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

const (
	AttemptEndReasonSubmitted = "submitted"
	AttemptEndReasonTimeout   = "time_out"
)

// AnswerSet maps a question id (stringified, as persisted in JSONB) to the
// submitted value for that question. A missing key means unanswered.
type AnswerSet map[string]json.RawMessage

// QuestionResult is the frozen per-question grading outcome. Points is the
// signed contribution: +points when correct, -negative_points when answered
// and incorrect with negative marking, 0 otherwise.
type QuestionResult struct {
	Correct        bool    `json:"correct"`
	Answered       bool    `json:"answered"`
	Points         float64 `json:"points"`
	PossiblePoints float64 `json:"possible_points"`
}

// AttemptResults maps stringified question ids to their grading outcome.
type AttemptResults map[string]QuestionResult

type TestAttempt struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TestID uint   `json:"test_id" gorm:"not null;index;uniqueIndex:idx_attempt_active,where:status = 'in_progress'"`
	UserID string `json:"user_id" gorm:"not null;index;size:255;uniqueIndex:idx_attempt_active,where:status = 'in_progress'"`

	Status AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	// Answers is mutable while in_progress; Results and the score fields are
	// written exactly once, at completion.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	Results datatypes.JSON `json:"results,omitempty" gorm:"type:jsonb"`

	// Scoring, frozen at completion. Score is the rounded percentage and may
	// be negative when penalties exceed earned points.
	Score         *int    `json:"score"`
	TotalPoints   float64 `json:"total_points"`
	EarnedPoints  float64 `json:"earned_points"`
	PenaltyPoints float64 `json:"penalty_points"`
	FinalPoints   float64 `json:"final_points"`
	Passed        bool    `json:"passed"`

	// Timing
	StartedAt   time.Time  `json:"started_at"`
	EndsAt      *time.Time `json:"ends_at"` // deadline for timed tests
	CompletedAt *time.Time `json:"completed_at"`
	EndReason   *string    `json:"end_reason" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Test Test `json:"-" gorm:"foreignKey:TestID"`
}

// AnswerSet decodes the stored answers column. An empty column yields an
// empty, non-nil set.
func (a *TestAttempt) AnswerSet() (AnswerSet, error) {
	set := make(AnswerSet)
	if len(a.Answers) == 0 {
		return set, nil
	}
	if err := json.Unmarshal(a.Answers, &set); err != nil {
		return nil, fmt.Errorf("invalid stored answer set: %w", err)
	}
	return set, nil
}

// SetAnswerSet encodes and stores the answer set.
func (a *TestAttempt) SetAnswerSet(set AnswerSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode answer set: %w", err)
	}
	a.Answers = data
	return nil
}

// ResultSet decodes the frozen per-question results, nil until completion.
func (a *TestAttempt) ResultSet() (AttemptResults, error) {
	if len(a.Results) == 0 {
		return nil, nil
	}
	results := make(AttemptResults)
	if err := json.Unmarshal(a.Results, &results); err != nil {
		return nil, fmt.Errorf("invalid stored results: %w", err)
	}
	return results, nil
}

// Expired reports whether a timed attempt is past its deadline.
func (a *TestAttempt) Expired(now time.Time) bool {
	return a.EndsAt != nil && now.After(*a.EndsAt)
}
