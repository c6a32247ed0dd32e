package events

import (
	"context"
	"time"
)

// Event is the envelope for everything published to the message bus.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Event types emitted by this service.
const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptCompleted = "attempt.completed"
)

const (
	eventSource  = "exam-service"
	eventVersion = "1.0"
)

// Publisher delivers events to downstream consumers (notifications,
// analytics, course progress tracking).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AttemptStartedEvent is emitted when a learner opens a new attempt.
type AttemptStartedEvent struct {
	AttemptID uint       `json:"attempt_id"`
	TestID    uint       `json:"test_id"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
}

// AttemptCompletedEvent is emitted once per attempt, when grading freezes.
type AttemptCompletedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	TestID      uint      `json:"test_id"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	EndReason   string    `json:"end_reason"`
	CompletedAt time.Time `json:"completed_at"`
}
