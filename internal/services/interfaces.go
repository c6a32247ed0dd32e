package services

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
)

// ===== REQUEST/RESPONSE DTOs =====

type StartAttemptRequest struct {
	TestID uint `json:"test_id" validate:"required"`
}

// UpdateAttemptRequest drives both answer submission and completion.
// Setting Status to "completed" triggers grading; Answers merge into the
// attempt either way.
type UpdateAttemptRequest struct {
	Status  *models.AttemptStatus      `json:"status" validate:"omitempty,oneof=completed"`
	Answers map[string]json.RawMessage `json:"answers"`
}

type AttemptResponse struct {
	*models.TestAttempt
	CanSubmit     bool `json:"can_submit"`
	TimeRemaining *int `json:"time_remaining,omitempty"` // seconds, timed attempts only
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// GradeSummary is the aggregate outcome of grading one attempt.
type GradeSummary struct {
	TotalPoints   float64               `json:"total_points"`
	EarnedPoints  float64               `json:"earned_points"`
	PenaltyPoints float64               `json:"penalty_points"`
	FinalPoints   float64               `json:"final_points"`
	Score         int                   `json:"score"`
	Results       models.AttemptResults `json:"results"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	Start(ctx context.Context, req StartAttemptRequest, userID string) (*AttemptResponse, error)
	SubmitAnswers(ctx context.Context, attemptID uint, answers map[string]json.RawMessage, userID string) (*AttemptResponse, error)
	Complete(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	GetCurrentAttempt(ctx context.Context, testID uint, userID string) (*AttemptResponse, error)
	ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error)
}

type TestService interface {
	GetByID(ctx context.Context, testID uint) (*models.Test, error)
	GetQuestions(ctx context.Context, testID uint, includeKeys bool) ([]*models.Question, error)
}

// GradingService contains the pure scoring rules. It never touches
// storage; callers pass the question set and stored answers in.
type GradingService interface {
	IsCorrect(question *models.Question, raw json.RawMessage) bool
	Grade(questions []*models.Question, answers models.AnswerSet) GradeSummary
}

type ReportService interface {
	ExportAttempts(ctx context.Context, testID uint) (*bytes.Buffer, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Attempt() AttemptService
	Test() TestService
	Grading() GradingService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
