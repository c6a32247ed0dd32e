package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepdesk/exam-service/internal/events"
	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
	"github.com/prepdesk/exam-service/internal/validator"
)

// activeAttemptConflict resolves a duplicate-key failure on attempt
// creation into a ConflictError carrying the existing attempt id.
func (s *attemptService) activeAttemptConflict(ctx context.Context, testID uint, userID string) error {
	existing, err := s.repo.Attempt().GetActiveAttempt(ctx, nil, testID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// The conflicting attempt completed between our insert and this
			// read. Treat as a transient conflict; the client retries.
			return NewBusinessRuleError("attempt_conflict", "an in-progress attempt existed, retry to start a new one")
		}
		return fmt.Errorf("failed to resolve attempt conflict: %w", err)
	}
	return NewConflictError(existing.ID)
}

// completeLocked grades and freezes an attempt. The caller must hold the
// row lock inside a transaction; the attempt is mutated in place.
func (s *attemptService) completeLocked(ctx context.Context, txRepo repositories.Repository, attempt *models.TestAttempt, endReason string) error {
	// One preloaded read serves both the passing score and the question
	// set, and it bypasses the catalog cache inside the transaction.
	test, err := txRepo.Test().GetByIDWithQuestions(ctx, nil, attempt.TestID)
	if err != nil {
		return fmt.Errorf("failed to get test for grading: %w", err)
	}

	questions := make([]*models.Question, len(test.Questions))
	for i := range test.Questions {
		questions[i] = &test.Questions[i]
	}

	answers, err := attempt.AnswerSet()
	if err != nil {
		return err
	}

	summary := s.grading.Grade(questions, answers)

	resultsJSON, err := json.Marshal(summary.Results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	completedAt := time.Now()
	if endReason == models.AttemptEndReasonTimeout && attempt.EndsAt != nil {
		// Expired attempts complete at their deadline, not at whatever
		// later moment the expiry was noticed.
		completedAt = *attempt.EndsAt
	}

	attempt.Status = models.AttemptCompleted
	attempt.Results = resultsJSON
	attempt.Score = &summary.Score
	attempt.TotalPoints = summary.TotalPoints
	attempt.EarnedPoints = summary.EarnedPoints
	attempt.PenaltyPoints = summary.PenaltyPoints
	attempt.FinalPoints = summary.FinalPoints
	attempt.Passed = summary.Score >= test.PassingScore
	attempt.CompletedAt = &completedAt
	attempt.EndReason = &endReason

	if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
		return fmt.Errorf("failed to freeze attempt: %w", err)
	}

	s.logger.Info("Attempt graded",
		"attempt_id", attempt.ID,
		"test_id", attempt.TestID,
		"score", summary.Score,
		"passed", attempt.Passed,
		"end_reason", endReason)

	return nil
}

func (s *attemptService) buildAttemptResponse(attempt *models.TestAttempt) *AttemptResponse {
	response := &AttemptResponse{
		TestAttempt: attempt,
		CanSubmit:   attempt.Status == models.AttemptInProgress,
	}

	if attempt.Status == models.AttemptInProgress && attempt.EndsAt != nil {
		remaining := int(time.Until(*attempt.EndsAt).Seconds())
		if remaining < 0 {
			remaining = 0
			response.CanSubmit = false
		}
		response.TimeRemaining = &remaining
	}

	return response
}

// validateAnswers rejects answers for questions outside the test
// (ErrQuestionNotInTest, a state problem, not a shape problem) and
// payloads whose shape does not match the question type.
func validateAnswers(questions []*models.Question, answers map[string]json.RawMessage) error {
	byID := make(map[string]*models.Question, len(questions))
	for _, q := range questions {
		byID[fmt.Sprintf("%d", q.ID)] = q
	}

	var errs ValidationErrors
	for questionID, raw := range answers {
		question, ok := byID[questionID]
		if !ok {
			return fmt.Errorf("question %s: %w", questionID, ErrQuestionNotInTest)
		}

		if !answerShapeValid(question.Type, raw) {
			errs = append(errs, NewValidationError(
				fmt.Sprintf("answers.%s", questionID),
				fmt.Sprintf("answer shape is invalid for a %s question", question.Type),
				string(raw)))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// answerShapeValid checks the submitted payload against the shape each
// question type accepts. Correctness is not judged here.
func answerShapeValid(t models.QuestionType, raw json.RawMessage) bool {
	switch t {
	case models.MCQ:
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			return true
		}
		var one string
		return json.Unmarshal(raw, &one) == nil
	case models.TrueFalse:
		var b bool
		return json.Unmarshal(raw, &b) == nil
	case models.FillBlank, models.Subjective:
		var s string
		return json.Unmarshal(raw, &s) == nil
	default:
		return false
	}
}

// toValidationErrors converts validator package failures into service
// validation errors so handlers only deal with one error shape.
func toValidationErrors(errs validator.ValidationErrors) error {
	out := make(ValidationErrors, 0, len(errs))
	for _, e := range errs {
		out = append(out, NewValidationError(e.Field, e.Message, e.Value))
	}
	return out
}

// ===== EVENT PUBLISHING =====

// Event publishing is fire-and-forget: failures are logged, never
// surfaced to the caller.

func (s *attemptService) publishAttemptStarted(ctx context.Context, attempt *models.TestAttempt) {
	event := events.Event{
		Type: events.EventAttemptStarted,
		Data: events.AttemptStartedEvent{
			AttemptID: attempt.ID,
			TestID:    attempt.TestID,
			UserID:    attempt.UserID,
			StartedAt: attempt.StartedAt,
			EndsAt:    attempt.EndsAt,
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt started event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}

func (s *attemptService) publishAttemptCompleted(ctx context.Context, attempt *models.TestAttempt) {
	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	endReason := ""
	if attempt.EndReason != nil {
		endReason = *attempt.EndReason
	}
	completedAt := time.Now()
	if attempt.CompletedAt != nil {
		completedAt = *attempt.CompletedAt
	}

	event := events.Event{
		Type: events.EventAttemptCompleted,
		Data: events.AttemptCompletedEvent{
			AttemptID:   attempt.ID,
			TestID:      attempt.TestID,
			UserID:      attempt.UserID,
			Score:       score,
			Passed:      attempt.Passed,
			EndReason:   endReason,
			CompletedAt: completedAt,
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt completed event",
			"attempt_id", attempt.ID,
			"error", err)
	}
}
