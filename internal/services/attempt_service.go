package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepdesk/exam-service/internal/events"
	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
	"github.com/prepdesk/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	grading   GradingService
	publisher events.Publisher
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, grading GradingService, publisher events.Publisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		grading:   grading,
		publisher: publisher,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req StartAttemptRequest, userID string) (*AttemptResponse, error) {
	s.logger.Info("Starting test attempt",
		"test_id", req.TestID,
		"user_id", userID)

	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, toValidationErrors(errs)
	}

	// Admission reads the test fresh, not through the catalog cache:
	// a deactivated test must stop admitting attempts immediately.
	test, err := s.repo.Test().GetByIDWithQuestions(ctx, nil, req.TestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	if !test.IsActive {
		return nil, ErrTestNotActive
	}

	now := time.Now()
	attempt := &models.TestAttempt{
		TestID:    req.TestID,
		UserID:    userID,
		Status:    models.AttemptInProgress,
		Answers:   []byte(`{}`),
		StartedAt: now,
	}
	if test.Duration != nil {
		endsAt := now.Add(time.Duration(*test.Duration) * time.Minute)
		attempt.EndsAt = &endsAt
	}

	// The partial unique index on (test_id, user_id) for in-progress rows
	// closes the race between two concurrent starts: the loser gets a
	// duplicate error and surfaces the winner's attempt id.
	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, s.activeAttemptConflict(ctx, req.TestID, userID)
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Test attempt started",
		"attempt_id", attempt.ID,
		"test_id", req.TestID,
		"user_id", userID)

	s.publishAttemptStarted(ctx, attempt)

	return s.buildAttemptResponse(attempt), nil
}

func (s *attemptService) SubmitAnswers(ctx context.Context, attemptID uint, answers map[string]json.RawMessage, userID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting answers",
		"attempt_id", attemptID,
		"user_id", userID,
		"answers_count", len(answers))

	var response *AttemptResponse
	var expiredAttempt *models.TestAttempt
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.UserID != userID {
			return NewPermissionError(userID, attemptID, "attempt", "submit", "attempt belongs to another user")
		}

		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		if attempt.Expired(time.Now()) {
			// Grade whatever is already stored; the late answers are lost.
			// Returning nil commits the forced completion.
			if err := s.completeLocked(ctx, txRepo, attempt, models.AttemptEndReasonTimeout); err != nil {
				return err
			}
			expiredAttempt = attempt
			return nil
		}

		questions, err := txRepo.Question().GetByTest(ctx, nil, attempt.TestID)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}

		if errs := validateAnswers(questions, answers); errs != nil {
			return errs
		}

		stored, err := attempt.AnswerSet()
		if err != nil {
			return err
		}
		for questionID, value := range answers {
			stored[questionID] = value
		}
		if err := attempt.SetAnswerSet(stored); err != nil {
			return err
		}

		if err := txRepo.Attempt().Update(ctx, nil, attempt); err != nil {
			return fmt.Errorf("failed to save answers: %w", err)
		}

		response = s.buildAttemptResponse(attempt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expiredAttempt != nil {
		s.publishAttemptCompleted(ctx, expiredAttempt)
		return nil, ErrAttemptTimeExpired
	}

	return response, nil
}

// Complete freezes the attempt: grades stored answers, writes results and
// score, and flips the status. Completing an already-completed attempt is
// a no-op that returns the frozen state unchanged.
func (s *attemptService) Complete(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	s.logger.Info("Completing test attempt",
		"attempt_id", attemptID,
		"user_id", userID)

	var response *AttemptResponse
	var completedNow bool
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to get attempt: %w", err)
		}

		if attempt.UserID != userID {
			return NewPermissionError(userID, attemptID, "attempt", "complete", "attempt belongs to another user")
		}

		if attempt.Status == models.AttemptCompleted {
			response = s.buildAttemptResponse(attempt)
			return nil
		}

		endReason := models.AttemptEndReasonSubmitted
		if attempt.Expired(time.Now()) {
			endReason = models.AttemptEndReasonTimeout
		}

		if err := s.completeLocked(ctx, txRepo, attempt, endReason); err != nil {
			return err
		}

		completedNow = true
		response = s.buildAttemptResponse(attempt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedNow {
		s.publishAttemptCompleted(ctx, response.TestAttempt)
	}

	return response, nil
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, attemptID, "attempt", "read", "attempt belongs to another user")
	}

	return s.buildAttemptResponse(attempt), nil
}

func (s *attemptService) GetCurrentAttempt(ctx context.Context, testID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, nil, testID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	return s.buildAttemptResponse(attempt), nil
}

func (s *attemptService) ListByUser(ctx context.Context, userID string, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	filters.UserID = &userID

	attempts, total, err := s.repo.Attempt().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, s.buildAttemptResponse(attempt))
	}

	page := 1
	size := len(responses)
	if filters.Limit > 0 {
		size = filters.Limit
		page = filters.Offset/filters.Limit + 1
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}
