package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
)

// testService serves the read-only test catalog. Test authoring lives in
// the course management service; this service only consumes it.
type testService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewTestService(repo repositories.Repository, logger *slog.Logger) TestService {
	return &testService{
		repo:   repo,
		logger: logger,
	}
}

func (s *testService) GetByID(ctx context.Context, testID uint) (*models.Test, error) {
	test, err := s.repo.Test().GetByID(ctx, nil, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetQuestions returns the ordered question set. Answer keys are stripped
// unless includeKeys is set; only grading and reporting paths may include
// them.
func (s *testService) GetQuestions(ctx context.Context, testID uint, includeKeys bool) ([]*models.Question, error) {
	exists, err := s.repo.Test().Exists(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to check test: %w", err)
	}
	if !exists {
		return nil, ErrTestNotFound
	}

	questions, err := s.repo.Question().GetByTest(ctx, nil, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	if includeKeys {
		return questions, nil
	}

	sanitized := make([]*models.Question, len(questions))
	for i, q := range questions {
		sanitized[i] = q.Sanitized()
	}
	return sanitized, nil
}
