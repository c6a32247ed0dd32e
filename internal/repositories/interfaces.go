package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/prepdesk/exam-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    *models.AttemptStatus `json:"status"`
	TestID    *uint                 `json:"test_id"`
	UserID    *string               `json:"user_id"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "created_at", "completed_at", "score"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY INTERFACES =====

type TestRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Test, error)
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type QuestionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.Question, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction, so completion freezes all derived fields atomically.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	GetActiveAttempt(ctx context.Context, tx *gorm.DB, testID uint, userID string) (*models.TestAttempt, error)
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.TestAttempt, int64, error)
	GetCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.TestAttempt, error)
}

// ===== ERROR HELPERS =====

// IsNotFoundError reports whether err means the requested row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
// Requires TranslateError on the gorm config.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
