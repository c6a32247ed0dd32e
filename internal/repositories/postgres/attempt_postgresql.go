package postgres

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/prepdesk/exam-service/internal/models"
	"github.com/prepdesk/exam-service/internal/repositories"
)

// AttemptPostgreSQL is deliberately uncached: attempt rows mutate on every
// answer submission and stale reads would corrupt grading.
type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	db := a.helpers.getDB(tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	db := a.helpers.getDB(tx)
	var attempt models.TestAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.TestAttempt, error) {
	db := a.helpers.getDB(tx)
	var attempt models.TestAttempt
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	db := a.helpers.getDB(tx)
	return db.WithContext(ctx).Save(attempt).Error
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, tx *gorm.DB, testID uint, userID string) (*models.TestAttempt, error) {
	db := a.helpers.getDB(tx)
	var attempt models.TestAttempt
	if err := db.WithContext(ctx).
		Where("test_id = ? AND user_id = ? AND status = ?", testID, userID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	db := a.helpers.getDB(tx)

	query := db.WithContext(ctx).Model(&models.TestAttempt{})
	query = a.helpers.applyAttemptFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.applyPaginationAndSort(query, filters)

	var attempts []*models.TestAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetCompletedByTest(ctx context.Context, tx *gorm.DB, testID uint) ([]*models.TestAttempt, error) {
	db := a.helpers.getDB(tx)
	var attempts []*models.TestAttempt
	if err := db.WithContext(ctx).
		Where("test_id = ? AND status = ?", testID, models.AttemptCompleted).
		Order("completed_at ASC, id ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}
