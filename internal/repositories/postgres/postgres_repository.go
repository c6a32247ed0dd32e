package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/prepdesk/exam-service/internal/repositories"
)

// RepositoryConfig carries the connections the postgres repositories need.
// RedisClient may be nil; repositories then operate without caching.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// PostgreSQLRepository implements repositories.Repository on top of gorm.
type PostgreSQLRepository struct {
	db          *gorm.DB
	redisClient *redis.Client

	testRepo     repositories.TestRepository
	questionRepo repositories.QuestionRepository
	attemptRepo  repositories.AttemptRepository
}

func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	return &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		testRepo:     NewTestPostgreSQL(config.DB, config.RedisClient),
		questionRepo: NewQuestionPostgreSQL(config.DB, config.RedisClient),
		attemptRepo:  NewAttemptPostgreSQL(config.DB, config.RedisClient),
	}
}

func (r *PostgreSQLRepository) Test() repositories.TestRepository {
	return r.testRepo
}

func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.questionRepo
}

func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository {
	return r.attemptRepo
}

// WithTransaction runs fn inside a database transaction. The Repository
// handed to fn is bound to the transaction, so nested repository calls
// share it without passing tx explicitly.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			redisClient:  r.redisClient,
			testRepo:     NewTestPostgreSQL(tx, r.redisClient),
			questionRepo: NewQuestionPostgreSQL(tx, r.redisClient),
			attemptRepo:  NewAttemptPostgreSQL(tx, r.redisClient),
		}
		return fn(txRepo)
	})
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// ===== REPOSITORY MANAGER =====

type PostgreSQLRepositoryManager struct {
	config     RepositoryConfig
	repository repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &PostgreSQLRepositoryManager{config: config}
}

func (m *PostgreSQLRepositoryManager) Initialize() error {
	if m.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}
	m.repository = NewPostgreSQLRepository(m.config)
	return nil
}

func (m *PostgreSQLRepositoryManager) GetRepository() repositories.Repository {
	return m.repository
}

func (m *PostgreSQLRepositoryManager) HealthCheck(ctx context.Context) error {
	if m.repository == nil {
		return fmt.Errorf("repository not initialized")
	}
	return m.repository.Ping(ctx)
}

func (m *PostgreSQLRepositoryManager) Shutdown(ctx context.Context) error {
	if m.repository == nil {
		return nil
	}
	return m.repository.Close()
}
