package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// pgUniqueViolation - код ошибки PostgreSQL при нарушении уникального индекса
const pgUniqueViolation = "23505"

// QuotaRepo реализует repository.QuotaRepository
type QuotaRepo struct {
	db *gorm.DB
}

// NewQuotaRepo создает новый репозиторий квот
func NewQuotaRepo(db *gorm.DB) *QuotaRepo {
	return &QuotaRepo{db: db}
}

// GetByUserID возвращает квоту пользователя
func (r *QuotaRepo) GetByUserID(ctx context.Context, userID string) (*entity.ChallengeQuota, error) {
	var quota entity.ChallengeQuota
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&quota).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quota, nil
}

// CreateIfAbsent вставляет запись через ON CONFLICT DO NOTHING.
// Если запись уже создана параллельным запросом, возвращается существующая.
func (r *QuotaRepo) CreateIfAbsent(ctx context.Context, quota *entity.ChallengeQuota) (*entity.ChallengeQuota, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(quota)
	if result.Error != nil && !isUniqueViolation(result.Error) {
		return nil, fmt.Errorf("failed to create quota: %w", result.Error)
	}
	if result.Error == nil && result.RowsAffected == 1 {
		return quota, nil
	}

	// Запись уже существовала
	return r.GetByUserID(ctx, quota.UserID)
}

// UpdateQuota точечно обновляет quota и last_reset_date (без full Save)
func (r *QuotaRepo) UpdateQuota(ctx context.Context, quota *entity.ChallengeQuota) error {
	err := r.db.WithContext(ctx).
		Model(&entity.ChallengeQuota{}).
		Where("user_id = ?", quota.UserID).
		Updates(map[string]interface{}{
			"quota":           quota.Quota,
			"last_reset_date": quota.LastResetDate,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update quota: %w", err)
	}
	return nil
}

// DecrementIfPositive списывает одну единицу одним UPDATE с условием quota > 0
func (r *QuotaRepo) DecrementIfPositive(ctx context.Context, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.ChallengeQuota{}).
		Where("user_id = ? AND quota > 0", userID).
		UpdateColumn("quota", gorm.Expr("quota - 1"))
	if result.Error != nil {
		return false, fmt.Errorf("failed to decrement quota: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
