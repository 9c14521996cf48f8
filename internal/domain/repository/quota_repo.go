package repository

import (
	"context"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
)

// QuotaRepository определяет методы для работы с квотами пользователей
type QuotaRepository interface {
	// GetByUserID возвращает квоту пользователя или apperrors.ErrNotFound
	GetByUserID(ctx context.Context, userID string) (*entity.ChallengeQuota, error)
	// CreateIfAbsent вставляет запись, если ее еще нет, и возвращает актуальную запись.
	// Параллельные вызовы для одного пользователя не создают дубликатов.
	CreateIfAbsent(ctx context.Context, quota *entity.ChallengeQuota) (*entity.ChallengeQuota, error)
	// UpdateQuota записывает quota и last_reset_date из переданной записи
	UpdateQuota(ctx context.Context, quota *entity.ChallengeQuota) error
	// DecrementIfPositive атомарно уменьшает квоту на 1, если она больше нуля.
	// Возвращает false, если списывать нечего.
	DecrementIfPositive(ctx context.Context, userID string) (bool, error)
}
