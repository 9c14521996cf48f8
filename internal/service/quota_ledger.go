package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	"github.com/yourusername/trivia-challenge-api/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// QuotaLedger ведет учет дневной квоты пользователей.
// Сброс выполняется лениво при каждом чтении, фоновой очистки нет.
type QuotaLedger struct {
	repo         repository.QuotaRepository
	defaultQuota int
	resetWindow  time.Duration
	now          func() time.Time
}

// NewQuotaLedger создает учет квот. Нулевые значения заменяются значениями по умолчанию.
func NewQuotaLedger(repo repository.QuotaRepository, defaultQuota int, resetWindow time.Duration) *QuotaLedger {
	if defaultQuota <= 0 {
		defaultQuota = entity.DefaultChallengeQuota
	}
	if resetWindow <= 0 {
		resetWindow = entity.DefaultQuotaResetWindow
	}
	return &QuotaLedger{
		repo:         repo,
		defaultQuota: defaultQuota,
		resetWindow:  resetWindow,
		now:          time.Now,
	}
}

// GetOrCreate возвращает квоту пользователя, создавая полную при первом обращении
func (l *QuotaLedger) GetOrCreate(ctx context.Context, userID string) (*entity.ChallengeQuota, error) {
	quota, err := l.repo.GetByUserID(ctx, userID)
	if err == nil {
		return quota, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to get quota for user %s: %w", userID, err)
	}

	quota, err = l.repo.CreateIfAbsent(ctx, entity.NewChallengeQuota(userID, l.defaultQuota, l.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create quota for user %s: %w", userID, err)
	}
	return quota, nil
}

// ResetIfStale восстанавливает квоту, если с последнего сброса прошло больше окна
func (l *QuotaLedger) ResetIfStale(ctx context.Context, quota *entity.ChallengeQuota) (*entity.ChallengeQuota, error) {
	now := l.now()
	if !quota.IsStale(now, l.resetWindow) {
		return quota, nil
	}

	updated := *quota
	updated.Reset(l.defaultQuota, now)
	if err := l.repo.UpdateQuota(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Decrement записывает quota-1 из прочитанного значения.
// Проверка quota > 0 на стороне вызывающего, отрицательные значения здесь не запрещены.
func (l *QuotaLedger) Decrement(ctx context.Context, quota *entity.ChallengeQuota) error {
	updated := *quota
	updated.Quota--
	if err := l.repo.UpdateQuota(ctx, &updated); err != nil {
		return err
	}
	quota.Quota = updated.Quota
	return nil
}

// TryConsume атомарно списывает единицу, если квота положительна
func (l *QuotaLedger) TryConsume(ctx context.Context, userID string) (bool, error) {
	return l.repo.DecrementIfPositive(ctx, userID)
}
