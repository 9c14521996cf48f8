package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
)

// ChallengeRepo реализует repository.ChallengeRepository
type ChallengeRepo struct {
	db *gorm.DB
	// strictValidation включает проверку 4 вариантов и границ correct_answer_id.
	// Без нее проверяется только наличие обязательных полей.
	strictValidation bool
}

// NewChallengeRepo создает новый репозиторий вопросов
func NewChallengeRepo(db *gorm.DB, strictValidation bool) *ChallengeRepo {
	return &ChallengeRepo{db: db, strictValidation: strictValidation}
}

// Create проверяет и сохраняет вопрос
func (r *ChallengeRepo) Create(ctx context.Context, challenge *entity.Challenge) error {
	validate := challenge.ValidateRequired
	if r.strictValidation {
		validate = challenge.Validate
	}
	if err := validate(); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// ListByCreator возвращает все вопросы пользователя.
// Порядок по id только для стабильного вывода.
func (r *ChallengeRepo) ListByCreator(ctx context.Context, userID string) ([]entity.Challenge, error) {
	challenges := make([]entity.Challenge, 0)
	err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("id").
		Find(&challenges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}
