package repository

import (
	"context"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
)

// ChallengeRepository определяет методы для работы с сгенерированными вопросами
type ChallengeRepository interface {
	// Create сохраняет новый вопрос, заполняя ID и DateCreated
	Create(ctx context.Context, challenge *entity.Challenge) error
	// ListByCreator возвращает все вопросы пользователя
	ListByCreator(ctx context.Context, userID string) ([]entity.Challenge, error)
}
