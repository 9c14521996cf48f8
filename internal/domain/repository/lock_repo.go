package repository

import (
	"context"
	"time"
)

// UserLockRepository определяет распределенную блокировку на пользователя
type UserLockRepository interface {
	// TryLock пытается взять блокировку. Возвращает токен владельца и признак успеха.
	TryLock(ctx context.Context, userID string, ttl time.Duration) (string, bool, error)
	// Unlock снимает блокировку, только если ею владеет token
	Unlock(ctx context.Context, userID, token string) error
}
