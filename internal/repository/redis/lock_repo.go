package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// unlockScript удаляет ключ, только если значение совпадает с токеном владельца
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepo реализует repository.UserLockRepository поверх SETNX
type LockRepo struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewLockRepo создает новый репозиторий блокировок и возвращает ошибку при проблемах
func NewLockRepo(client redis.UniversalClient, keyPrefix string) (*LockRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil for LockRepo")
	}
	if keyPrefix == "" {
		keyPrefix = "lock:quota"
	}
	return &LockRepo{client: client, keyPrefix: keyPrefix}, nil
}

func (r *LockRepo) key(userID string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, userID)
}

// TryLock устанавливает ключ, только если он не существует.
// TTL ограничивает время жизни блокировки, если владелец упал.
func (r *LockRepo) TryLock(ctx context.Context, userID string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key(userID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock for user %s: %w", userID, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Unlock снимает блокировку владельца. Чужую блокировку не трогает.
func (r *LockRepo) Unlock(ctx context.Context, userID, token string) error {
	if err := unlockScript.Run(ctx, r.client, []string{r.key(userID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock for user %s: %w", userID, err)
	}
	return nil
}
