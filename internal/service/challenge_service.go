package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	"github.com/yourusername/trivia-challenge-api/internal/domain/repository"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// QuotaMode задает способ списания квоты
type QuotaMode string

const (
	// QuotaModeLiteral - проверка и списание отдельными операциями без блокировки.
	// Два параллельных запроса одного пользователя могут пройти проверку оба.
	QuotaModeLiteral QuotaMode = "literal"
	// QuotaModeAtomic - блокировка на пользователя и условное списание quota > 0
	QuotaModeAtomic QuotaMode = "atomic"
)

// ChallengeGenerator создает содержимое вопроса по сложности
type ChallengeGenerator interface {
	Generate(ctx context.Context, difficulty string) (*entity.ChallengeContent, error)
}

// ChallengeServiceConfig содержит настройки сервиса вопросов
type ChallengeServiceConfig struct {
	QuotaMode QuotaMode
	// LockTTL - время жизни блокировки пользователя (режим atomic)
	LockTTL time.Duration
	// LockWait - сколько ждать освободившуюся блокировку
	LockWait time.Duration
	// LockRetryInterval - пауза между попытками взять блокировку
	LockRetryInterval time.Duration
}

// ChallengeService связывает генератор, хранилище вопросов и учет квот
type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	ledger        *QuotaLedger
	generator     ChallengeGenerator
	lockRepo      repository.UserLockRepository // nil - без распределенной блокировки
	config        ChallengeServiceConfig
	log           logrus.FieldLogger
}

// NewChallengeService создает новый сервис вопросов
func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	ledger *QuotaLedger,
	generator ChallengeGenerator,
	lockRepo repository.UserLockRepository,
	config ChallengeServiceConfig,
	log logrus.FieldLogger,
) *ChallengeService {
	if config.QuotaMode == "" {
		config.QuotaMode = QuotaModeLiteral
	}
	if config.LockTTL <= 0 {
		config.LockTTL = time.Minute
	}
	if config.LockWait <= 0 {
		config.LockWait = 30 * time.Second
	}
	if config.LockRetryInterval <= 0 {
		config.LockRetryInterval = 100 * time.Millisecond
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChallengeService{
		challengeRepo: challengeRepo,
		ledger:        ledger,
		generator:     generator,
		lockRepo:      lockRepo,
		config:        config,
		log:           log,
	}
}

// GenerateChallenge проверяет квоту, генерирует и сохраняет вопрос, затем списывает квоту
func (s *ChallengeService) GenerateChallenge(ctx context.Context, userID, difficulty string) (*entity.Challenge, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	if s.config.QuotaMode == QuotaModeAtomic {
		return s.generateAtomic(ctx, userID, difficulty)
	}
	return s.generateLiteral(ctx, userID, difficulty)
}

// generateLiteral: проверка, генерация, сохранение и списание как отдельные шаги.
// Падение между сохранением и списанием оставляет квоту несписанной.
func (s *ChallengeService) generateLiteral(ctx context.Context, userID, difficulty string) (*entity.Challenge, error) {
	quota, err := s.checkQuota(ctx, userID)
	if err != nil {
		return nil, err
	}

	challenge, err := s.generateAndStore(ctx, userID, difficulty)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Decrement(ctx, quota); err != nil {
		return nil, fmt.Errorf("failed to decrement quota after challenge %d: %w", challenge.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"challenge_id": challenge.ID,
		"quota_left":   quota.Quota,
	}).Info("[ChallengeService] Вопрос создан")
	return challenge, nil
}

// generateAtomic списывает квоту одним условным UPDATE до сохранения вопроса.
// Ошибка сохранения после списания не возвращает единицу.
func (s *ChallengeService) generateAtomic(ctx context.Context, userID, difficulty string) (*entity.Challenge, error) {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := s.checkQuota(ctx, userID); err != nil {
		return nil, err
	}

	content, err := s.generator.Generate(ctx, difficulty)
	if err != nil {
		return nil, err
	}

	consumed, err := s.ledger.TryConsume(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}
	if !consumed {
		return nil, apperrors.ErrQuotaExceeded
	}

	challenge := entity.NewChallenge(userID, difficulty, content)
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		s.log.WithError(err).WithField("user_id", userID).
			Warn("[ChallengeService] Квота списана, но вопрос не сохранен")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"challenge_id": challenge.ID,
	}).Info("[ChallengeService] Вопрос создан (atomic)")
	return challenge, nil
}

// checkQuota загружает или создает квоту, сбрасывает устаревшую и проверяет остаток
func (s *ChallengeService) checkQuota(ctx context.Context, userID string) (*entity.ChallengeQuota, error) {
	quota, err := s.ledger.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	quota, err = s.ledger.ResetIfStale(ctx, quota)
	if err != nil {
		return nil, fmt.Errorf("failed to reset quota: %w", err)
	}

	if !quota.HasRemaining() {
		return nil, apperrors.ErrQuotaExceeded
	}
	return quota, nil
}

func (s *ChallengeService) generateAndStore(ctx context.Context, userID, difficulty string) (*entity.Challenge, error) {
	content, err := s.generator.Generate(ctx, difficulty)
	if err != nil {
		return nil, err
	}

	challenge := entity.NewChallenge(userID, difficulty, content)
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// lockUser берет блокировку пользователя, ожидая не дольше LockWait.
// При недоступности Redis работаем без блокировки: условное списание все равно не даст уйти в минус.
func (s *ChallengeService) lockUser(ctx context.Context, userID string) (func(), error) {
	noop := func() {}
	if s.lockRepo == nil {
		return noop, nil
	}

	deadline := time.Now().Add(s.config.LockWait)
	for {
		token, ok, err := s.lockRepo.TryLock(ctx, userID, s.config.LockTTL)
		if err != nil {
			s.log.WithError(err).WithField("user_id", userID).
				Warn("[ChallengeService] Блокировка недоступна, продолжаем без нее (fail-open)")
			return noop, nil
		}
		if ok {
			return func() {
				unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := s.lockRepo.Unlock(unlockCtx, userID, token); err != nil {
					s.log.WithError(err).WithField("user_id", userID).Error("[ChallengeService] Не удалось снять блокировку")
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: challenge generation already in progress", apperrors.ErrConflict)
		}

		timer := time.NewTimer(s.config.LockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// GetHistory возвращает все вопросы пользователя
func (s *ChallengeService) GetHistory(ctx context.Context, userID string) ([]entity.Challenge, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return s.challengeRepo.ListByCreator(ctx, userID)
}

// GetQuota возвращает актуальную квоту пользователя с учетом сброса.
// Если запись получить не удалось, возвращается несохраняемая нулевая заглушка.
func (s *ChallengeService) GetQuota(ctx context.Context, userID string) (*entity.ChallengeQuota, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	quota, err := s.ledger.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if quota == nil {
		return entity.NewChallengeQuota(userID, 0, s.ledger.now()), nil
	}

	return s.ledger.ResetIfStale(ctx, quota)
}

