package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// ============================================================================
// Моки (testify) для ошибочных сценариев
// ============================================================================

// MockChallengeRepository реализует repository.ChallengeRepository
type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, challenge *entity.Challenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *MockChallengeRepository) ListByCreator(ctx context.Context, userID string) ([]entity.Challenge, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Challenge), args.Error(1)
}

// MockQuotaRepository реализует repository.QuotaRepository
type MockQuotaRepository struct {
	mock.Mock
}

func (m *MockQuotaRepository) GetByUserID(ctx context.Context, userID string) (*entity.ChallengeQuota, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ChallengeQuota), args.Error(1)
}

func (m *MockQuotaRepository) CreateIfAbsent(ctx context.Context, quota *entity.ChallengeQuota) (*entity.ChallengeQuota, error) {
	args := m.Called(ctx, quota)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ChallengeQuota), args.Error(1)
}

func (m *MockQuotaRepository) UpdateQuota(ctx context.Context, quota *entity.ChallengeQuota) error {
	args := m.Called(ctx, quota)
	return args.Error(0)
}

func (m *MockQuotaRepository) DecrementIfPositive(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockGenerator реализует ChallengeGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, difficulty string) (*entity.ChallengeContent, error) {
	args := m.Called(ctx, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ChallengeContent), args.Error(1)
}

// MockLockRepository реализует repository.UserLockRepository
type MockLockRepository struct {
	mock.Mock
}

func (m *MockLockRepository) TryLock(ctx context.Context, userID string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, userID, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLockRepository) Unlock(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

// ============================================================================
// In-memory реализации для сценариев с параллельными запросами
// ============================================================================

type memQuotaRepo struct {
	mu      sync.Mutex
	records map[string]entity.ChallengeQuota
	nextID  uint
	updates int
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{records: make(map[string]entity.ChallengeQuota)}
}

func (r *memQuotaRepo) put(q entity.ChallengeQuota) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = r.nextID
	r.records[q.UserID] = q
}

func (r *memQuotaRepo) get(userID string) entity.ChallengeQuota {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[userID]
}

func (r *memQuotaRepo) GetByUserID(_ context.Context, userID string) (*entity.ChallengeQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &q, nil
}

func (r *memQuotaRepo) CreateIfAbsent(_ context.Context, quota *entity.ChallengeQuota) (*entity.ChallengeQuota, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.records[quota.UserID]; ok {
		return &q, nil
	}
	r.nextID++
	created := *quota
	created.ID = r.nextID
	r.records[quota.UserID] = created
	return &created, nil
}

func (r *memQuotaRepo) UpdateQuota(_ context.Context, quota *entity.ChallengeQuota) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.records[quota.UserID]
	q.Quota = quota.Quota
	q.LastResetDate = quota.LastResetDate
	r.records[quota.UserID] = q
	r.updates++
	return nil
}

func (r *memQuotaRepo) DecrementIfPositive(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[userID]
	if !ok || q.Quota <= 0 {
		return false, nil
	}
	q.Quota--
	r.records[userID] = q
	return true, nil
}

type memChallengeRepo struct {
	mu         sync.Mutex
	challenges []entity.Challenge
}

func (r *memChallengeRepo) Create(_ context.Context, challenge *entity.Challenge) error {
	if err := challenge.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	challenge.ID = uint(len(r.challenges) + 1)
	challenge.DateCreated = time.Now()
	r.challenges = append(r.challenges, *challenge)
	return nil
}

func (r *memChallengeRepo) ListByCreator(_ context.Context, userID string) ([]entity.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]entity.Challenge, 0)
	for _, c := range r.challenges {
		if c.CreatedBy == userID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *memChallengeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.challenges)
}

// memLockRepo - локальная блокировка с той же семантикой, что и Redis SETNX
type memLockRepo struct {
	mu    sync.Mutex
	locks map[string]string
	seq   int
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{locks: make(map[string]string)}
}

func (r *memLockRepo) TryLock(_ context.Context, userID string, _ time.Duration) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.locks[userID]; held {
		return "", false, nil
	}
	r.seq++
	token := fmt.Sprintf("token-%d", r.seq)
	r.locks[userID] = token
	return token, true, nil
}

func (r *memLockRepo) Unlock(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locks[userID] == token {
		delete(r.locks, userID)
	}
	return nil
}

// staticGenerator всегда возвращает один и тот же вопрос
type staticGenerator struct {
	content *entity.ChallengeContent
}

func (g staticGenerator) Generate(context.Context, string) (*entity.ChallengeContent, error) {
	c := *g.content
	c.Options = append(entity.StringArray(nil), g.content.Options...)
	return &c, nil
}

// barrierGenerator не отвечает, пока в него не войдут все ожидаемые запросы
type barrierGenerator struct {
	arrived *sync.WaitGroup
	content *entity.ChallengeContent
}

func (g barrierGenerator) Generate(ctx context.Context, difficulty string) (*entity.ChallengeContent, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return staticGenerator{content: g.content}.Generate(ctx, difficulty)
}

func sampleContent() *entity.ChallengeContent {
	return &entity.ChallengeContent{
		Title:           "Which planet is known as the Red Planet?",
		Options:         entity.StringArray{"Venus", "Mars", "Jupiter", "Saturn"},
		CorrectAnswerID: 1,
		Explanation:     "Iron oxide gives Mars its reddish appearance.",
	}
}
