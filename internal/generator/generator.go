// Package generator создает вопросы викторины через генеративную модель.
//
// Политика при сбое задается режимом: в мягком режиме любая ошибка
// (нет ответа, битый JSON, нет обязательных ключей) заменяется запасным
// вопросом, в строгом режиме возвращается apperrors.ErrGenerationFailed.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

var errNoProvider = errors.New("generation provider is not configured")

// Provider возвращает сырой текст модели для пары системного и пользовательского промпта
type Provider interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Options настраивает генератор
type Options struct {
	// Strict - возвращать ошибку вместо запасного вопроса
	Strict bool
	// Timeout ограничивает один вызов модели. 0 - без ограничения.
	Timeout time.Duration
}

// Generator создает содержимое вопроса по уровню сложности
type Generator struct {
	provider Provider
	opts     Options
	log      logrus.FieldLogger
}

// New создает генератор. provider может быть nil: тогда каждая генерация считается сбоем.
func New(provider Provider, opts Options, log logrus.FieldLogger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{provider: provider, opts: opts, log: log}
}

// FallbackChallenge возвращает фиксированный запасной вопрос
func FallbackChallenge() *entity.ChallengeContent {
	return &entity.ChallengeContent{
		Title:           "What is the capital of France?",
		Options:         entity.StringArray{"Berlin", "Madrid", "Paris", "Rome"},
		CorrectAnswerID: 2,
		Explanation:     "Paris is the capital city of France.",
	}
}

// Generate возвращает вопрос заданной сложности
func (g *Generator) Generate(ctx context.Context, difficulty string) (*entity.ChallengeContent, error) {
	content, err := g.generate(ctx, difficulty)
	if err == nil {
		return content, nil
	}

	if g.opts.Strict {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, err)
	}

	g.log.WithError(err).WithField("difficulty", difficulty).
		Warn("[Generator] Генерация не удалась, используем запасной вопрос")
	return FallbackChallenge(), nil
}

func (g *Generator) generate(ctx context.Context, difficulty string) (*entity.ChallengeContent, error) {
	if g.provider == nil {
		return nil, errNoProvider
	}

	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	text, err := g.provider.GenerateText(ctx, systemPrompt, buildUserPrompt(difficulty))
	if err != nil {
		return nil, err
	}
	g.log.WithField("difficulty", difficulty).Debugf("[Generator] Сырой ответ модели: %s", text)

	return parseChallenge(text)
}
