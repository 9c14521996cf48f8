package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
)

var errEmptyResponse = errors.New("no response received from model")

// rawChallenge - ответ модели. Указатели нужны, чтобы отличить отсутствующий ключ от нулевого значения.
type rawChallenge struct {
	Title           *string  `json:"title"`
	Options         []string `json:"options"`
	CorrectAnswerID *int     `json:"correct_answer_id"`
	Explanation     *string  `json:"explanation"`
}

// stripCodeFence убирает markdown-обертку ```json ... ```, которую часто добавляет модель
func stripCodeFence(text string) string {
	clean := strings.TrimSpace(text)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// parseChallenge разбирает текст модели и проверяет обязательные ключи и форму вопроса
func parseChallenge(text string) (*entity.ChallengeContent, error) {
	clean := stripCodeFence(text)
	if clean == "" {
		return nil, errEmptyResponse
	}

	var raw rawChallenge
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	switch {
	case raw.Title == nil:
		return nil, errors.New("missing required key: title")
	case raw.Options == nil:
		return nil, errors.New("missing required key: options")
	case raw.CorrectAnswerID == nil:
		return nil, errors.New("missing required key: correct_answer_id")
	case raw.Explanation == nil:
		return nil, errors.New("missing required key: explanation")
	}

	if len(raw.Options) != entity.ChallengeOptionsCount {
		return nil, fmt.Errorf("expected %d options, got %d", entity.ChallengeOptionsCount, len(raw.Options))
	}
	if *raw.CorrectAnswerID < 0 || *raw.CorrectAnswerID >= len(raw.Options) {
		return nil, fmt.Errorf("correct_answer_id %d out of range", *raw.CorrectAnswerID)
	}

	return &entity.ChallengeContent{
		Title:           *raw.Title,
		Options:         entity.StringArray(raw.Options),
		CorrectAnswerID: *raw.CorrectAnswerID,
		Explanation:     *raw.Explanation,
	}, nil
}
