package dto

import (
	"time"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
)

// GenerateChallengeRequest - тело запроса на генерацию вопроса
type GenerateChallengeRequest struct {
	Difficulty string `json:"difficulty" binding:"required,max=32"`
}

// ChallengeResponse - вопрос в ответе на генерацию
type ChallengeResponse struct {
	ID              uint      `json:"id"`
	Difficulty      string    `json:"difficulty"`
	Title           string    `json:"title"`
	Options         []string  `json:"options"`
	CorrectAnswerID int       `json:"correct_answer_id"`
	Explanation     string    `json:"explanation"`
	Timestamp       time.Time `json:"timestamp"`
}

// HistoryItemResponse - элемент истории пользователя
type HistoryItemResponse struct {
	ID              uint      `json:"id"`
	Difficulty      string    `json:"difficulty"`
	DateCreated     time.Time `json:"date_created"`
	CreatedBy       string    `json:"created_by"`
	Title           string    `json:"title"`
	Options         []string  `json:"options"`
	CorrectAnswerID int       `json:"correct_answer_id"`
	Explanation     *string   `json:"explanation"`
}

// HistoryResponse - история вопросов пользователя
type HistoryResponse struct {
	Challenges []HistoryItemResponse `json:"challenges"`
}

// QuotaResponse - текущая квота пользователя
type QuotaResponse struct {
	UserID        string    `json:"user_id"`
	Quota         int       `json:"quota"`
	LastResetDate time.Time `json:"last_reset_date"`
}

func copyOptions(options entity.StringArray) []string {
	out := make([]string, len(options))
	copy(out, options)
	return out
}

// NewChallengeResponse создает DTO для только что созданного вопроса
func NewChallengeResponse(c *entity.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:              c.ID,
		Difficulty:      c.Difficulty,
		Title:           c.Title,
		Options:         copyOptions(c.Options),
		CorrectAnswerID: c.CorrectAnswerID,
		Explanation:     c.ExplanationText(),
		Timestamp:       c.DateCreated,
	}
}

// NewHistoryResponse создает DTO истории; пустая история - пустой массив
func NewHistoryResponse(challenges []entity.Challenge) HistoryResponse {
	items := make([]HistoryItemResponse, 0, len(challenges))
	for i := range challenges {
		c := &challenges[i]
		items = append(items, HistoryItemResponse{
			ID:              c.ID,
			Difficulty:      c.Difficulty,
			DateCreated:     c.DateCreated,
			CreatedBy:       c.CreatedBy,
			Title:           c.Title,
			Options:         copyOptions(c.Options),
			CorrectAnswerID: c.CorrectAnswerID,
			Explanation:     c.Explanation,
		})
	}
	return HistoryResponse{Challenges: items}
}

// NewQuotaResponse создает DTO квоты
func NewQuotaResponse(q *entity.ChallengeQuota) QuotaResponse {
	return QuotaResponse{
		UserID:        q.UserID,
		Quota:         q.Quota,
		LastResetDate: q.LastResetDate,
	}
}
