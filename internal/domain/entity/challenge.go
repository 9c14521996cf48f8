package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// ChallengeOptionsCount - количество вариантов ответа в каждом вопросе
const ChallengeOptionsCount = 4

// StringArray - пользовательский тип для хранения упорядоченного списка строк в JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// ChallengeContent - содержимое вопроса, полученное от генератора
type ChallengeContent struct {
	Title           string
	Options         StringArray
	CorrectAnswerID int
	Explanation     string
}

// Challenge представляет сгенерированный вопрос пользователя.
// Создается один раз и больше не изменяется.
type Challenge struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Difficulty      string      `gorm:"not null" json:"difficulty"`
	DateCreated     time.Time   `gorm:"not null;autoCreateTime" json:"date_created"`
	CreatedBy       string      `gorm:"not null;index" json:"created_by"`
	Title           string      `gorm:"not null" json:"title"`
	Options         StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectAnswerID int         `gorm:"not null" json:"correct_answer_id"`
	Explanation     *string     `json:"explanation"`
}

// TableName определяет имя таблицы для GORM
func (Challenge) TableName() string {
	return "challenge"
}

// NewChallenge собирает вопрос из содержимого генератора
func NewChallenge(createdBy, difficulty string, content *ChallengeContent) *Challenge {
	challenge := &Challenge{
		Difficulty:      difficulty,
		CreatedBy:       createdBy,
		Title:           content.Title,
		Options:         append(StringArray(nil), content.Options...),
		CorrectAnswerID: content.CorrectAnswerID,
	}
	if content.Explanation != "" {
		explanation := content.Explanation
		challenge.Explanation = &explanation
	}
	return challenge
}

// ExplanationText возвращает пояснение или пустую строку
func (c *Challenge) ExplanationText() string {
	if c.Explanation == nil {
		return ""
	}
	return *c.Explanation
}

// IsValidOption проверяет, что индекс указывает на существующий вариант
func (c *Challenge) IsValidOption(index int) bool {
	return index >= 0 && index < len(c.Options)
}

// ValidateRequired проверяет только наличие обязательных полей
func (c *Challenge) ValidateRequired() error {
	switch {
	case strings.TrimSpace(c.Difficulty) == "":
		return fmt.Errorf("%w: difficulty is required", apperrors.ErrValidation)
	case strings.TrimSpace(c.CreatedBy) == "":
		return fmt.Errorf("%w: created_by is required", apperrors.ErrValidation)
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	case c.Options == nil:
		return fmt.Errorf("%w: options are required", apperrors.ErrValidation)
	}
	return nil
}

// Validate дополнительно проверяет количество вариантов и границы correct_answer_id
func (c *Challenge) Validate() error {
	if err := c.ValidateRequired(); err != nil {
		return err
	}
	if len(c.Options) != ChallengeOptionsCount {
		return fmt.Errorf("%w: expected %d options, got %d", apperrors.ErrValidation, ChallengeOptionsCount, len(c.Options))
	}
	if !c.IsValidOption(c.CorrectAnswerID) {
		return fmt.Errorf("%w: correct_answer_id %d out of range", apperrors.ErrValidation, c.CorrectAnswerID)
	}
	return nil
}
