package entity

import "time"

const (
	// DefaultChallengeQuota - квота, выдаваемая новому пользователю и после сброса
	DefaultChallengeQuota = 15
	// DefaultQuotaResetWindow - окно, после которого квота восстанавливается
	DefaultQuotaResetWindow = 24 * time.Hour
)

// ChallengeQuota хранит остаток квоты пользователя и время последнего сброса
type ChallengeQuota struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UserID        string    `gorm:"not null;uniqueIndex" json:"user_id"`
	Quota         int       `gorm:"not null;default:15" json:"quota"`
	LastResetDate time.Time `gorm:"not null" json:"last_reset_date"`
}

// TableName определяет имя таблицы для GORM
func (ChallengeQuota) TableName() string {
	return "challenge_quota"
}

// NewChallengeQuota создает запись с полной квотой
func NewChallengeQuota(userID string, quota int, now time.Time) *ChallengeQuota {
	return &ChallengeQuota{
		UserID:        userID,
		Quota:         quota,
		LastResetDate: now,
	}
}

// IsStale сообщает, прошло ли больше window с последнего сброса
func (q *ChallengeQuota) IsStale(now time.Time, window time.Duration) bool {
	return now.Sub(q.LastResetDate) > window
}

// Reset восстанавливает квоту до значения по умолчанию
func (q *ChallengeQuota) Reset(quota int, now time.Time) {
	q.Quota = quota
	q.LastResetDate = now
}

// HasRemaining проверяет, остались ли попытки
func (q *ChallengeQuota) HasRemaining() bool {
	return q.Quota > 0
}
