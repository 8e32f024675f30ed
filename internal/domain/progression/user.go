package progression

import (
	"time"

	"github.com/google/uuid"
)

// User carries the denormalized streak and lifetime XP totals.
// TotalExperience is the sum of every profile's ledger total and drives vacation-credit earnings.
type User struct {
	ID                             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CurrentTargetLanguageProfileID *uuid.UUID `gorm:"type:uuid;column:current_target_language_profile_id" json:"current_target_language_profile_id,omitempty"`
	TotalExperience                int64      `gorm:"column:total_experience;not null;default:0" json:"total_experience"`
	CurrentStreak                  int        `gorm:"column:current_streak;not null;default:0" json:"current_streak"`
	LongestStreak                  int        `gorm:"column:longest_streak;not null;default:0" json:"longest_streak"`
	LastStreakCreditAt             *time.Time `gorm:"column:last_streak_credit_at" json:"last_streak_credit_at,omitempty"`
	CreatedAt                      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt                      time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// TargetLanguageProfile is one language track of a user.
// TotalExperience must equal the latest ExperienceLedgerEntry.RunningTotalAfter for the profile.
type TargetLanguageProfile struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                  uuid.UUID `gorm:"type:uuid;not null;index:idx_profile_user_language,unique,priority:1" json:"user_id"`
	LanguageCode            string    `gorm:"column:language_code;not null;index:idx_profile_user_language,unique,priority:2" json:"language_code"`
	TotalExperience         int64     `gorm:"column:total_experience;not null;default:0" json:"total_experience"`
	TotalDurationLearningMs int64     `gorm:"column:total_duration_learning_ms;not null;default:0" json:"total_duration_learning_ms"`
	CreatedAt               time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time `gorm:"not null" json:"updated_at"`
}

func (TargetLanguageProfile) TableName() string { return "target_language_profile" }
