package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ExperienceKindAward    = "award"
	ExperienceKindReversal = "reversal"
)

// AppliedMultiplier is one factor recorded on a ledger entry at award time.
type AppliedMultiplier struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value"`
}

// ExperienceLedgerEntry is the append-only system of record for XP.
// Sequence is dense per profile; the unique index turns a racing append into a conflict.
type ExperienceLedgerEntry struct {
	ID                      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                  uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	TargetLanguageProfileID uuid.UUID      `gorm:"type:uuid;not null;index:idx_xp_ledger_profile_seq,unique,priority:1" json:"target_language_profile_id"`
	Sequence                int64          `gorm:"column:sequence;not null;index:idx_xp_ledger_profile_seq,unique,priority:2" json:"sequence"`
	ActivityID              *uuid.UUID     `gorm:"type:uuid;column:activity_id;index" json:"activity_id,omitempty"`
	Kind                    string         `gorm:"column:kind;not null" json:"kind"`
	BaseExperience          int64          `gorm:"column:base_experience;not null" json:"base_experience"`
	AppliedMultipliers      datatypes.JSON `gorm:"column:applied_multipliers" json:"applied_multipliers"`
	DeltaExperience         int64          `gorm:"column:delta_experience;not null" json:"delta_experience"`
	RunningTotalAfter       int64          `gorm:"column:running_total_after;not null" json:"running_total_after"`
	PreviousLevel           int            `gorm:"column:previous_level;not null" json:"previous_level"`
	NewLevel                int            `gorm:"column:new_level;not null" json:"new_level"`
	LevelsGained            int            `gorm:"column:levels_gained;not null" json:"levels_gained"`
	OccurredAt              time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt               time.Time      `gorm:"not null" json:"created_at"`
}

func (ExperienceLedgerEntry) TableName() string { return "experience_ledger_entry" }
