package progression

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CreditKindActivity = "activity"
	CreditKindVacation = "vacation"
)

// Streak decisions recorded in the streak ledger.
const (
	StreakDecisionExtend          = "extend"
	StreakDecisionBridge          = "bridge"
	StreakDecisionReset           = "reset"
	StreakDecisionVacationCover   = "vacation_cover"
	StreakDecisionAlreadyCredited = "already_credited"
)

// Who initiated a credit or a vacation use.
const (
	InitiatorUser   = "user"
	InitiatorSystem = "system"
)

const (
	VacationKindGrant = "grant"
	VacationKindUse   = "use"
)

// StreakDay is one row per (user, UTC day). Once Credited is true only the
// TrackedDurationMs / XPGained aggregates and LastEventAt may change.
type StreakDay struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                  uuid.UUID  `gorm:"type:uuid;not null;index:idx_streak_day_user_day,unique,priority:1" json:"user_id"`
	DayStart                time.Time  `gorm:"column:day_start;not null;index:idx_streak_day_user_day,unique,priority:2" json:"day_start"`
	TrackedDurationMs       int64      `gorm:"column:tracked_duration_ms;not null;default:0" json:"tracked_duration_ms"`
	XPGained                int64      `gorm:"column:xp_gained;not null;default:0" json:"xp_gained"`
	Credited                bool       `gorm:"column:credited;not null;default:false;index" json:"credited"`
	CreditKind              string     `gorm:"column:credit_kind;not null;default:''" json:"credit_kind"`
	StreakLengthAfterCredit int        `gorm:"column:streak_length_after_credit;not null;default:0" json:"streak_length_after_credit"`
	LastEventAt             *time.Time `gorm:"column:last_event_at" json:"last_event_at,omitempty"`
	CreatedAt               time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"not null" json:"updated_at"`
}

func (StreakDay) TableName() string { return "streak_day" }

// StreakLedgerEntry is the append-only audit record of every crediting decision.
type StreakLedgerEntry struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DayStart             time.Time      `gorm:"column:day_start;not null;index" json:"day_start"`
	Decision             string         `gorm:"column:decision;not null" json:"decision"`
	CreditKind           string         `gorm:"column:credit_kind;not null;default:''" json:"credit_kind"`
	PreviousDayStart     *time.Time     `gorm:"column:previous_day_start" json:"previous_day_start,omitempty"`
	PreviousStreakLength int            `gorm:"column:previous_streak_length;not null;default:0" json:"previous_streak_length"`
	StreakLengthAfter    int            `gorm:"column:streak_length_after;not null;default:0" json:"streak_length_after"`
	BridgedDayStart      *time.Time     `gorm:"column:bridged_day_start" json:"bridged_day_start,omitempty"`
	Source               string         `gorm:"column:source;not null" json:"source"`
	Details              datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	OccurredAt           time.Time      `gorm:"column:occurred_at;not null" json:"occurred_at"`
	CreatedAt            time.Time      `gorm:"not null;index" json:"created_at"`
}

func (StreakLedgerEntry) TableName() string { return "streak_ledger_entry" }

// VacationLedgerEntry is the append-only record of vacation-credit grants and uses.
// The balance is always recomputed from lifetime XP plus these rows.
type VacationLedgerEntry struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind            string     `gorm:"column:kind;not null;index" json:"kind"`
	Amount          int        `gorm:"column:amount;not null;default:1" json:"amount"`
	Reason          string     `gorm:"column:reason;not null;default:''" json:"reason"`
	Source          string     `gorm:"column:source;not null" json:"source"`
	CoveredDayStart *time.Time `gorm:"column:covered_day_start" json:"covered_day_start,omitempty"`
	OccurredAt      time.Time  `gorm:"column:occurred_at;not null" json:"occurred_at"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
}

func (VacationLedgerEntry) TableName() string { return "vacation_ledger_entry" }
