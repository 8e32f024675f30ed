package progression

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityStateInProgress = "in_progress"
	ActivityStateCompleted  = "completed"
	ActivityStateDeleted    = "deleted"
)

const SourceManual = "manual"

// Activity is a reconstructed study session.
//
// At most one in_progress row exists per (user, content key); the partial unique
// index backs the lookup-then-upsert done by the sessionizer. While in progress
// DurationMs only grows; completion freezes it.
type Activity struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                  uuid.UUID  `gorm:"type:uuid;not null;index;index:idx_activity_in_progress_key,unique,priority:1,where:state = 'in_progress'" json:"user_id"`
	TargetLanguageProfileID *uuid.UUID `gorm:"type:uuid;column:target_language_profile_id;index" json:"target_language_profile_id,omitempty"`
	ContentKey              string     `gorm:"column:content_key;not null;index:idx_activity_in_progress_key,unique,priority:2,where:state = 'in_progress'" json:"content_key"`
	State                   string     `gorm:"column:state;not null;index" json:"state"`
	Title                   string     `gorm:"column:title;not null;default:''" json:"title"`
	LanguageCode            string     `gorm:"column:language_code;not null;default:''" json:"language_code"`
	DurationMs              int64      `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	Source                  string     `gorm:"column:source;not null;default:''" json:"source"`
	IsManuallyTracked       bool       `gorm:"column:is_manually_tracked;not null;default:false" json:"is_manually_tracked"`
	StartedAt               time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	LastEventAt             time.Time  `gorm:"column:last_event_at;not null" json:"last_event_at"`
	CompletedAt             *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt               time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"not null;index" json:"updated_at"`
}

func (Activity) TableName() string { return "activity" }
