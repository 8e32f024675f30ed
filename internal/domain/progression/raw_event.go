package progression

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActivityTypeStart     = "start"
	ActivityTypePause     = "pause"
	ActivityTypeEnd       = "end"
	ActivityTypeHeartbeat = "heartbeat"
)

func IsValidActivityType(t string) bool {
	switch t {
	case ActivityTypeStart, ActivityTypePause, ActivityTypeEnd, ActivityTypeHeartbeat:
		return true
	default:
		return false
	}
}

// Opens reports whether the ping opens or extends a session.
func Opens(activityType string) bool {
	return activityType == ActivityTypeStart || activityType == ActivityTypeHeartbeat
}

// RawActivityEvent is one playback/visit ping from the browser companion.
// Rows are consumed and deleted by the sessionizer; they are never updated
// except for the labeling wait flag.
type RawActivityEvent struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              uuid.UUID  `gorm:"type:uuid;not null;index:idx_raw_event_user_key,priority:1" json:"user_id"`
	ContentKey          string     `gorm:"column:content_key;not null;index:idx_raw_event_user_key,priority:2" json:"content_key"`
	ActivityType        string     `gorm:"column:activity_type;not null" json:"activity_type"`
	OccurredAt          time.Time  `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	Source              string     `gorm:"column:source;not null;default:''" json:"source"`
	IsWaitingOnLabeling bool       `gorm:"column:is_waiting_on_labeling;not null;default:false;index" json:"is_waiting_on_labeling"`
	LabelCheckedAt      *time.Time `gorm:"column:label_checked_at" json:"label_checked_at,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;index" json:"created_at"`
}

func (RawActivityEvent) TableName() string { return "raw_activity_event" }
