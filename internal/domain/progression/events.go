package progression

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationLevelUp        = "level_up"
	NotificationStreakCredited = "streak_credited"
	NotificationVacationUsed   = "vacation_used"
	NotificationXPAwarded      = "xp_awarded"
)

// Notification is a post-commit progression fact published to subscribers.
type Notification struct {
	Type         string         `json:"type"`
	UserID       uuid.UUID      `json:"user_id"`
	LanguageCode string         `json:"language_code,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	At           time.Time      `json:"at"`
}

// Notifier publishes notifications after the owning transaction commits.
type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Notification) error { return nil }
