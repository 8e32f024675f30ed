package db

import (
	"fmt"

	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.AllModels()...); err != nil {
		return err
	}
	return EnsureProgressionIndexes(db)
}

// EnsureProgressionIndexes adds the read-path indexes AutoMigrate cannot express.
// Both statements are portable between postgres and sqlite.
func EnsureProgressionIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_activity_user_completed
		ON activity (user_id, state, completed_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_activity_user_completed: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_raw_event_waiting_checked
		ON raw_activity_event (is_waiting_on_labeling, label_checked_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_raw_event_waiting_checked: %w", err)
	}
	return nil
}
