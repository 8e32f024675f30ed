package domain

import "github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"

type (
	User                  = progression.User
	TargetLanguageProfile = progression.TargetLanguageProfile
	RawActivityEvent      = progression.RawActivityEvent
	Activity              = progression.Activity
	StreakDay             = progression.StreakDay
	StreakLedgerEntry     = progression.StreakLedgerEntry
	VacationLedgerEntry   = progression.VacationLedgerEntry
	ExperienceLedgerEntry = progression.ExperienceLedgerEntry
	AppliedMultiplier     = progression.AppliedMultiplier
	ContentLabel          = progression.ContentLabel
	Notification          = progression.Notification
	Notifier              = progression.Notifier
)

// AllModels lists every persisted model in migration order.
func AllModels() []any {
	return []any{
		&User{},
		&TargetLanguageProfile{},
		&ContentLabel{},
		&RawActivityEvent{},
		&Activity{},
		&StreakDay{},
		&StreakLedgerEntry{},
		&VacationLedgerEntry{},
		&ExperienceLedgerEntry{},
	}
}
