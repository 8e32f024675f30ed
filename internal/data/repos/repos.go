package repos

import (
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = progression.UserRepo
type TargetLanguageProfileRepo = progression.TargetLanguageProfileRepo
type RawActivityEventRepo = progression.RawActivityEventRepo
type ActivityRepo = progression.ActivityRepo
type StreakDayRepo = progression.StreakDayRepo
type StreakLedgerRepo = progression.StreakLedgerRepo
type VacationLedgerRepo = progression.VacationLedgerRepo
type ExperienceLedgerRepo = progression.ExperienceLedgerRepo
type ContentLabelRepo = progression.ContentLabelRepo

type EventGroupKey = progression.EventGroupKey
type VacationTotals = progression.VacationTotals

// HasReversal reports whether a ledger slice already carries a reversal entry.
var HasReversal = progression.HasReversal

// Set bundles every progression repo over one connection pool.
type Set struct {
	Users            UserRepo
	Profiles         TargetLanguageProfileRepo
	RawEvents        RawActivityEventRepo
	Activities       ActivityRepo
	StreakDays       StreakDayRepo
	StreakLedger     StreakLedgerRepo
	VacationLedger   VacationLedgerRepo
	ExperienceLedger ExperienceLedgerRepo
	ContentLabels    ContentLabelRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Users:            progression.NewUserRepo(db, baseLog),
		Profiles:         progression.NewTargetLanguageProfileRepo(db, baseLog),
		RawEvents:        progression.NewRawActivityEventRepo(db, baseLog),
		Activities:       progression.NewActivityRepo(db, baseLog),
		StreakDays:       progression.NewStreakDayRepo(db, baseLog),
		StreakLedger:     progression.NewStreakLedgerRepo(db, baseLog),
		VacationLedger:   progression.NewVacationLedgerRepo(db, baseLog),
		ExperienceLedger: progression.NewExperienceLedgerRepo(db, baseLog),
		ContentLabels:    progression.NewContentLabelRepo(db, baseLog),
	}
}
