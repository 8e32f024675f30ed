package streak

import (
	"time"

	"github.com/google/uuid"

	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

type NudgeResult struct {
	Bridged       bool
	Reason        string
	BridgedDay    time.Time
	CurrentStreak int
}

// Candidates lists users whose most recent credited day is exactly two days before now.
func (l *Ledger) Candidates(dbc dbctx.Context, now time.Time) ([]uuid.UUID, error) {
	target := rules.DayStart(now).AddDate(0, 0, -2)
	return l.deps.StreakDays.ListUsersLastCreditedOn(dbc.Ctx, dbc.Tx, target, l.deps.Rules.Streak.NudgeBatchLimit)
}

// Nudge bridges yesterday for a user whose last credited day is two days back,
// spending one vacation credit. It never bridges more than one day.
func (l *Ledger) Nudge(dbc dbctx.Context, userID uuid.UUID, now time.Time) (NudgeResult, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	today := rules.DayStart(now)
	yesterday := today.AddDate(0, 0, -1)

	user, err := l.deps.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return NudgeResult{}, err
	}
	if user == nil {
		return NudgeResult{}, progression.ErrMissingUser
	}

	latest, err := l.deps.StreakDays.LatestCredited(ctx, tx, userID)
	if err != nil {
		return NudgeResult{}, err
	}
	if latest == nil || daysBetween(latest.DayStart.UTC(), today) != 2 {
		return NudgeResult{Reason: "not_eligible"}, nil
	}
	if already, err := l.deps.VacationLedger.UseExistsForDay(ctx, tx, userID, yesterday); err != nil {
		return NudgeResult{}, err
	} else if already {
		return NudgeResult{Reason: "already_covered"}, nil
	}

	bal, err := l.VacationBalance(dbc, user)
	if err != nil {
		return NudgeResult{}, err
	}
	if bal.Balance < 1 {
		return NudgeResult{Reason: "no_vacation_credit"}, nil
	}

	streakAfter := latest.StreakLengthAfterCredit + 1
	if err := l.coverDay(dbc, userID, yesterday, streakAfter, latest.StreakLengthAfterCredit, latest.DayStart.UTC(), progression.InitiatorSystem, now); err != nil {
		return NudgeResult{}, err
	}
	res := CreditResult{DayStart: yesterday, StreakLength: streakAfter}
	if err := l.refreshUserStreak(dbc, user, &res); err != nil {
		return NudgeResult{}, err
	}
	l.log.Info("vacation credit auto-applied", "user_id", userID, "day", yesterday.Format(time.DateOnly), "streak", streakAfter)
	return NudgeResult{Bridged: true, BridgedDay: yesterday, CurrentStreak: res.CurrentStreak}, nil
}
