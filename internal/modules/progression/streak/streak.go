// Package streak credits calendar days, manages vacation credits and derives the
// streak-bonus multiplier.
//
// Every method runs inside the caller's transaction (dbctx.Context.Tx).
package streak

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type Deps struct {
	Log            *logger.Logger
	Rules          rules.Rules
	Users          repos.UserRepo
	StreakDays     repos.StreakDayRepo
	StreakLedger   repos.StreakLedgerRepo
	VacationLedger repos.VacationLedgerRepo
}

type Ledger struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps) *Ledger {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &Ledger{deps: deps, log: deps.Log.With("service", "StreakLedger")}
}

// CreditResult describes one crediting decision.
type CreditResult struct {
	DayStart      time.Time
	Decision      string
	StreakLength  int
	BridgedDay    *time.Time
	CurrentStreak int
	LongestStreak int
}

// VacationUsed reports whether the credit consumed a vacation credit.
func (r CreditResult) VacationUsed() bool { return r.BridgedDay != nil }

// Balance is the recomputed vacation-credit balance.
type Balance struct {
	Earned  int `json:"earned"`
	Granted int `json:"granted"`
	Used    int `json:"used"`
	Balance int `json:"balance"`
	Cap     int `json:"cap"`
}

// CreditActivity credits the UTC day containing occurredAt for the user.
// source is the initiator recorded on ledger rows (user or system).
func (l *Ledger) CreditActivity(dbc dbctx.Context, userID uuid.UUID, occurredAt time.Time, source string) (CreditResult, error) {
	ctx, tx := dbc.Ctx, dbc.Tx
	day := rules.DayStart(occurredAt)

	user, err := l.deps.Users.GetByIDForUpdate(ctx, tx, userID)
	if err != nil {
		return CreditResult{}, err
	}
	if user == nil {
		return CreditResult{}, progression.ErrMissingUser
	}

	row, err := l.deps.StreakDays.EnsureDay(ctx, tx, userID, day)
	if err != nil {
		return CreditResult{}, err
	}
	if row.Credited {
		return l.reconcile(dbc, user, row)
	}

	prev, err := l.deps.StreakDays.LatestCreditedBefore(ctx, tx, userID, day)
	if err != nil {
		return CreditResult{}, err
	}

	res := CreditResult{DayStart: day, Decision: progression.StreakDecisionReset, StreakLength: 1}
	prevLen := 0
	var prevDay *time.Time
	if prev != nil {
		prevLen = prev.StreakLengthAfterCredit
		pd := prev.DayStart.UTC()
		prevDay = &pd
		switch daysBetween(pd, day) {
		case 1:
			res.Decision = progression.StreakDecisionExtend
			res.StreakLength = prevLen + 1
		case 2:
			bal, err := l.VacationBalance(dbc, user)
			if err != nil {
				return CreditResult{}, err
			}
			if bal.Balance >= 1 {
				missing := day.AddDate(0, 0, -1)
				if err := l.coverDay(dbc, userID, missing, prevLen+1, prevLen, pd, source, occurredAt); err != nil {
					return CreditResult{}, err
				}
				res.Decision = progression.StreakDecisionBridge
				res.StreakLength = prevLen + 2
				res.BridgedDay = &missing
			}
		}
	}

	last := occurredAt.UTC()
	row.Credited = true
	row.CreditKind = progression.CreditKindActivity
	row.StreakLengthAfterCredit = res.StreakLength
	if row.LastEventAt == nil || row.LastEventAt.Before(last) {
		row.LastEventAt = &last
	}
	if err := l.deps.StreakDays.Save(ctx, tx, row); err != nil {
		return CreditResult{}, err
	}

	entry := &types.StreakLedgerEntry{
		UserID:               userID,
		DayStart:             day,
		Decision:             res.Decision,
		CreditKind:           progression.CreditKindActivity,
		PreviousDayStart:     prevDay,
		PreviousStreakLength: prevLen,
		StreakLengthAfter:    res.StreakLength,
		BridgedDayStart:      res.BridgedDay,
		Source:               source,
		OccurredAt:           last,
	}
	if _, err := l.deps.StreakLedger.Append(ctx, tx, entry); err != nil {
		return CreditResult{}, err
	}

	if err := l.refreshUserStreak(dbc, user, &res); err != nil {
		return CreditResult{}, err
	}
	l.log.Debug("streak day credited",
		"user_id", userID,
		"day", day.Format(time.DateOnly),
		"decision", res.Decision,
		"streak", res.StreakLength,
	)
	return res, nil
}

// reconcile repairs a drifted denormalized currentStreak when the day was already credited.
func (l *Ledger) reconcile(dbc dbctx.Context, user *types.User, row *types.StreakDay) (CreditResult, error) {
	res := CreditResult{
		DayStart:     row.DayStart.UTC(),
		Decision:     progression.StreakDecisionAlreadyCredited,
		StreakLength: row.StreakLengthAfterCredit,
	}
	if err := l.refreshUserStreak(dbc, user, &res); err != nil {
		return CreditResult{}, err
	}
	return res, nil
}

// refreshUserStreak sets currentStreak from the latest credited day and keeps
// longestStreak as a running max. It writes only when something changed.
func (l *Ledger) refreshUserStreak(dbc dbctx.Context, user *types.User, res *CreditResult) error {
	latest, err := l.deps.StreakDays.LatestCredited(dbc.Ctx, dbc.Tx, user.ID)
	if err != nil {
		return err
	}
	current := user.CurrentStreak
	var creditedAt time.Time
	if latest != nil {
		current = latest.StreakLengthAfterCredit
		creditedAt = latest.DayStart.UTC()
	}
	longest := user.LongestStreak
	if current > longest {
		longest = current
	}
	if res.StreakLength > longest {
		longest = res.StreakLength
	}
	res.CurrentStreak = current
	res.LongestStreak = longest
	if current == user.CurrentStreak && longest == user.LongestStreak {
		return nil
	}
	if current != user.CurrentStreak {
		l.log.Debug("current streak reconciled", "user_id", user.ID, "from", user.CurrentStreak, "to", current)
	}
	if err := l.deps.Users.UpdateStreak(dbc.Ctx, dbc.Tx, user.ID, current, longest, creditedAt); err != nil {
		return err
	}
	user.CurrentStreak = current
	user.LongestStreak = longest
	return nil
}

// coverDay credits a missed day with a vacation credit and records both ledgers.
func (l *Ledger) coverDay(dbc dbctx.Context, userID uuid.UUID, missing time.Time, streakAfter, prevLen int, prevDay time.Time, source string, at time.Time) error {
	ctx, tx := dbc.Ctx, dbc.Tx
	row, err := l.deps.StreakDays.EnsureDay(ctx, tx, userID, missing)
	if err != nil {
		return err
	}
	row.Credited = true
	row.CreditKind = progression.CreditKindVacation
	row.StreakLengthAfterCredit = streakAfter
	if err := l.deps.StreakDays.Save(ctx, tx, row); err != nil {
		return err
	}

	covered := missing.UTC()
	if _, err := l.deps.VacationLedger.Append(ctx, tx, &types.VacationLedgerEntry{
		UserID:          userID,
		Kind:            progression.VacationKindUse,
		Amount:          1,
		Reason:          "bridge_missed_day",
		Source:          source,
		CoveredDayStart: &covered,
		OccurredAt:      at.UTC(),
	}); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]any{"reason": "bridge_missed_day"})
	_, err = l.deps.StreakLedger.Append(ctx, tx, &types.StreakLedgerEntry{
		UserID:               userID,
		DayStart:             covered,
		Decision:             progression.StreakDecisionVacationCover,
		CreditKind:           progression.CreditKindVacation,
		PreviousDayStart:     &prevDay,
		PreviousStreakLength: prevLen,
		StreakLengthAfter:    streakAfter,
		BridgedDayStart:      &covered,
		Source:               source,
		Details:              datatypes.JSON(details),
		OccurredAt:           at.UTC(),
	})
	return err
}

// VacationBalance recomputes the balance from lifetime XP and the vacation ledger.
func (l *Ledger) VacationBalance(dbc dbctx.Context, user *types.User) (Balance, error) {
	totals, err := l.deps.VacationLedger.Totals(dbc.Ctx, dbc.Tx, user.ID)
	if err != nil {
		return Balance{}, err
	}
	return ComputeBalance(user.TotalExperience, totals.Granted, totals.Used, l.deps.Rules.Streak), nil
}

func ComputeBalance(totalExperience int64, granted, used int, cfg rules.Streak) Balance {
	earned := 0
	if totalExperience > 0 && cfg.VacationCostXP > 0 {
		earned = int(totalExperience / cfg.VacationCostXP)
	}
	bal := earned + granted - used
	if bal < 0 {
		bal = 0
	}
	if bal > cfg.VacationCap {
		bal = cfg.VacationCap
	}
	return Balance{Earned: earned, Granted: granted, Used: used, Balance: bal, Cap: cfg.VacationCap}
}

// Multiplier is the streak bonus: a linear ramp from 1x to the configured max
// reached at StreakBonusDays, flat afterwards.
func Multiplier(currentStreak int, cfg rules.Experience) float64 {
	if currentStreak <= 0 || cfg.StreakBonusDays <= 0 {
		return 1
	}
	ratio := math.Min(1, float64(currentStreak)/float64(cfg.StreakBonusDays))
	return 1 + (cfg.StreakBonusMax-1)*ratio
}

func (l *Ledger) Multiplier(currentStreak int) float64 {
	return Multiplier(currentStreak, l.deps.Rules.Experience)
}

// EffectiveStreak is the streak still alive at now: the latest credited day must
// be today or yesterday, otherwise the streak has lapsed.
func EffectiveStreak(latest *types.StreakDay, now time.Time) int {
	if latest == nil {
		return 0
	}
	if daysBetween(latest.DayStart.UTC(), rules.DayStart(now)) > 1 {
		return 0
	}
	return latest.StreakLengthAfterCredit
}

func daysBetween(from, to time.Time) int64 {
	return (rules.DayStart(to).UnixMilli() - rules.DayStart(from).UnixMilli()) / rules.DayMs
}
