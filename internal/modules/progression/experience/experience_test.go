package experience

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/dbctx"
)

type fixture struct {
	ctx    context.Context
	tx     *gorm.DB
	repos  repos.Set
	ledger *Ledger
	dbc    dbctx.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	set := repos.NewSet(db, testutil.Logger(t))
	ctx := context.Background()
	return &fixture{
		ctx:   ctx,
		tx:    tx,
		repos: set,
		ledger: New(Deps{
			Log:              testutil.Logger(t),
			Rules:            rules.Default(),
			Guard:            aggregates.NewCASGuard(db),
			Users:            set.Users,
			Profiles:         set.Profiles,
			Activities:       set.Activities,
			StreakDays:       set.StreakDays,
			ExperienceLedger: set.ExperienceLedger,
		}),
		dbc: dbctx.Context{Ctx: ctx, Tx: tx},
	}
}

func (f *fixture) completedActivity(t *testing.T, u *types.User, p *types.TargetLanguageProfile, durationMs int64, completedAt time.Time) *types.Activity {
	t.Helper()
	a, err := f.repos.Activities.Create(f.ctx, f.tx, &types.Activity{
		UserID:                  u.ID,
		TargetLanguageProfileID: &p.ID,
		ContentKey:              "youtube:" + uuid.NewString(),
		State:                   progression.ActivityStateCompleted,
		LanguageCode:            p.LanguageCode,
		DurationMs:              durationMs,
		Source:                  "browser_extension",
		StartedAt:               completedAt.Add(-time.Duration(durationMs) * time.Millisecond),
		LastEventAt:             completedAt,
		CompletedAt:             testutil.PtrTime(completedAt),
	})
	require.NoError(t, err)
	return a
}

var noon = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestComputeXP(t *testing.T) {
	cfg := rules.Default().Experience
	cases := []struct {
		name       string
		durationMs int64
		sameDayMin int64
		manual     bool
		want       int64
	}{
		{"under a minute", 59_999, 0, false, 0},
		{"one minute rounds to 2", 60_000, 0, false, 2},
		{"partial minute floors", 90_000, 0, false, 2},
		{"one hour", 3_600_000, 0, false, 100},
		{"five hours automatic", 5 * 3_600_000, 0, false, 500},
		{"five hours manual capped", 5 * 3_600_000, 0, true, 300},
		{"budget clamps to remainder", 3_600_000, 16*60 - 30, false, 50},
		{"budget exhausted", 3_600_000, 16 * 60, false, 0},
		{"budget overdrawn", 3_600_000, 20 * 60, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeXP(tc.durationMs, tc.sameDayMin, tc.manual, cfg))
		})
	}
}

func TestXPForDurationCountsSameDayActivities(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	f.completedActivity(t, u, p, 15*3_600_000, noon)
	// Yesterday's time does not count against today's budget.
	f.completedActivity(t, u, p, 16*3_600_000, noon.AddDate(0, 0, -1))

	xp, err := f.ledger.XPForDuration(f.dbc, u.ID, 2*3_600_000, false, noon.Add(time.Hour), uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100), xp)
}

func TestXPForDurationExcludesCurrentActivity(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	act := f.completedActivity(t, u, p, 16*3_600_000, noon)

	xp, err := f.ledger.XPForDuration(f.dbc, u.ID, act.DurationMs, false, noon, act.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1600), xp)
}

func TestApplyExperienceKeepsRunningTotal(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")

	deltas := []int64{150, 181, 7, 0, 42}
	var sum int64
	for i, d := range deltas {
		res, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: d, OccurredAt: noon})
		require.NoError(t, err)
		sum += d
		assert.Equal(t, int64(i+1), res.Entry.Sequence)
		assert.Equal(t, sum, res.Entry.RunningTotalAfter)
	}

	entries, err := f.repos.ExperienceLedger.ListByProfile(f.ctx, f.tx, p.ID, 100)
	require.NoError(t, err)
	require.Len(t, entries, len(deltas))
	assert.Equal(t, sum, entries[0].RunningTotalAfter)

	ledgerSum, err := f.repos.ExperienceLedger.SumDelta(f.ctx, f.tx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, ledgerSum)

	gotProfile, err := f.repos.Profiles.GetByID(f.ctx, f.tx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, gotProfile.TotalExperience)

	gotUser, err := f.repos.Users.GetByID(f.ctx, f.tx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, gotUser.TotalExperience)
}

func TestApplyExperienceReportsLevels(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")

	res, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 330, OccurredAt: noon})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PreviousLevel.Level)
	assert.Equal(t, 2, res.NewLevel.Level)
	assert.Equal(t, int64(180), res.NewLevel.Remainder)
	assert.Equal(t, 1, res.LevelsGained)
	assert.Equal(t, 2, res.Entry.NewLevel)

	notes := res.Notifications(u.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, progression.NotificationXPAwarded, notes[0].Type)
	assert.Equal(t, progression.NotificationLevelUp, notes[1].Type)
}

func TestApplyExperienceStreakBonus(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	require.NoError(t, f.tx.Model(u).Update("current_streak", 21).Error)

	res, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 101, ApplyStreakBonus: true, OccurredAt: noon})
	require.NoError(t, err)
	assert.Equal(t, int64(202), res.Entry.DeltaExperience)
	assert.Equal(t, int64(101), res.Entry.BaseExperience)

	var applied []progression.AppliedMultiplier
	require.NoError(t, json.Unmarshal(res.Entry.AppliedMultipliers, &applied))
	require.Len(t, applied, 1)
	assert.Equal(t, "streak", applied[0].Kind)
	assert.InDelta(t, 2.0, applied[0].Value, 1e-9)
}

func TestApplyExperienceStreakBonusFloors(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	require.NoError(t, f.tx.Model(u).Update("current_streak", 1).Error)

	res, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 100, ApplyStreakBonus: true, OccurredAt: noon})
	require.NoError(t, err)
	// 100 * (1 + 1/21) = 104.76
	assert.Equal(t, int64(104), res.Entry.DeltaExperience)
}

func TestApplyExperienceRejectsDriftedProfile(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	require.NoError(t, f.tx.Model(p).Update("total_experience", 9).Error)

	_, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 10, OccurredAt: noon})
	require.Error(t, err)
	assert.True(t, errors.Is(err, aggregates.ErrConflict))
}

func TestApplyExperienceForeignProfile(t *testing.T) {
	f := newFixture(t)
	u, _ := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	_, other := testutil.SeedUser(t, f.ctx, f.tx, "es")

	_, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: other.ID, BaseDelta: 10, OccurredAt: noon})
	assert.ErrorIs(t, err, progression.ErrMissingProfile)
}
