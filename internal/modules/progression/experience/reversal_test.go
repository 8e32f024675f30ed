package experience

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
)

func TestReverseActivityBooksExactNegative(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	act := f.completedActivity(t, u, p, 45*60_000, noon)
	require.NoError(t, f.repos.Profiles.AddDuration(f.ctx, f.tx, p.ID, 2*act.DurationMs))
	require.NoError(t, f.repos.StreakDays.AddAggregates(f.ctx, f.tx, u.ID, rules.DayStart(act.StartedAt), act.DurationMs, 420, nil))

	// Unrelated XP before and after, plus two entries for the activity summing to 420.
	_, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 55, OccurredAt: noon})
	require.NoError(t, err)
	_, err = f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 400, ActivityID: &act.ID, OccurredAt: noon})
	require.NoError(t, err)
	_, err = f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 20, ActivityID: &act.ID, OccurredAt: noon})
	require.NoError(t, err)

	res, err := f.ledger.ReverseActivity(f.dbc, u.ID, act.ID, noon.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(-420), res.ReversedXP)
	require.NotNil(t, res.Entry)
	assert.Equal(t, int64(-420), res.Entry.DeltaExperience)
	assert.Equal(t, progression.ExperienceKindReversal, res.Entry.Kind)
	assert.Equal(t, int64(55), res.Entry.RunningTotalAfter)

	gotProfile, err := f.repos.Profiles.GetByID(f.ctx, f.tx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(55), gotProfile.TotalExperience)
	assert.Equal(t, act.DurationMs, gotProfile.TotalDurationLearningMs)

	gotAct, err := f.repos.Activities.GetByID(f.ctx, f.tx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.ActivityStateDeleted, gotAct.State)

	day, err := f.repos.StreakDays.GetByUserAndDay(f.ctx, f.tx, u.ID, rules.DayStart(act.StartedAt))
	require.NoError(t, err)
	assert.Equal(t, int64(0), day.TrackedDurationMs)
	assert.Equal(t, int64(0), day.XPGained)
}

func TestReverseActivityTwiceFails(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	act := f.completedActivity(t, u, p, 30*60_000, noon)
	_, err := f.ledger.ApplyExperience(f.dbc, Award{UserID: u.ID, ProfileID: p.ID, BaseDelta: 50, ActivityID: &act.ID, OccurredAt: noon})
	require.NoError(t, err)

	_, err = f.ledger.ReverseActivity(f.dbc, u.ID, act.ID, noon)
	require.NoError(t, err)
	_, err = f.ledger.ReverseActivity(f.dbc, u.ID, act.ID, noon)
	assert.ErrorIs(t, err, progression.ErrAlreadyReversed)

	entries, err := f.repos.ExperienceLedger.ListByActivity(f.ctx, f.tx, act.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReverseActivityWithoutLedgerEntries(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	act := f.completedActivity(t, u, p, 20*60_000, noon)

	res, err := f.ledger.ReverseActivity(f.dbc, u.ID, act.ID, noon)
	require.NoError(t, err)
	assert.Nil(t, res.Entry)
	assert.Equal(t, int64(0), res.ReversedXP)
}

func TestReverseActivityNotFound(t *testing.T) {
	f := newFixture(t)
	u, p := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	other, _ := testutil.SeedUser(t, f.ctx, f.tx, "ja")
	act := f.completedActivity(t, u, p, 20*60_000, noon)

	_, err := f.ledger.ReverseActivity(f.dbc, other.ID, act.ID, noon)
	assert.ErrorIs(t, err, progression.ErrActivityNotFound)

	_, err = f.ledger.ReverseActivity(f.dbc, u.ID, uuid.New(), noon)
	assert.ErrorIs(t, err, progression.ErrActivityNotFound)
}
