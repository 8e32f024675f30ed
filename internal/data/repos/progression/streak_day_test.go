package progression

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
)

func TestStreakDayRepoLatestAndAggregates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewStreakDayRepo(db, testutil.Logger(t))

	u, _ := testutil.SeedUser(t, ctx, tx, "ja")
	other, _ := testutil.SeedUser(t, ctx, tx, "ko")
	d1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d4 := d1.AddDate(0, 0, 3)

	testutil.SeedCreditedDay(t, ctx, tx, u.ID, d1, 1)
	testutil.SeedCreditedDay(t, ctx, tx, u.ID, d2, 2)
	testutil.SeedCreditedDay(t, ctx, tx, other.ID, d4, 1)

	latest, err := repo.LatestCredited(ctx, tx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.DayStart.Equal(d2))

	before, err := repo.LatestCreditedBefore(ctx, tx, u.ID, d2)
	require.NoError(t, err)
	require.NotNil(t, before)
	assert.True(t, before.DayStart.Equal(d1))

	ids, err := repo.ListUsersLastCreditedOn(ctx, tx, d2, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, u.ID, ids[0])

	last := d4.Add(3 * time.Hour)
	require.NoError(t, repo.AddAggregates(ctx, tx, u.ID, d4, 90_000, 25, &last))
	require.NoError(t, repo.AddAggregates(ctx, tx, u.ID, d4, -200_000, -10, nil))
	day, err := repo.GetByUserAndDay(ctx, tx, u.ID, d4)
	require.NoError(t, err)
	require.NotNil(t, day)
	assert.False(t, day.Credited)
	assert.EqualValues(t, 0, day.TrackedDurationMs, "duration floors at zero")
	assert.EqualValues(t, 15, day.XPGained)

	days, err := repo.ListRange(ctx, tx, u.ID, d1, d4.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, days, 3)
}
