package progression

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
)

func TestRawActivityEventRepoGroupsAndWaiting(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewRawActivityEventRepo(db, testutil.Logger(t))

	u, _ := testutil.SeedUser(t, ctx, tx, "ja")
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a1 := testutil.SeedEvent(t, ctx, tx, u.ID, "youtube:a", progression.ActivityTypeStart, base)
	a2 := testutil.SeedEvent(t, ctx, tx, u.ID, "youtube:a", progression.ActivityTypeEnd, base.Add(time.Minute))
	b1 := testutil.SeedEvent(t, ctx, tx, u.ID, "youtube:b", progression.ActivityTypeStart, base.Add(-time.Hour))

	groups, err := repo.ListPendingGroups(ctx, tx, base, 10)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "youtube:b", groups[0].ContentKey, "oldest group first")
	assert.Equal(t, "youtube:a", groups[1].ContentKey)

	events, err := repo.ListByGroup(ctx, tx, EventGroupKey{UserID: u.ID, ContentKey: "youtube:a"}, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, a1.ID, events[0].ID)
	assert.Equal(t, a2.ID, events[1].ID)

	capped, err := repo.ListByGroup(ctx, tx, EventGroupKey{UserID: u.ID, ContentKey: "youtube:a"}, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, a1.ID, capped[0].ID, "cap keeps the oldest events")

	// A freshly checked waiting group is skipped until the retry window passes.
	checkedAt := base.Add(10 * time.Minute)
	require.NoError(t, repo.MarkWaitingOnLabeling(ctx, tx, []uuid.UUID{b1.ID}, checkedAt))

	groups, err = repo.ListPendingGroups(ctx, tx, checkedAt.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "youtube:a", groups[0].ContentKey)

	groups, err = repo.ListPendingGroups(ctx, tx, checkedAt.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	n, err := repo.DeleteByIDs(ctx, tx, []uuid.UUID{a1.ID, a2.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err := repo.CountByUser(ctx, tx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
