package sessionizer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
)

func (e *env) inProgress(t *testing.T, userID uuid.UUID, key string, start time.Time, dur time.Duration) *types.Activity {
	t.Helper()
	a, err := e.repos.Activities.Create(e.ctx, nil, &types.Activity{
		UserID:      userID,
		ContentKey:  key,
		State:       progression.ActivityStateInProgress,
		DurationMs:  dur.Milliseconds(),
		StartedAt:   start,
		LastEventAt: start.Add(dur),
	})
	require.NoError(t, err)
	return a
}

func TestSweepStaleCompletesAndDiscards(t *testing.T) {
	e := newEnv(t)
	u, p := testutil.SeedUser(t, e.ctx, e.db, "ja")
	testutil.SeedLabel(t, e.ctx, e.db, "youtube:long", progression.LabelStageCompleted, "ja")
	testutil.SeedLabel(t, e.ctx, e.db, "youtube:short", progression.LabelStageCompleted, "ja")

	long := e.inProgress(t, u.ID, "youtube:long", e.now.Add(-time.Hour), 10*time.Minute)
	short := e.inProgress(t, u.ID, "youtube:short", e.now.Add(-time.Hour), 20*time.Second)
	fresh := e.inProgress(t, u.ID, "youtube:fresh", e.now.Add(-5*time.Minute), 4*time.Minute)

	res, err := e.svc.SweepStale(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 1, res.Discarded)

	got, err := e.repos.Activities.GetByID(e.ctx, nil, long.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.ActivityStateCompleted, got.State)
	assert.Equal(t, int64(10*60_000), got.DurationMs)
	require.NotNil(t, got.TargetLanguageProfileID)
	assert.Equal(t, p.ID, *got.TargetLanguageProfileID)

	gone, err := e.repos.Activities.GetByID(e.ctx, nil, short.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	still, err := e.repos.Activities.GetByID(e.ctx, nil, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.ActivityStateInProgress, still.State)

	entries, err := e.repos.ExperienceLedger.ListByActivity(e.ctx, nil, long.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(17), entries[0].BaseExperience)
}

func TestSweepStaleDefersUnlabeledAndSkipsPendingPings(t *testing.T) {
	e := newEnv(t)
	u, _ := testutil.SeedUser(t, e.ctx, e.db, "ja")
	e.inProgress(t, u.ID, "youtube:unlabeled", e.now.Add(-time.Hour), 10*time.Minute)
	e.inProgress(t, u.ID, "youtube:pending", e.now.Add(-time.Hour), 10*time.Minute)
	testutil.SeedLabel(t, e.ctx, e.db, "youtube:pending", progression.LabelStageCompleted, "ja")
	e.event(t, u.ID, "youtube:pending", progression.ActivityTypeHeartbeat, e.now.Add(-40*time.Minute))

	res, err := e.svc.SweepStale(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deferred)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Completed)
}

func TestSweepStaleDiscardsOffTarget(t *testing.T) {
	e := newEnv(t)
	u, _ := testutil.SeedUser(t, e.ctx, e.db, "ja")
	testutil.SeedLabel(t, e.ctx, e.db, "youtube:fr", progression.LabelStageCompleted, "fr")
	act := e.inProgress(t, u.ID, "youtube:fr", e.now.Add(-time.Hour), 10*time.Minute)

	res, err := e.svc.SweepStale(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Discarded)

	gone, err := e.repos.Activities.GetByID(e.ctx, nil, act.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
