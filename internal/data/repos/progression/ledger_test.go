package progression

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
)

func TestExperienceLedgerRepoSequenceIsUnique(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewExperienceLedgerRepo(db, testutil.Logger(t))

	u, p := testutil.SeedUser(t, ctx, tx, "ja")
	activityID := uuid.New()
	now := time.Now().UTC()

	entry := func(seq, delta, running int64, kind string) *types.ExperienceLedgerEntry {
		return &types.ExperienceLedgerEntry{
			UserID:                  u.ID,
			TargetLanguageProfileID: p.ID,
			Sequence:                seq,
			ActivityID:              testutil.PtrUUID(activityID),
			Kind:                    kind,
			BaseExperience:          delta,
			DeltaExperience:         delta,
			RunningTotalAfter:       running,
			PreviousLevel:           1,
			NewLevel:                1,
			OccurredAt:              now,
		}
	}
	_, err := repo.Append(ctx, tx, entry(1, 100, 100, progression.ExperienceKindAward))
	require.NoError(t, err)

	sp := tx.SavePoint("dup")
	require.NoError(t, sp.Error)
	_, err = repo.Append(ctx, tx, entry(1, 50, 150, progression.ExperienceKindAward))
	require.Error(t, err)
	require.NoError(t, tx.RollbackTo("dup").Error)

	_, err = repo.Append(ctx, tx, entry(2, -100, 0, progression.ExperienceKindReversal))
	require.NoError(t, err)

	latest, err := repo.Latest(ctx, tx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.EqualValues(t, 2, latest.Sequence)

	sum, err := repo.SumDelta(ctx, tx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum)

	byActivity, err := repo.ListByActivity(ctx, tx, activityID)
	require.NoError(t, err)
	assert.Len(t, byActivity, 2)
	assert.True(t, HasReversal(byActivity))
}

func TestVacationLedgerRepoTotals(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewVacationLedgerRepo(db, testutil.Logger(t))

	u, _ := testutil.SeedUser(t, ctx, tx, "ja")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	_, err := repo.Append(ctx, tx, &types.VacationLedgerEntry{UserID: u.ID, Kind: progression.VacationKindGrant, Amount: 2, Source: progression.InitiatorSystem, OccurredAt: now})
	require.NoError(t, err)
	_, err = repo.Append(ctx, tx, &types.VacationLedgerEntry{UserID: u.ID, Kind: progression.VacationKindUse, Source: progression.InitiatorUser, CoveredDayStart: &day, OccurredAt: now})
	require.NoError(t, err)

	totals, err := repo.Totals(ctx, tx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, VacationTotals{Granted: 2, Used: 1}, totals)

	used, err := repo.UseExistsForDay(ctx, tx, u.ID, day)
	require.NoError(t, err)
	assert.True(t, used)

	used, err = repo.UseExistsForDay(ctx, tx, u.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, used)
}

func TestProfileAndLabelRepos(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	profiles := NewTargetLanguageProfileRepo(db, testutil.Logger(t))
	labels := NewContentLabelRepo(db, testutil.Logger(t))

	u, seeded := testutil.SeedUser(t, ctx, tx, "ja")

	again, err := profiles.GetOrCreate(ctx, tx, u.ID, " JA ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, again.ID)

	ko, err := profiles.GetOrCreate(ctx, tx, u.ID, "ko")
	require.NoError(t, err)
	assert.NotEqual(t, seeded.ID, ko.ID)

	require.NoError(t, profiles.AddDuration(ctx, tx, ko.ID, 5_000))
	require.NoError(t, profiles.AddDuration(ctx, tx, ko.ID, -9_000))
	ko, err = profiles.GetByID(ctx, tx, ko.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, ko.TotalDurationLearningMs)

	all, err := profiles.ListByUser(ctx, tx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, labels.Upsert(ctx, tx, &types.ContentLabel{ContentKey: "youtube:x", Stage: progression.LabelStageQueued}))
	require.NoError(t, labels.Upsert(ctx, tx, &types.ContentLabel{ContentKey: "youtube:x", Stage: progression.LabelStageCompleted, LanguageCode: "JA"}))
	l, err := labels.Get(ctx, tx, "youtube:x")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.Ready())
	assert.Equal(t, "ja", l.LanguageCode)

	missing, err := labels.Get(ctx, tx, "youtube:none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
