package repos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	types "github.com/Joshykins/stupid-neko-sub001/internal/domain"
	"github.com/Joshykins/stupid-neko-sub001/internal/domain/progression"
)

func TestNewSetWiresEveryRepo(t *testing.T) {
	set := repos.NewSet(testutil.DB(t), testutil.Logger(t))
	assert.NotNil(t, set.Users)
	assert.NotNil(t, set.Profiles)
	assert.NotNil(t, set.RawEvents)
	assert.NotNil(t, set.Activities)
	assert.NotNil(t, set.StreakDays)
	assert.NotNil(t, set.StreakLedger)
	assert.NotNil(t, set.VacationLedger)
	assert.NotNil(t, set.ExperienceLedger)
	assert.NotNil(t, set.ContentLabels)
}

func TestHasReversal(t *testing.T) {
	award := &types.ExperienceLedgerEntry{Kind: progression.ExperienceKindAward, DeltaExperience: 40}
	reversal := &types.ExperienceLedgerEntry{Kind: progression.ExperienceKindReversal, DeltaExperience: -40}

	assert.False(t, repos.HasReversal(nil))
	assert.False(t, repos.HasReversal([]*types.ExperienceLedgerEntry{award, nil}))
	assert.True(t, repos.HasReversal([]*types.ExperienceLedgerEntry{award, reversal}))
}
