package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/data/aggregates"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos"
	"github.com/Joshykins/stupid-neko-sub001/internal/data/repos/testutil"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/runtime"
	"github.com/Joshykins/stupid-neko-sub001/internal/labeling"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/rules"
)

func TestNewRegistryRunsAgainstEmptyStore(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	uc := progression.New(progression.UsecasesDeps{
		Log:    log,
		Rules:  rules.Default(),
		Writer: aggregates.NewWriter(aggregates.BaseDeps{DB: db, Log: log, RetryDelay: -1}),
		Repos:  set,
		Labels: labeling.NewStore(set.ContentLabels),
		Now:    func() time.Time { return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC) },
	})

	reg, err := NewRegistry(log, uc, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"sessionize_batch", "stale_activity_sweep", "vacation_nudge"}, reg.Types())

	for _, jobType := range reg.Types() {
		h, ok := reg.Get(jobType)
		require.True(t, ok)
		_, err := runtime.Execute(context.Background(), h, log, nil)
		assert.NoError(t, err, jobType)
	}
}
