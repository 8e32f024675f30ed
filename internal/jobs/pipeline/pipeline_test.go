package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/sessionize_batch"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/stale_activity_sweep"
	"github.com/Joshykins/stupid-neko-sub001/internal/jobs/pipeline/vacation_nudge"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression"
	"github.com/Joshykins/stupid-neko-sub001/internal/modules/progression/sessionizer"
	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

type fakeProgression struct {
	limit    int
	batch    sessionizer.BatchResult
	sweep    sessionizer.SweepResult
	nudge    progression.NudgeSummary
	nudgeErr error
}

func (f *fakeProgression) ProcessBatch(_ context.Context, limit int) (sessionizer.BatchResult, error) {
	f.limit = limit
	return f.batch, nil
}

func (f *fakeProgression) SweepStale(context.Context) (sessionizer.SweepResult, error) {
	return f.sweep, nil
}

func (f *fakeProgression) NudgeAll(context.Context) (progression.NudgeSummary, error) {
	return f.nudge, f.nudgeErr
}

func TestSessionizeBatchReportsCounts(t *testing.T) {
	fake := &fakeProgression{batch: sessionizer.BatchResult{Groups: 2, Processed: 7, CompletedActivities: 1, WaitingOnLabel: 1}}
	p := sessionize_batch.New(logger.Nop(), fake, 250)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250, fake.limit)
	assert.Equal(t, 2, res["groups"])
	assert.Equal(t, 7, res["processed"])
	assert.Equal(t, 1, res["waiting_on_label"])
	assert.Equal(t, "sessionize_batch", p.Type())
}

func TestStaleSweepReportsCounts(t *testing.T) {
	fake := &fakeProgression{sweep: sessionizer.SweepResult{Scanned: 4, Completed: 2, Discarded: 1, Deferred: 1}}
	p := stale_activity_sweep.New(logger.Nop(), fake)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res["scanned"])
	assert.Equal(t, 1, res["discarded"])
}

func TestVacationNudgeKeepsPartialSummaryOnError(t *testing.T) {
	fake := &fakeProgression{
		nudge:    progression.NudgeSummary{Candidates: 3, Bridged: 1},
		nudgeErr: context.Canceled,
	}
	p := vacation_nudge.New(logger.Nop(), fake)

	res, err := p.Run(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, res["bridged"])
}

func TestIntervalsByType(t *testing.T) {
	m := Intervals{Sessionize: 1, StaleSweep: 2, Nudge: 3}.ByType()
	assert.Len(t, m, 3)
	assert.EqualValues(t, 1, m[sessionize_batch.JobType])
	assert.EqualValues(t, 2, m[stale_activity_sweep.JobType])
	assert.EqualValues(t, 3, m[vacation_nudge.JobType])
}
