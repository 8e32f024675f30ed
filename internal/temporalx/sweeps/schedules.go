package sweeps

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Joshykins/stupid-neko-sub001/internal/platform/logger"
)

// ScheduleOptions builds the schedule that starts ProgressionSweepWorkflow for
// jobType every interval on taskQueue.
func ScheduleOptions(jobType, taskQueue string, every time.Duration) temporalsdkclient.ScheduleOptions {
	id := ScheduleID(jobType)
	return temporalsdkclient.ScheduleOptions{
		ID:      id,
		Spec:    temporalsdkclient.ScheduleSpec{Intervals: []temporalsdkclient.ScheduleIntervalSpec{{Every: every}}},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        id,
			Workflow:  WorkflowName,
			Args:      []interface{}{SweepInput{JobType: jobType}},
			TaskQueue: taskQueue,
		},
	}
}

// EnsureSchedules creates one schedule per job type with a positive interval
// and updates the interval of schedules that already exist.
func EnsureSchedules(ctx context.Context, log *logger.Logger, sc temporalsdkclient.ScheduleClient, taskQueue string, intervals map[string]time.Duration) error {
	if sc == nil {
		return fmt.Errorf("sweeps: schedule client not configured")
	}
	if log == nil {
		log = logger.Nop()
	}
	types := make([]string, 0, len(intervals))
	for t := range intervals {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, jobType := range types {
		every := intervals[jobType]
		if every <= 0 {
			continue
		}
		opts := ScheduleOptions(jobType, taskQueue, every)
		_, err := sc.Create(ctx, opts)
		if err == nil {
			log.Info("Temporal schedule created", "schedule_id", opts.ID, "every", every.String())
			continue
		}
		if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			return fmt.Errorf("sweeps: create schedule %s: %w", opts.ID, err)
		}
		spec := opts.Spec
		err = sc.GetHandle(ctx, opts.ID).Update(ctx, temporalsdkclient.ScheduleUpdateOptions{
			DoUpdate: func(in temporalsdkclient.ScheduleUpdateInput) (*temporalsdkclient.ScheduleUpdate, error) {
				sched := in.Description.Schedule
				sched.Spec = &spec
				return &temporalsdkclient.ScheduleUpdate{Schedule: &sched}, nil
			},
		})
		if err != nil {
			return fmt.Errorf("sweeps: update schedule %s: %w", opts.ID, err)
		}
		log.Info("Temporal schedule updated", "schedule_id", opts.ID, "every", every.String())
	}
	return nil
}
