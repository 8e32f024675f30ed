package sweeps

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ProgressionSweepWorkflow runs a single job type once. The schedule's overlap
// policy keeps runs of the same type from stacking.
func ProgressionSweepWorkflow(ctx workflow.Context, in SweepInput) (SweepResult, error) {
	jobType := strings.TrimSpace(in.JobType)
	if jobType == "" {
		return SweepResult{}, fmt.Errorf("sweeps: missing job_type")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var out SweepResult
	if err := workflow.ExecuteActivity(ctx, ActivityRunSweep, SweepInput{JobType: jobType}).Get(ctx, &out); err != nil {
		return SweepResult{JobType: jobType}, err
	}
	return out, nil
}
