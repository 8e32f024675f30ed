// Package sweeps runs the progression background jobs as Temporal workflows
// started by one schedule per job type.
package sweeps

const (
	WorkflowName     = "progression_sweep"
	ActivityRunSweep = "progression_run_sweep"
)

type SweepInput struct {
	JobType string `json:"job_type"`
}

type SweepResult struct {
	JobType string         `json:"job_type"`
	Result  map[string]any `json:"result,omitempty"`
}

// ScheduleID names the schedule that drives jobType.
func ScheduleID(jobType string) string { return "progression-" + jobType }
