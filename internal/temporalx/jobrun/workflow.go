package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow delivers one job. Temporal owns the retry schedule:
// backoff_seconds * 2^(attempt-1), up to max_attempts deliveries.
func Workflow(ctx workflow.Context, in Input) (ExecuteResult, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return ExecuteResult{}, fmt.Errorf("jobrun: missing job_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy:         RetryPolicy(in),
	})
	var out ExecuteResult
	err := workflow.ExecuteActivity(ctx, ActivityExecute, in.JobID).Get(ctx, &out)
	return out, err
}

func RetryPolicy(in Input) *temporal.RetryPolicy {
	backoff := time.Duration(in.BackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = 60 * time.Second
	}
	attempts := in.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &temporal.RetryPolicy{
		InitialInterval:        backoff,
		BackoffCoefficient:     2,
		MaximumInterval:        backoff * 64,
		MaximumAttempts:        int32(attempts),
		NonRetryableErrorTypes: []string{ErrTypeJobFailed},
	}
}
