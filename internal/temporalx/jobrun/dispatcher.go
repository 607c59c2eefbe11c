package jobrun

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// Dispatcher starts one job_run workflow per committed job.
type Dispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string) *Dispatcher {
	return &Dispatcher{log: log.With("service", "TemporalDispatcher"), tc: tc, taskQueue: taskQueue}
}

func (d *Dispatcher) Dispatch(ctx context.Context, job *types.JobRun) error {
	if d == nil || d.tc == nil {
		return fmt.Errorf("temporal dispatcher not configured")
	}
	in := Input{JobID: job.ID.String(), MaxAttempts: job.MaxAttempts, BackoffSeconds: job.BackoffSeconds}
	run, err := d.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(in.JobID),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, WorkflowName, in)
	if err != nil {
		return fmt.Errorf("start workflow %s: %w", WorkflowID(in.JobID), err)
	}
	d.log.Debug("Job dispatched", "job_id", job.ID, "queue", job.Queue, "run_id", run.GetRunID())
	return nil
}
