package jobrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	"github.com/yungbote/coursegen-backend/internal/data/repos/testutil"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/jobs/runtime"
	"github.com/yungbote/coursegen-backend/internal/jobs/worker"
	"github.com/yungbote/coursegen-backend/internal/pkg/dbctx"
)

func TestWorkflowRetriesUntilSuccess(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (ExecuteResult, error) {
		calls++
		if calls < 3 {
			return ExecuteResult{JobID: jobID, Outcome: "retry"}, temporal.NewApplicationError("backend timeout", ErrTypeJobRetry)
		}
		return ExecuteResult{JobID: jobID, Outcome: "succeeded"}, nil
	}, activity.RegisterOptions{Name: ActivityExecute})

	env.ExecuteWorkflow(Workflow, Input{JobID: "j1", MaxAttempts: 3, BackoffSeconds: 60})
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow not completed")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestWorkflowStopsOnTerminalFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (ExecuteResult, error) {
		calls++
		return ExecuteResult{JobID: jobID, Outcome: "failed"}, temporal.NewNonRetryableApplicationError("bad payload", ErrTypeJobFailed, nil)
	}, activity.RegisterOptions{Name: ActivityExecute})

	env.ExecuteWorkflow(Workflow, Input{JobID: "j1", MaxAttempts: 3, BackoffSeconds: 60})
	if env.GetWorkflowError() == nil {
		t.Fatalf("expected workflow error")
	}
	if calls != 1 {
		t.Fatalf("terminal failure must not retry, calls=%d", calls)
	}
}

func TestRetryPolicyMatchesQueueBackoff(t *testing.T) {
	p := RetryPolicy(Input{MaxAttempts: 4, BackoffSeconds: 30})
	if p.InitialInterval != 30*time.Second || p.BackoffCoefficient != 2 || p.MaximumAttempts != 4 {
		t.Fatalf("policy: %+v", p)
	}
	d := RetryPolicy(Input{})
	if d.InitialInterval != time.Minute || d.MaximumAttempts != 3 {
		t.Fatalf("defaults: %+v", d)
	}
}

type stubHandler struct {
	err error
}

func (stubHandler) Type() string { return "q" }

func (h stubHandler) Run(jc *runtime.Context) error { return h.err }

func newActivities(t *testing.T, h runtime.Handler) (*Activities, repos.JobRunRepo, *types.JobRun) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}
	exec := worker.NewExecutor(db, log, repo, reg, nil, time.Minute)
	job := testutil.SeedJob(t, context.Background(), db, "q", types.JobStatusQueued, time.Now())
	if err := db.Model(job).Update("dispatcher", types.JobDispatcherTemporal).Error; err != nil {
		t.Fatalf("update dispatcher: %v", err)
	}
	return &Activities{Log: log, Jobs: repo, Exec: exec}, repo, job
}

func TestActivityExecutesJob(t *testing.T) {
	acts, repo, job := newActivities(t, stubHandler{})
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ActivityExecute})

	val, err := env.ExecuteActivity(ActivityExecute, job.ID.String())
	if err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	var res ExecuteResult
	if err := val.Get(&res); err != nil || res.Outcome != string(worker.OutcomeSucceeded) {
		t.Fatalf("result=%+v err=%v", res, err)
	}
	if got, _ := repo.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID); got != nil {
		t.Fatalf("job should be removed after success")
	}
	// redelivery of a removed job is a no-op
	val, err = env.ExecuteActivity(ActivityExecute, job.ID.String())
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	_ = val.Get(&res)
	if res.Outcome != "skipped" {
		t.Fatalf("redelivery outcome=%s", res.Outcome)
	}
}

func TestActivityPermanentFailureIsNonRetryable(t *testing.T) {
	acts, repo, job := newActivities(t, stubHandler{err: runtime.Permanent(errors.New("course missing"))})
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Execute, activity.RegisterOptions{Name: ActivityExecute})

	_, err := env.ExecuteActivity(ActivityExecute, job.ID.String())
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || !appErr.NonRetryable() || appErr.Type() != ErrTypeJobFailed {
		t.Fatalf("expected non-retryable JobFailed, got %v", err)
	}
	got, _ := repo.GetByID(dbctx.Context{Ctx: context.Background()}, job.ID)
	if got == nil || got.Status != types.JobStatusFailed {
		t.Fatalf("job row: %+v", got)
	}
}
