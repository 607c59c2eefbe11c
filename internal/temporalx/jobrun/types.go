package jobrun

const (
	WorkflowName    = "job_run"
	ActivityExecute = "job_run_execute"

	// ErrTypeJobFailed marks a terminal failure; Temporal must not retry it.
	ErrTypeJobFailed = "JobFailed"
	ErrTypeJobRetry  = "JobRetry"
)

type Input struct {
	JobID          string `json:"job_id"`
	MaxAttempts    int    `json:"max_attempts"`
	BackoffSeconds int    `json:"backoff_seconds"`
}

type ExecuteResult struct {
	JobID   string `json:"job_id"`
	Outcome string `json:"outcome"`
}

// WorkflowID is stable per job so a duplicate dispatch is rejected.
func WorkflowID(jobID string) string { return "job_run:" + jobID }
