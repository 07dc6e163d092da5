package migbatch

import (
	"context"
)

// Repository persists job instances, job runs and step runs. Implementations must support concurrent use by
// several JobRuns.
type Repository interface {
	CreateJobInstance(ctx context.Context, jobName string, jobType string, jobParams Parameters) (*JobInstance, BatchError)
	UpdateJobInstance(ctx context.Context, instance *JobInstance) BatchError
	FindJobInstance(ctx context.Context, jobName string, jobParams Parameters) (*JobInstance, BatchError)
	FindLastJobInstanceByName(ctx context.Context, jobName string) (*JobInstance, BatchError)

	// SaveJobRun inserts the run when its id is zero, updates it otherwise
	SaveJobRun(ctx context.Context, run *JobRun) BatchError
	FindJobRun(ctx context.Context, jobRunId int64) (*JobRun, BatchError)
	FindLastJobRunByInstance(ctx context.Context, instance *JobInstance) (*JobRun, BatchError)
	// FindJobRunsByType returns runs of the job type, most recently created first, without their step runs
	FindJobRunsByType(ctx context.Context, jobType string) ([]*JobRun, BatchError)
	// FindJobRunsByParameter returns runs of the job type whose parameter key loosely equals value, most recently created first
	FindJobRunsByParameter(ctx context.Context, jobType string, key string, value string) ([]*JobRun, BatchError)

	// SaveStepRun inserts the step when its id is zero, updates it otherwise. Warnings are persisted by AddWarning.
	SaveStepRun(ctx context.Context, step *StepRun) BatchError
	AddWarning(ctx context.Context, step *StepRun, warning Warning) BatchError
	FindStepRunsByJobRun(ctx context.Context, jobRunId int64) ([]*StepRun, BatchError)
}
