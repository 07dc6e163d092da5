package migbatch

import (
	"context"
	"time"
)

// Job is a runnable job registered in an Engine. Start executes the job for run and records the outcome in run;
// an error is returned only when the outcome could not be persisted.
type Job interface {
	Name() string
	Type() string
	Start(ctx context.Context, run *JobRun) BatchError
}

// simpleJob runs a fixed list of steps in order and stops at the first step that does not complete
type simpleJob struct {
	name       string
	jobType    string
	steps      []Step
	repository Repository
	tracker    *StepTracker
}

func newSimpleJob(name string, jobType string, steps []Step, repository Repository) *simpleJob {
	return &simpleJob{
		name:       name,
		jobType:    jobType,
		steps:      steps,
		repository: repository,
		tracker:    NewStepTracker(repository),
	}
}

func (job *simpleJob) Name() string {
	return job.name
}

func (job *simpleJob) Type() string {
	return job.jobType
}

func (job *simpleJob) Start(ctx context.Context, run *JobRun) BatchError {
	if err := beginRun(ctx, job.repository, run); err != nil {
		return err
	}
	var last *StepRun
	for _, step := range job.steps {
		last = job.tracker.Handle(ctx, run, step)
		if last.Status != COMPLETED {
			DefaultLogger.Error(ctx, "step did not complete, job stops, jobName:%v, stepName:%v, status:%v", job.name, step.Name(), last.Status)
			break
		}
	}
	return finishRun(ctx, job.repository, run, last)
}

func beginRun(ctx context.Context, repository Repository, run *JobRun) BatchError {
	run.Status = RUNNING
	run.ExitStatus = NewExitStatus(ExitExecuting)
	run.StartTime = time.Now()
	if err := repository.SaveJobRun(ctx, run); err != nil {
		DefaultLogger.Error(ctx, "save job run failed, jobName:%v, jobRunId:%v, err:%v", run.JobName, run.JobRunId, err)
		return err
	}
	DefaultLogger.Info(ctx, "job run started, jobName:%v, jobRunId:%v", run.JobName, run.JobRunId)
	return nil
}

// finishRun gives run the status of its last step and persists it
func finishRun(ctx context.Context, repository Repository, run *JobRun, last *StepRun) BatchError {
	if last != nil {
		run.UpgradeStatus(last)
	} else {
		run.Status = COMPLETED
		run.ExitStatus = NewExitStatus(ExitNoop)
	}
	run.EndTime = time.Now()
	if err := repository.SaveJobRun(ctx, run); err != nil {
		DefaultLogger.Error(ctx, "save job run failed, jobName:%v, jobRunId:%v, err:%v", run.JobName, run.JobRunId, err)
		return err
	}
	DefaultLogger.Info(ctx, "job run finished, jobName:%v, jobRunId:%v, status:%v", run.JobName, run.JobRunId, run.Status)
	return nil
}
