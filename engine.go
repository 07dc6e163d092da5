package migbatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type Engine interface {
	Register(job Job) error
	Unregister(job Job)
	Start(ctx context.Context, jobName string, params string) (int64, error)
	StartAsync(ctx context.Context, jobName string, params string) (int64, error)
	Restart(ctx context.Context, jobRunId int64) (int64, error)
	RestartAsync(ctx context.Context, jobRunId int64) (int64, error)
	Abandon(ctx context.Context, jobRunId int64) error
}

func NewEngine(repository Repository) Engine {
	return &engine{
		jobRegistry: map[string]Job{},
		repository:  repository,
		tracker:     NewStepTracker(repository),
	}
}

type engine struct {
	mu          sync.RWMutex
	repository  Repository
	tracker     *StepTracker
	jobRegistry map[string]Job
}

// Register register job to migbatch
func (e *engine) Register(job Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.jobRegistry[job.Name()]; ok {
		return fmt.Errorf("job with name:%v has already been registered", job.Name())
	}
	e.jobRegistry[job.Name()] = job
	return nil
}

// Unregister unregister job to migbatch
func (e *engine) Unregister(job Job) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.jobRegistry, job.Name())
}

func (e *engine) lookup(jobName string) (Job, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	job, ok := e.jobRegistry[jobName]
	return job, ok
}

// Start start job by job name and params, it returns once the run is finished. The outcome of the run is
// reported by its persisted status, not by the returned error.
func (e *engine) Start(ctx context.Context, jobName string, params string) (int64, error) {
	return e.doStart(ctx, jobName, params, false)
}

// StartAsync start job by job name and params asynchronously
func (e *engine) StartAsync(ctx context.Context, jobName string, params string) (int64, error) {
	return e.doStart(ctx, jobName, params, true)
}

func (e *engine) doStart(ctx context.Context, jobName string, params string, async bool) (int64, error) {
	job, ok := e.lookup(jobName)
	if !ok {
		DefaultLogger.Error(ctx, "can not find job with name:%v", jobName)
		return -1, errors.Errorf("can not find job with name:%v", jobName)
	}
	jobParams, err := ParseParameters(params)
	if err != nil {
		DefaultLogger.Error(ctx, "parse job params error, jobName:%v, params:%v, err:%v", jobName, params, err)
		return -1, errors.Wrapf(err, "parse params of job:%v", jobName)
	}
	jobInstance, er := e.repository.FindJobInstance(ctx, jobName, jobParams)
	if er != nil {
		DefaultLogger.Error(ctx, "find JobInstance error, jobName:%v, params:%v, err:%v", jobName, params, er)
		return -1, er
	}
	if jobInstance == nil {
		jobInstance, er = e.repository.CreateJobInstance(ctx, jobName, job.Type(), jobParams)
		if er != nil {
			DefaultLogger.Error(ctx, "create JobInstance error, jobName:%v, params:%v, err:%v", jobName, params, er)
			return -1, er
		}
	}
	lastRun, er := e.repository.FindLastJobRunByInstance(ctx, jobInstance)
	if er != nil {
		DefaultLogger.Error(ctx, "find last JobRun error, jobName:%v, jobInstanceId:%v, err:%v", jobName, jobInstance.JobInstanceId, er)
		return -1, er
	}
	if lastRun != nil && lastRun.Status.IsRunning() {
		DefaultLogger.Error(ctx, "the job is in executing or exit from last execution abnormally, can not start, jobName:%v, jobRunId:%v, status:%v", jobName, lastRun.JobRunId, lastRun.Status)
		return -1, errors.Errorf("the job is in executing or exit from last execution abnormally, can not start, jobName:%v, jobRunId:%v, status:%v", jobName, lastRun.JobRunId, lastRun.Status)
	}

	run := &JobRun{
		JobInstanceId: jobInstance.JobInstanceId,
		JobName:       jobName,
		JobType:       job.Type(),
		JobParams:     jobParams,
		Status:        STARTING,
		ExitStatus:    NewExitStatus(ExitUnknown),
		StepRuns:      make([]*StepRun, 0),
		CreateTime:    time.Now(),
	}
	if er = e.repository.SaveJobRun(ctx, run); er != nil {
		DefaultLogger.Error(ctx, "save job run failed, jobName:%v, err:%v", jobName, er)
		return -1, er
	}
	runCtx := WithJobRunID(ctx, run.JobRunId)
	future := jobPool.Submit(runCtx, func() (interface{}, error) {
		if err := job.Start(runCtx, run); err != nil {
			return nil, err
		}
		return run.Status, nil
	})
	DefaultLogger.Info(runCtx, "job submitted, jobName:%v, jobRunId:%v", jobName, run.JobRunId)
	if async {
		return run.JobRunId, nil
	}
	if _, err = future.Get(); err != nil {
		return run.JobRunId, err
	}
	return run.JobRunId, nil
}

// Restart start a new run of the job of jobRunId with the same params
func (e *engine) Restart(ctx context.Context, jobRunId int64) (int64, error) {
	return e.doRestart(ctx, jobRunId, false)
}

// RestartAsync start a new run of the job of jobRunId with the same params asynchronously
func (e *engine) RestartAsync(ctx context.Context, jobRunId int64) (int64, error) {
	return e.doRestart(ctx, jobRunId, true)
}

func (e *engine) doRestart(ctx context.Context, jobRunId int64, async bool) (int64, error) {
	run, err := e.repository.FindJobRun(ctx, jobRunId)
	if err != nil {
		DefaultLogger.Error(ctx, "find JobRun by jobRunId error, jobRunId:%v, err:%v", jobRunId, err)
		return -1, err
	}
	if run == nil {
		DefaultLogger.Error(ctx, "can not find job run with id:%v", jobRunId)
		return -1, errors.Errorf("can not find job run with id:%v", jobRunId)
	}
	return e.doStart(ctx, run.JobName, run.JobParams.ToString(), async)
}

// Abandon stop a run left STARTING or RUNNING by a process that died, so that its job can be started again
func (e *engine) Abandon(ctx context.Context, jobRunId int64) error {
	run, err := e.repository.FindJobRun(ctx, jobRunId)
	if err != nil {
		DefaultLogger.Error(ctx, "find JobRun by jobRunId error, jobRunId:%v, err:%v", jobRunId, err)
		return err
	}
	if run == nil {
		return errors.Errorf("can not find job run with id:%v", jobRunId)
	}
	if !run.Status.IsRunning() {
		return errors.Errorf("job run:%v is not running, status:%v", jobRunId, run.Status)
	}
	for _, step := range run.StepRuns {
		if er := e.tracker.Stop(ctx, step, "abandoned"); er != nil {
			return er
		}
	}
	run.Status = STOPPED
	run.ExitStatus = NewExitStatus(ExitStopped).AddExitDescription("abandoned")
	run.EndTime = time.Now()
	if er := e.repository.SaveJobRun(ctx, run); er != nil {
		return er
	}
	DefaultLogger.Warn(ctx, "job run abandoned, jobName:%v, jobRunId:%v", run.JobName, jobRunId)
	return nil
}
