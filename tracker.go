package migbatch

import (
	"context"
	"fmt"
	"time"
)

// StepTracker owns the lifecycle of step runs: RUNNING, then COMPLETED, FAILED or STOPPED. Every transition is
// persisted through the repository.
type StepTracker struct {
	repository Repository
}

func NewStepTracker(repository Repository) *StepTracker {
	return &StepTracker{repository: repository}
}

// Open create a RUNNING step run in run and persist it
func (t *StepTracker) Open(ctx context.Context, run *JobRun, name string, kind StepKind) (*StepRun, BatchError) {
	now := time.Now()
	step := &StepRun{
		JobRunId:      run.JobRunId,
		JobInstanceId: run.JobInstanceId,
		JobName:       run.JobName,
		StepName:      name,
		Kind:          kind,
		Status:        RUNNING,
		ExitStatus:    NewExitStatus(ExitExecuting),
		Warnings:      make([]Warning, 0),
		CreateTime:    now,
		StartTime:     now,
	}
	run.StepRuns = append(run.StepRuns, step)
	if err := t.repository.SaveStepRun(ctx, step); err != nil {
		DefaultLogger.Error(ctx, "save step run failed, jobName:%v, stepName:%v, err:%v", run.JobName, name, err)
		return step, err
	}
	return step, nil
}

// AddWarning append a warning to step. It is accepted in any status and never fails: persistence errors are logged.
func (t *StepTracker) AddWarning(ctx context.Context, step *StepRun, reason string) {
	warning := Warning{
		Reason:     reason,
		Item:       map[string]interface{}{},
		CreateTime: time.Now(),
	}
	step.Warnings = append(step.Warnings, warning)
	if step.StepRunId == 0 {
		return
	}
	if err := t.repository.AddWarning(ctx, step, warning); err != nil {
		DefaultLogger.Error(ctx, "save warning failed, stepName:%v, stepRunId:%v, err:%v", step.StepName, step.StepRunId, err)
	}
}

// Complete mark a RUNNING step as COMPLETED, steps in another status are left untouched
func (t *StepTracker) Complete(ctx context.Context, step *StepRun) BatchError {
	if step.Status != RUNNING {
		return nil
	}
	step.Status = COMPLETED
	step.ExitStatus = NewExitStatus(ExitCompleted)
	step.EndTime = time.Now()
	return t.save(ctx, step)
}

// Fail mark step as FAILED and record cause. The current step of a run is failed even if it already completed: a
// process failure detected after the step was opened belongs to it.
func (t *StepTracker) Fail(ctx context.Context, step *StepRun, cause error) BatchError {
	step.Status = FAILED
	step.ExitStatus = NewExitStatus(ExitFailed)
	if cause != nil {
		step.ExitStatus = step.ExitStatus.AddExitDescription(cause.Error())
	}
	step.EndTime = time.Now()
	step.AddFailure(cause)
	return t.save(ctx, step)
}

// Stop mark a step that will never finish as STOPPED
func (t *StepTracker) Stop(ctx context.Context, step *StepRun, reason string) BatchError {
	if step.Status.IsTerminal() {
		return nil
	}
	step.Status = STOPPED
	step.ExitStatus = NewExitStatus(ExitStopped).AddExitDescription(reason)
	step.EndTime = time.Now()
	return t.save(ctx, step)
}

// Handle open a step run for s, execute its handler and close the step run. The returned step run is COMPLETED
// unless opening, executing or persisting it failed.
func (t *StepTracker) Handle(ctx context.Context, run *JobRun, s Step) *StepRun {
	stepRun, err := t.Open(ctx, run, s.Name(), s.Kind())
	if err != nil {
		_ = t.Fail(ctx, stepRun, err)
		return stepRun
	}
	DefaultLogger.Debug(ctx, "step started, jobName:%v, stepName:%v, kind:%v", run.JobName, s.Name(), s.Kind())
	if err = t.execute(ctx, run, stepRun, s); err != nil {
		DefaultLogger.Error(ctx, "step failed, jobName:%v, stepName:%v, err:%v", run.JobName, s.Name(), err)
		_ = t.Fail(ctx, stepRun, err)
		return stepRun
	}
	if err = t.Complete(ctx, stepRun); err != nil {
		stepRun.Status = FAILED
		stepRun.ExitStatus = NewExitStatus(ExitFailed).AddExitDescription(err.Error())
		stepRun.AddFailure(err)
	}
	return stepRun
}

func (t *StepTracker) execute(ctx context.Context, run *JobRun, stepRun *StepRun, s Step) (err BatchError) {
	defer func() {
		if r := recover(); r != nil {
			err = NewBatchError(ErrCodeGeneral, "panic in step:%v: %v", s.Name(), fmt.Sprint(r))
		}
	}()
	return s.Handler().Handle(ctx, &StepContext{JobRun: run, StepRun: stepRun, tracker: t})
}

func (t *StepTracker) save(ctx context.Context, step *StepRun) BatchError {
	if err := t.repository.SaveStepRun(ctx, step); err != nil {
		DefaultLogger.Error(ctx, "save step run failed, stepName:%v, status:%v, err:%v", step.StepName, step.Status, err)
		return err
	}
	return nil
}
