package migbatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestStepTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	step, err := tracker.Open(ctx, run, "Step A", MarkerStep)
	assert.Equal(t, nil, err)
	assert.NotEqual(t, int64(0), step.StepRunId)
	assert.Equal(t, RUNNING, step.Status)
	assert.Equal(t, ExitExecuting, step.ExitStatus.ExitCode)
	assert.Equal(t, []*StepRun{step}, run.StepRuns)

	tracker.AddWarning(ctx, step, "warn1")
	assert.Equal(t, nil, tracker.Complete(ctx, step))
	assert.Equal(t, COMPLETED, step.Status)
	assert.T(t, !step.EndTime.IsZero())

	// warnings are still accepted once completed
	tracker.AddWarning(ctx, step, "warn2")

	stored, _ := repo.FindStepRunsByJobRun(ctx, run.JobRunId)
	assert.Equal(t, 1, len(stored))
	assert.Equal(t, COMPLETED, stored[0].Status)
	assert.Equal(t, []string{"warn1", "warn2"}, stored[0].WarningReasons())
}

func TestStepTrackerCompleteOnlyFromRunning(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	step, _ := tracker.Open(ctx, run, "Step A", TaskStep)
	assert.Equal(t, nil, tracker.Fail(ctx, step, errors.New("boom")))
	assert.Equal(t, nil, tracker.Complete(ctx, step))
	assert.Equal(t, FAILED, step.Status)
	assert.Equal(t, "boom", step.ExitStatus.ExitDescription)
	assert.Equal(t, 1, len(step.FailureErrors()))
}

func TestStepTrackerFailAfterComplete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	step, _ := tracker.Open(ctx, run, "Step B", MarkerStep)
	_ = tracker.Complete(ctx, step)
	_ = tracker.Fail(ctx, step, errors.New("exit status 1"))

	stored, _ := repo.FindStepRunsByJobRun(ctx, run.JobRunId)
	assert.Equal(t, FAILED, stored[0].Status)
	assert.Equal(t, ExitFailed, stored[0].ExitStatus.ExitCode)
}

func TestStepTrackerStop(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	running, _ := tracker.Open(ctx, run, "Step A", MarkerStep)
	done, _ := tracker.Open(ctx, run, "Step B", MarkerStep)
	_ = tracker.Complete(ctx, done)

	assert.Equal(t, nil, tracker.Stop(ctx, running, "abandoned"))
	assert.Equal(t, nil, tracker.Stop(ctx, done, "abandoned"))
	assert.Equal(t, STOPPED, running.Status)
	assert.Equal(t, "abandoned", running.ExitStatus.ExitDescription)
	assert.Equal(t, COMPLETED, done.Status)
}

func TestStepTrackerHandle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	ok := tracker.Handle(ctx, run, &step{name: "ok", kind: TaskStep, handler: HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
		stepCtx.AddWarning(ctx, "noted")
		return nil
	})})
	assert.Equal(t, COMPLETED, ok.Status)
	assert.Equal(t, []string{"noted"}, ok.WarningReasons())

	failed := tracker.Handle(ctx, run, &step{name: "failed", kind: TaskStep, handler: HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
		return NewBatchError(ErrCodeGeneral, "nope")
	})})
	assert.Equal(t, FAILED, failed.Status)
	assert.T(t, strings.Contains(failed.ExitStatus.ExitDescription, "nope"))

	panicked := tracker.Handle(ctx, run, &step{name: "panicked", kind: TaskStep, handler: HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
		panic("100% broken")
	})})
	assert.Equal(t, FAILED, panicked.Status)
	assert.T(t, strings.Contains(panicked.ExitStatus.ExitDescription, "100% broken"))

	assert.Equal(t, []string{"ok", "failed", "panicked"}, stepNames(run))
}

func TestStepTrackerHandleOpenFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepository{Repository: NewMemoryRepository(), failSteps: map[string]bool{"Step A": true}}
	run := newTestRun(t, repo, nil)
	tracker := NewStepTracker(repo)

	called := false
	stepRun := tracker.Handle(ctx, run, &step{name: "Step A", kind: MarkerStep, handler: HandlerFunc(func(ctx context.Context, stepCtx *StepContext) BatchError {
		called = true
		return nil
	})})
	assert.T(t, !called)
	assert.Equal(t, FAILED, stepRun.Status)
	assert.T(t, IsBatchError(stepRun.FailureErrors()[0], ErrCodeDbFail))
}
