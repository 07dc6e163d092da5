package migbatch

import (
	"context"
	"io"
	"sync"
	"testing"
)

func init() {
	SetLogger(NewLogger(io.Discard, Error))
}

type fakeLine struct {
	kind StreamKind
	text string
}

func stdout(lines ...string) []fakeLine {
	out := make([]fakeLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, fakeLine{kind: Stdout, text: l})
	}
	return out
}

// fakeRunner replays lines to the handler then returns err
type fakeRunner struct {
	mu       sync.Mutex
	lines    []fakeLine
	err      BatchError
	commands []Command
}

func (r *fakeRunner) Run(ctx context.Context, command Command, onLine LineHandler) BatchError {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()
	for _, l := range r.lines {
		if err := onLine(l.kind, l.text); err != nil {
			return NewBatchError(ErrCodeProcessFailed, "command:%v aborted", command, err)
		}
	}
	return r.err
}

func (r *fakeRunner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// failingRepository fails SaveStepRun for the steps named in failSteps
type failingRepository struct {
	Repository
	failSteps map[string]bool
}

func (r *failingRepository) SaveStepRun(ctx context.Context, step *StepRun) BatchError {
	if r.failSteps[step.StepName] {
		return NewBatchError(ErrCodeDbFail, "save step:%v refused", step.StepName)
	}
	return r.Repository.SaveStepRun(ctx, step)
}

func newTestRun(t *testing.T, repo Repository, params map[string]interface{}) *JobRun {
	ctx := context.Background()
	jobParams := NewParameters(params)
	instance, err := repo.CreateJobInstance(ctx, "execute_migration", JobTypeMigration, jobParams)
	if err != nil {
		t.Fatalf("create job instance: %v", err)
	}
	run := &JobRun{
		JobInstanceId: instance.JobInstanceId,
		JobName:       instance.JobName,
		JobType:       JobTypeMigration,
		JobParams:     jobParams,
		Status:        STARTING,
		ExitStatus:    NewExitStatus(ExitUnknown),
	}
	if err = repo.SaveJobRun(ctx, run); err != nil {
		t.Fatalf("save job run: %v", err)
	}
	return run
}

func stepNames(run *JobRun) []string {
	names := make([]string, 0, len(run.StepRuns))
	for _, s := range run.StepRuns {
		names = append(names, s.StepName)
	}
	return names
}
