package migbatch

import (
	"context"
	"errors"
	"testing"

	"github.com/bmizerany/assert"
)

func startMigration(t *testing.T, repo Repository, runner ProcessRunner, params map[string]interface{}) *JobRun {
	run := newTestRun(t, repo, params)
	job := NewMigrationJob("execute_migration", repo, runner, DefaultMigrationCommand())
	if err := job.Start(context.Background(), run); err != nil {
		t.Fatalf("start migration: %v", err)
	}
	return run
}

func TestMigrationJobOpensStepPerMarker(t *testing.T) {
	repo := NewMemoryRepository()
	runner := &fakeRunner{lines: stdout("new_step:Step A", "warn1", "new_step:Step B", "warn2")}
	run := startMigration(t, repo, runner, map[string]interface{}{"migrationVersion": "20230101120000"})

	assert.Equal(t, COMPLETED, run.Status)
	assert.Equal(t, []string{CheckMigrationVersionStep, "Step A", "Step B"}, stepNames(run))
	for _, s := range run.StepRuns {
		assert.Equal(t, COMPLETED, s.Status)
	}
	assert.Equal(t, CheckStep, run.StepRuns[0].Kind)
	assert.Equal(t, MarkerStep, run.StepRuns[1].Kind)
	assert.Equal(t, []string{"warn1"}, run.StepRuns[1].WarningReasons())
	assert.Equal(t, []string{"warn2"}, run.StepRuns[2].WarningReasons())

	assert.Equal(t, 1, runner.calls())
	assert.Equal(t, []string{"bin/console", "doctrine:migrations:execute", "-q", "20230101120000"}, runner.commands[0].Args)

	stored, err := repo.FindJobRun(context.Background(), run.JobRunId)
	assert.Equal(t, nil, err)
	assert.Equal(t, COMPLETED, stored.Status)
	assert.Equal(t, 3, len(stored.StepRuns))
	assert.Equal(t, []string{"warn2"}, stored.StepRuns[2].WarningReasons())
}

func TestMigrationJobProcessFailureFailsCurrentStep(t *testing.T) {
	repo := NewMemoryRepository()
	runner := &fakeRunner{
		lines: stdout("new_step:Step A", "warn1", "new_step:Step B", "warn2"),
		err:   NewBatchError(ErrCodeProcessFailed, "command:php exited with code 1", errors.New("exit status 1")),
	}
	run := startMigration(t, repo, runner, map[string]interface{}{"migrationVersion": "20230101120000"})

	assert.Equal(t, FAILED, run.Status)
	assert.Equal(t, COMPLETED, run.StepRuns[1].Status)
	stepB := run.StepRuns[2]
	assert.Equal(t, FAILED, stepB.Status)
	assert.Equal(t, 1, len(stepB.FailureErrors()))
	assert.T(t, IsBatchError(stepB.FailureErrors()[0], ErrCodeProcessFailed))
	assert.Equal(t, run.ExitStatus, stepB.ExitStatus)

	stored, _ := repo.FindJobRun(context.Background(), run.JobRunId)
	assert.Equal(t, FAILED, stored.Status)
	assert.Equal(t, FAILED, stored.StepRuns[2].Status)
	assert.Equal(t, []string{"warn2"}, stored.StepRuns[2].WarningReasons())
}

func TestMigrationJobMissingVersionNeverRunsProcess(t *testing.T) {
	repo := NewMemoryRepository()
	runner := &fakeRunner{lines: stdout("new_step:Step A")}
	run := startMigration(t, repo, runner, map[string]interface{}{"other": 1})

	assert.Equal(t, 0, runner.calls())
	assert.Equal(t, FAILED, run.Status)
	assert.Equal(t, []string{CheckMigrationVersionStep}, stepNames(run))
	assert.Equal(t, []string{NoMigrationVersionWarning}, run.StepRuns[0].WarningReasons())
	assert.T(t, IsBatchError(run.StepRuns[0].FailureErrors()[0], ErrCodeMissingParameter))
}

func TestMigrationJobNullVersionIsMissing(t *testing.T) {
	runner := &fakeRunner{}
	run := startMigration(t, NewMemoryRepository(), runner, map[string]interface{}{"migrationVersion": nil})
	assert.Equal(t, 0, runner.calls())
	assert.Equal(t, FAILED, run.Status)
}

func TestMigrationJobIgnoresStderr(t *testing.T) {
	runner := &fakeRunner{lines: []fakeLine{
		{kind: Stderr, text: "new_step:Hidden"},
		{kind: Stdout, text: "new_step:Step A"},
		{kind: Stderr, text: "PHP Deprecated: something"},
		{kind: Stdout, text: "warn1"},
	}}
	run := startMigration(t, NewMemoryRepository(), runner, map[string]interface{}{"migrationVersion": 20230101120000})

	assert.Equal(t, COMPLETED, run.Status)
	assert.Equal(t, []string{CheckMigrationVersionStep, "Step A"}, stepNames(run))
	assert.Equal(t, []string{"warn1"}, run.StepRuns[1].WarningReasons())
	assert.Equal(t, "20230101120000", runner.commands[0].Args[len(runner.commands[0].Args)-1])
}

func TestMigrationJobWarningsBeforeFirstMarker(t *testing.T) {
	runner := &fakeRunner{lines: stdout("preparing", "", "new_step:Step A")}
	run := startMigration(t, NewMemoryRepository(), runner, map[string]interface{}{"migrationVersion": "1"})

	assert.Equal(t, []string{"preparing"}, run.StepRuns[0].WarningReasons())
	assert.Equal(t, 0, len(run.StepRuns[1].Warnings))
}

func TestMigrationJobWithoutMarkers(t *testing.T) {
	runner := &fakeRunner{lines: stdout("done")}
	run := startMigration(t, NewMemoryRepository(), runner, map[string]interface{}{"migrationVersion": "1"})

	assert.Equal(t, COMPLETED, run.Status)
	assert.Equal(t, 1, len(run.StepRuns))
}

func TestMigrationJobStepOpenFailure(t *testing.T) {
	repo := &failingRepository{Repository: NewMemoryRepository(), failSteps: map[string]bool{"Step B": true}}
	runner := &fakeRunner{lines: stdout("new_step:Step A", "new_step:Step B", "warn-after")}
	run := startMigration(t, repo, runner, map[string]interface{}{"migrationVersion": "1"})

	assert.Equal(t, FAILED, run.Status)
	assert.Equal(t, []string{CheckMigrationVersionStep, "Step A", "Step B"}, stepNames(run))
	assert.Equal(t, COMPLETED, run.StepRuns[1].Status)
	assert.Equal(t, FAILED, run.StepRuns[2].Status)
	assert.Equal(t, 0, len(run.StepRuns[2].Warnings))
}
