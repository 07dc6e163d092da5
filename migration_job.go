package migbatch

import (
	"context"
)

const (
	// CheckMigrationVersionStep is the first step of a MigrationJob
	CheckMigrationVersionStep = "check_migration_version"
	// NoMigrationVersionWarning is attached to the check step when migrationVersion is missing
	NoMigrationVersionWarning = "batch_jobs.execute_migration.check_migration_version.errors.no_migration_version"
)

// MigrationJob runs one migration in a child process and turns every marker line the migration prints into a new
// step of the run. Other stdout lines become warnings of the current step, stderr is ignored. The run ends with the
// status of its last step.
type MigrationJob struct {
	name       string
	repository Repository
	runner     ProcessRunner
	command    CommandTemplate
	tracker    *StepTracker
}

func NewMigrationJob(name string, repository Repository, runner ProcessRunner, command CommandTemplate) *MigrationJob {
	return &MigrationJob{
		name:       name,
		repository: repository,
		runner:     runner,
		command:    command,
		tracker:    NewStepTracker(repository),
	}
}

func (job *MigrationJob) Name() string {
	return job.name
}

func (job *MigrationJob) Type() string {
	return JobTypeMigration
}

func (job *MigrationJob) Start(ctx context.Context, run *JobRun) BatchError {
	if err := beginRun(ctx, job.repository, run); err != nil {
		return err
	}
	last := job.execute(ctx, run)
	return finishRun(ctx, job.repository, run, last)
}

// lineFold is the accumulator threaded through the output lines of the migration process
type lineFold struct {
	current *StepRun
}

func (job *MigrationJob) execute(ctx context.Context, run *JobRun) *StepRun {
	check := job.tracker.Handle(ctx, run, &step{
		name:    CheckMigrationVersionStep,
		kind:    CheckStep,
		handler: requireMigrationVersion(NoMigrationVersionWarning),
	})
	if check.Status != COMPLETED {
		return check
	}

	version, _ := run.JobParams.MigrationVersion()
	command := job.command.Build(version)
	DefaultLogger.Info(ctx, "execute migration, jobName:%v, version:%v, command:%v", job.name, version, command)

	fold := lineFold{current: check}
	err := job.runner.Run(ctx, command, func(kind StreamKind, line string) error {
		if kind != Stdout {
			DefaultLogger.Debug(ctx, "ignore %v line of migration:%v: %s", kind, version, line)
			return nil
		}
		var er BatchError
		fold, er = job.reduce(ctx, run, fold, line)
		if er != nil {
			return er
		}
		return nil
	})
	if err != nil {
		DefaultLogger.Error(ctx, "migration failed, jobName:%v, version:%v, step:%v, err:%v", job.name, version, fold.current.StepName, err)
		_ = job.tracker.Fail(ctx, fold.current, err)
	}
	return fold.current
}

// reduce applies one stdout line to fold. A marker opens the next step, which becomes current; any other
// non-empty line is a warning of the current step.
func (job *MigrationJob) reduce(ctx context.Context, run *JobRun, fold lineFold, line string) (lineFold, BatchError) {
	out, ok := Classify(line)
	if !ok {
		return fold, nil
	}
	switch out.Kind {
	case StepMarkerLine:
		next := job.tracker.Handle(ctx, run, NewMarkerStep(out.Text))
		fold.current = next
		if next.Status != COMPLETED {
			return fold, NewBatchError(ErrCodeStepOpenFailure, "step:%v ended with status:%v right after being opened", next.StepName, next.Status)
		}
	default:
		job.tracker.AddWarning(ctx, fold.current, out.Text)
	}
	return fold, nil
}

func requireMigrationVersion(warning string) HandlerFunc {
	return func(ctx context.Context, stepCtx *StepContext) BatchError {
		if _, ok := stepCtx.JobRun.JobParams.MigrationVersion(); !ok {
			stepCtx.AddWarning(ctx, warning)
			return NewBatchError(ErrCodeMissingParameter, "job parameter %v is required", ParamMigrationVersion)
		}
		return nil
	}
}
