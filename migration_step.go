package migbatch

import (
	"context"
)

// NoMigrationVersionExecuteWarning is attached to a migration step when migrationVersion is missing
const NoMigrationVersionExecuteWarning = "batch_jobs.execute_migration.execute.errors.no_migration_version"

// NewMigrationStep create a step running a whole migration as a single unit: every non-empty line printed by the
// process, on stdout or stderr, is kept as a warning of the step and no other step is created.
func NewMigrationStep(name string, runner ProcessRunner, command CommandTemplate) Step {
	return &step{
		name: name,
		kind: TaskStep,
		handler: &migrationStepHandler{
			runner:  runner,
			command: command,
		},
	}
}

type migrationStepHandler struct {
	runner  ProcessRunner
	command CommandTemplate
}

func (h *migrationStepHandler) Handle(ctx context.Context, stepCtx *StepContext) BatchError {
	version, ok := stepCtx.JobRun.JobParams.MigrationVersion()
	if !ok {
		stepCtx.AddWarning(ctx, NoMigrationVersionExecuteWarning)
		return NewBatchError(ErrCodeMissingParameter, "job parameter %v is required", ParamMigrationVersion)
	}
	return h.runner.Run(ctx, h.command.Build(version), func(kind StreamKind, line string) error {
		if line != "" {
			stepCtx.AddWarning(ctx, line)
		}
		return nil
	})
}
