package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chararch/migbatch"
	"github.com/chararch/migbatch/util"
)

func newRunCmd(use string, short string, jobName string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [migration_version]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				params, err := util.JsonString(map[string]interface{}{migbatch.ParamMigrationVersion: args[0]})
				if err != nil {
					return err
				}
				runId, err := a.engine.Start(cmd.Context(), jobName, params)
				if err != nil {
					return err
				}
				run, er := a.repo.FindJobRun(cmd.Context(), runId)
				if er != nil {
					return er
				}
				printRun(cmd, run)
				if run.Status != migbatch.COMPLETED {
					return fmt.Errorf("migration %v finished with status %v", args[0], run.Status)
				}
				return nil
			})
		},
	}
}

var runCmd = newRunCmd("run", "Run a migration, opening a step for each marker it prints", MigrationJobName)

var runStepCmd = newRunCmd("run-step", "Run a migration as a single step, recording all its output as warnings", MigrationStepJobName)

var restartCmd = &cobra.Command{
	Use:   "restart [job_run_id]",
	Short: "Run again the migration of a previous run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunId(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			runId, err := a.engine.Restart(cmd.Context(), id)
			if err != nil {
				return err
			}
			run, er := a.repo.FindJobRun(cmd.Context(), runId)
			if er != nil {
				return er
			}
			printRun(cmd, run)
			return nil
		})
	},
}

func printRun(cmd *cobra.Command, run *migbatch.JobRun) {
	if run == nil {
		return
	}
	cmd.Printf("Run %d of %s: %s\n", run.JobRunId, run.JobName, run.Status)
	if run.ExitStatus.ExitDescription != "" {
		cmd.Printf("  %s\n", run.ExitStatus.ExitDescription)
	}
	for _, step := range run.StepRuns {
		cmd.Printf("- %s [%s] %s\n", step.StepName, step.Kind, step.Status)
		for _, reason := range step.WarningReasons() {
			cmd.Printf("    %s\n", reason)
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd, runStepCmd, restartCmd)
}
