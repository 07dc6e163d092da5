package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chararch/migbatch"
	"github.com/chararch/migbatch/adapters/logger"
	"github.com/chararch/migbatch/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "migbatch",
	Short: "migbatch runs database migrations as tracked batch jobs",
	Long: `migbatch runs database migrations as tracked batch jobs.

Each migration is executed in a child process. Lines printed by the migration
containing "new_step:" open a new step, the other lines are recorded as warnings
of the current step. Runs, steps and warnings are stored in mysql.

Common workflows:

  Create the tables:
    migbatch init-db

  Run a migration:
    migbatch run 20230101120000

  Show pending and recent migrations:
    migbatch history

Configuration:
  Read from migbatch.yaml in the working directory, or the file given by --config.
  Every key can be overridden by an environment variable, db.host by MIGBATCH_DB_HOST.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(viper.New(), cfgFile); err != nil {
			return err
		}
		l, err := logger.NewZapLogger(logger.Options{
			Path:       cfg.Log.Path,
			Level:      cfg.Log.Level,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
		})
		if err != nil {
			return err
		}
		migbatch.SetLogger(l)
		migbatch.SetMaxRunningJobs(cfg.JobPoolSize)
		return nil
	},
}

// Execute runs the command line, ctx is canceled on interruption
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./migbatch.yaml)")
}
