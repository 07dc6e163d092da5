package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chararch/migbatch/adapters/repository"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the tables storing runs, steps and warnings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := repository.CreateTables(cmd.Context(), db); err != nil {
			return err
		}
		cmd.Println("Tables created")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
