package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var abandonCmd = &cobra.Command{
	Use:   "abandon [job_run_id]",
	Short: "Mark a run left running by a dead process as stopped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRunId(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.engine.Abandon(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Printf("Run %d abandoned\n", id)
			return nil
		})
	},
}

func parseRunId(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func init() {
	rootCmd.AddCommand(abandonCmd)
}
