package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	launchUsername string
	launchParams   []string
)

var launchCmd = &cobra.Command{
	Use:   "launch [job_code]",
	Short: "Launch a batch job of the application by code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		for _, p := range launchParams {
			k, v, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return fmt.Errorf("invalid param %q, expected key=value", p)
			}
			params[k] = v
		}
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.launcher.Launch(cmd.Context(), args[0], params, launchUsername); err != nil {
				return err
			}
			cmd.Printf("Job %s finished\n", args[0])
			return nil
		})
	},
}

func init() {
	launchCmd.Flags().StringVarP(&launchUsername, "username", "u", "admin", "user launching the job")
	launchCmd.Flags().StringArrayVarP(&launchParams, "param", "p", nil, "job parameter as key=value, repeatable")
	rootCmd.AddCommand(launchCmd)
}
