package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chararch/migbatch"
	"github.com/chararch/migbatch/util"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Read or replace the parameters of the last instance of a job",
}

var paramsGetCmd = &cobra.Command{
	Use:   "get [job_name]",
	Short: "Print the parameters of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			params, err := a.helper.ParametersByJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(params.ToString())
			return nil
		})
	},
}

var paramsSetCmd = &cobra.Command{
	Use:   "set [job_name] [json]",
	Short: "Replace the parameters of a job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := migbatch.ParseParameters(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			ok, err := a.helper.SetParametersByJob(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %v has never been started", args[0])
			}
			return nil
		})
	},
}

var mappingGetCmd = &cobra.Command{
	Use:   "mapping-get [job_name]",
	Short: "Print the mapping parameter of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			mapping, err := a.helper.MappingByJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, e := util.JsonString(mapping)
			if e != nil {
				return e
			}
			cmd.Println(out)
			return nil
		})
	},
}

var mappingSetCmd = &cobra.Command{
	Use:   "mapping-set [job_name] [json]",
	Short: "Replace the mapping parameter of a job, the job must already have one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapping := map[string]interface{}{}
		if err := util.ParseJson(args[1], &mapping); err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			ok, err := a.helper.SetMappingByJob(cmd.Context(), args[0], mapping)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("job %v has no mapping parameter", args[0])
			}
			return nil
		})
	},
}

func init() {
	paramsCmd.AddCommand(paramsGetCmd, paramsSetCmd, mappingGetCmd, mappingSetCmd)
	rootCmd.AddCommand(paramsCmd)
}
