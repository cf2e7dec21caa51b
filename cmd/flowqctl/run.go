package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Run a pipeline to quiescence",
	Long: `Load the pipeline config, open its backing stores, run every stage
until no input remains unjoined to output, then print a final status table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openPipeline(ctx, args[0])
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		rt.log.Info("running pipeline to quiescence", "pipeline", rt.pipeline.Name)
		if err := rt.driver.RunUntilComplete(ctx); err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}
		return printStatusTable(ctx, rt)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
