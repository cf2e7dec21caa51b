// Command flowqctl runs and inspects flowq pipelines declared in a YAML
// pipeline file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flowqctl",
	Short: "Run and inspect flowq job-pipeline DAGs",
	Long: `flowqctl drives a flowq pipeline declared in a YAML file: a set of
stages, each reading from an input queue, running a stage function, and
writing to an output queue, until no input remains unjoined to output.`,
	SilenceUsage: true,
}

var runtimeConfigPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&runtimeConfigPath, "config", "", "path to a flowq runtime TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flowqctl:", err)
		os.Exit(1)
	}
}
