package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

const pipelineSchemaDoc = `# Pipeline file format

A pipeline is a YAML document with a top-level ` + "`stages`" + ` list. Each
stage entry supports:

| Field             | Meaning                                              |
|-------------------|-------------------------------------------------------|
| ` + "`name`" + `             | Stage key; also the default ` + "`tasks_<name>`" + ` table name |
| ` + "`input_queue`" + `      | Table name to read from (omit for a source stage)    |
| ` + "`output_queue`" + `     | Table name to write to (omit for a sink stage)        |
| ` + "`batch_size`" + `       | Records pulled per task attempt                       |
| ` + "`timeout`" + `          | Visibility timeout: seconds, a Go duration, or a phrase like "in 5 minutes" |
| ` + "`unique_column`" + `    | Optional dedup column on insert                        |
| ` + "`max_size`" + `         | Optional backpressure cap on the input table           |
| ` + "`delete_on_ack`" + `    | Delete rows on ack instead of marking them terminal     |
| ` + "`wasm_module`" + `      | Path to a compiled ` + "`.wasm`" + ` stage function     |

## Example

` + "```yaml" + `
name: fanout
stages:
  - name: crawl
    output_queue: pages
    batch_size: 20
  - name: transform
    input_queue: pages
    output_queue: summaries
    batch_size: 20
    wasm_module: ./stages/transform.wasm
` + "```" + `
`

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Print the pipeline file format reference",
	RunE: func(cmd *cobra.Command, args []string) error {
		rendered, err := glamour.Render(pipelineSchemaDoc, "dark")
		if err != nil {
			return fmt.Errorf("render docs: %w", err)
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
