package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flowqio/flowq/internal/pipelinecfg"
)

var initCmd = &cobra.Command{
	Use:   "init <pipeline.yaml>",
	Short: "Interactively scaffold a new pipeline file",
	Long: `Walk through a short wizard describing a single-stage pipeline
and write the result as YAML. Running flowqctl init again against the same
file overwrites it; add further stages by editing the file by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInitWizard(args[0])
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInitWizard(outPath string) error {
	var (
		pipelineName   = "pipeline"
		stageName      = "stage1"
		inputQueue     = "in"
		outputQueue    = "out"
		batchSizeStr   = "10"
		timeoutStr     = "5m"
		uniqueColumn   string
		confirmWasm    bool
		wasmModulePath string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pipeline name").
				Value(&pipelineName).
				Validate(requireNonEmpty("pipeline name")),

			huh.NewInput().
				Title("Stage name").
				Description("The key other stages will join to via output/input queue names").
				Value(&stageName).
				Validate(requireNonEmpty("stage name")),

			huh.NewInput().
				Title("Input queue table").
				Value(&inputQueue).
				Validate(requireNonEmpty("input queue")),

			huh.NewInput().
				Title("Output queue table").
				Value(&outputQueue).
				Validate(requireNonEmpty("output queue")),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Batch size").
				Value(&batchSizeStr).
				Validate(requirePositiveInt),

			huh.NewInput().
				Title("Visibility timeout").
				Description(`A number of seconds, a Go duration ("90s"), or a phrase like "in 5 minutes"`).
				Value(&timeoutStr),

			huh.NewInput().
				Title("Unique column (optional)").
				Description("Leave blank for no dedup column").
				Value(&uniqueColumn),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Back this stage with a WASM module instead of a built-in?").
				Value(&confirmWasm),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(os.Stderr, "init canceled.")
			return nil
		}
		return err
	}

	if confirmWasm {
		wasmForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Path to compiled .wasm module").
				Value(&wasmModulePath).
				Validate(requireNonEmpty("wasm module path")),
		)).WithTheme(huh.ThemeDracula())
		if err := wasmForm.Run(); err != nil {
			return err
		}
	}

	batchSize, _ := strconv.Atoi(batchSizeStr)
	pipeline := pipelinecfg.Pipeline{
		Name:     pipelineName,
		QueuesDB: "queues.db",
		TasksDB:  "tasks.db",
		Stages: []pipelinecfg.StageConfig{{
			Name:         stageName,
			InputQueue:   inputQueue,
			OutputQueue:  outputQueue,
			BatchSize:    batchSize,
			Timeout:      timeoutStr,
			UniqueColumn: uniqueColumn,
			WASMModule:   wasmModulePath,
		}},
	}

	data, err := yaml.Marshal(pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func requirePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
