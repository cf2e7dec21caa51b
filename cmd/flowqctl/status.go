package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <pipeline.yaml>",
	Short: "Show each stage's ready/active/done counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openPipeline(ctx, args[0])
		if err != nil {
			return err
		}
		defer rt.Close(ctx)
		return printStatusTable(ctx, rt)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printStatusTable(ctx context.Context, rt *runtime) error {
	headerStyle := lipgloss.NewStyle().Bold(true)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	if termenv.ColorProfile() != termenv.Ascii {
		headerStyle = headerStyle.Foreground(lipgloss.Color("212"))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("STAGE", "READY", "ACTIVE", "DONE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, stage := range rt.driver.Stages() {
		ready, err := stage.IOQueue().SizeReady(ctx)
		if err != nil {
			return fmt.Errorf("stage %s: size_ready: %w", stage.Name(), err)
		}
		active, err := stage.TasksQueue().Active(ctx)
		if err != nil {
			return fmt.Errorf("stage %s: active: %w", stage.Name(), err)
		}
		done, err := stage.TasksQueue().DoneCount(ctx)
		if err != nil {
			return fmt.Errorf("stage %s: done: %w", stage.Name(), err)
		}
		t.Row(stage.Name(), fmt.Sprint(ready), fmt.Sprint(active), fmt.Sprint(done))
	}

	fmt.Println(t.Render())
	return nil
}
