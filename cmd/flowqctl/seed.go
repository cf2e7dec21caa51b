package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowqio/flowq/internal/types"
)

var seedCmd = &cobra.Command{
	Use:   "seed <pipeline.yaml> <stage> <file.jsonl>",
	Short: "Load newline-delimited JSON records into a stage's input queue",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pipelinePath, stageName, jsonlPath := args[0], args[1], args[2]

		rt, err := openPipeline(ctx, pipelinePath)
		if err != nil {
			return err
		}
		defer rt.Close(ctx)

		stage := rt.driver.Stage(stageName)
		if stage == nil {
			return fmt.Errorf("no such stage %q in %s", stageName, pipelinePath)
		}

		f, err := os.Open(jsonlPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", jsonlPath, err)
		}
		defer f.Close()

		var recs []types.Record
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var raw map[string]interface{}
			if err := json.Unmarshal(line, &raw); err != nil {
				return fmt.Errorf("parse %s: %w", jsonlPath, err)
			}
			recs = append(recs, recordFromJSON(raw))
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read %s: %w", jsonlPath, err)
		}

		keys, err := stage.SetInputs(ctx, recs)
		if err != nil {
			return fmt.Errorf("seed stage %s: %w", stageName, err)
		}
		fmt.Printf("seeded %d record(s) into %s\n", len(keys), stageName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func recordFromJSON(raw map[string]interface{}) types.Record {
	rec := make(types.Record, len(raw))
	for k, v := range raw {
		rec[k] = valueFromJSON(v)
	}
	return rec
}

func valueFromJSON(v interface{}) types.Value {
	switch x := v.(type) {
	case nil:
		return types.Null()
	case float64:
		if x == float64(int64(x)) {
			return types.Int(int64(x))
		}
		return types.Float(x)
	case string:
		return types.Text(x)
	case bool:
		if x {
			return types.Int(1)
		}
		return types.Int(0)
	case []interface{}:
		items := make([]types.Value, len(x))
		for i, elem := range x {
			items[i] = valueFromJSON(elem)
		}
		return types.List(items...)
	default:
		return types.Null()
	}
}
