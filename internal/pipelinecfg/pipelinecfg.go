// Package pipelinecfg loads a pipeline's DAG declaration from a YAML file:
// the set of stages, their queues, batch sizes, and timeouts, declared as
// data rather than Go code — the same way the teacher declares repository
// settings in its own YAML config rather than in flags or code.
package pipelinecfg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowqio/flowq/internal/humantime"
)

// StageConfig is one entry in a pipeline file's "stages" list.
type StageConfig struct {
	Name           string `yaml:"name"`
	InputQueue     string `yaml:"input_queue"`
	OutputQueue    string `yaml:"output_queue"`
	BatchSize      int    `yaml:"batch_size"`
	Timeout        string `yaml:"timeout"`
	UniqueColumn   string `yaml:"unique_column"`
	MaxSize        int    `yaml:"max_size"`
	DeleteOnAck    bool   `yaml:"delete_on_ack"`
	InputIDColumn  string `yaml:"input_id_column"`
	OutputIDColumn string `yaml:"output_id_column"`
	// WASMModule selects a compiled stage function module instead of a
	// native Go closure looked up by stage name (see internal/wasmstage).
	WASMModule string `yaml:"wasm_module"`

	// Timeout resolved to a Duration by Load; zero until then.
	TimeoutDuration time.Duration `yaml:"-"`
}

// Pipeline is the parsed contents of a pipeline YAML file.
type Pipeline struct {
	Name      string        `yaml:"name"`
	QueuesDB  string        `yaml:"queues_db"`
	TasksDB   string        `yaml:"tasks_db"`
	Stages    []StageConfig `yaml:"stages"`
}

// Load reads and parses the pipeline file at path, resolving every stage's
// Timeout string (plain seconds, Go duration syntax like "5m", or a human
// expression like "in 5 minutes") into TimeoutDuration.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses pipeline YAML already read into memory; Load is Parse over
// the contents of a file.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline config: %w", err)
	}
	if p.QueuesDB == "" {
		p.QueuesDB = "queues.db"
	}
	if p.TasksDB == "" {
		p.TasksDB = "tasks.db"
	}

	parser := humantime.New()
	for i := range p.Stages {
		s := &p.Stages[i]
		if s.Name == "" {
			return nil, fmt.Errorf("pipeline config: stage %d has no name", i)
		}
		if s.BatchSize <= 0 {
			s.BatchSize = 1
		}
		if s.Timeout == "" {
			continue
		}
		d, err := parser.ParseDuration(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name, err)
		}
		s.TimeoutDuration = d
	}
	return &p, nil
}

// Stage looks up a stage config by name.
func (p *Pipeline) Stage(name string) (StageConfig, bool) {
	for _, s := range p.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageConfig{}, false
}
