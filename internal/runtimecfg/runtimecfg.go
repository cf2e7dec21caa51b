// Package runtimecfg loads process-wide runtime settings — store paths, log
// destination/level, default visibility timeout — layering environment
// variables over a TOML file over built-in defaults, the way the teacher
// layers its own daemon settings.
package runtimecfg

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	QueuesDBPath      string        `mapstructure:"queues_db_path"`
	TasksDBPath       string        `mapstructure:"tasks_db_path"`
	LogPath           string        `mapstructure:"log_path"`
	LogLevel          string        `mapstructure:"log_level"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	PoolWorkers       int           `mapstructure:"pool_workers"`
}

func defaults() Config {
	return Config{
		QueuesDBPath:      "queues.db",
		TasksDBPath:       "tasks.db",
		LogPath:           "",
		LogLevel:          "info",
		VisibilityTimeout: 300 * time.Second,
		PoolWorkers:       4,
	}
}

// fileSettings mirrors the TOML file's shape for BurntSushi/toml decoding;
// viper then owns layering the decoded values under defaults and under
// FLOWQ_* env var overrides.
type fileSettings struct {
	QueuesDBPath      string `toml:"queues_db_path"`
	TasksDBPath       string `toml:"tasks_db_path"`
	LogPath           string `toml:"log_path"`
	LogLevel          string `toml:"log_level"`
	VisibilityTimeout string `toml:"visibility_timeout"`
	PoolWorkers       int    `toml:"pool_workers"`
}

// Load builds a Config from (in ascending priority): built-in defaults, the
// TOML file at configPath (if non-empty and present), then FLOWQ_* env
// vars. configPath may be "" to skip the file layer entirely.
func Load(configPath string) (Config, error) {
	v := viper.New()

	d := defaults()
	v.SetDefault("queues_db_path", d.QueuesDBPath)
	v.SetDefault("tasks_db_path", d.TasksDBPath)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("visibility_timeout", d.VisibilityTimeout)
	v.SetDefault("pool_workers", d.PoolWorkers)

	v.SetEnvPrefix("FLOWQ")
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			var fs fileSettings
			if _, err := toml.DecodeFile(configPath, &fs); err != nil {
				return Config{}, fmt.Errorf("decode runtime config %s: %w", configPath, err)
			}
			overlay := map[string]interface{}{}
			if fs.QueuesDBPath != "" {
				overlay["queues_db_path"] = fs.QueuesDBPath
			}
			if fs.TasksDBPath != "" {
				overlay["tasks_db_path"] = fs.TasksDBPath
			}
			if fs.LogPath != "" {
				overlay["log_path"] = fs.LogPath
			}
			if fs.LogLevel != "" {
				overlay["log_level"] = fs.LogLevel
			}
			if fs.VisibilityTimeout != "" {
				overlay["visibility_timeout"] = fs.VisibilityTimeout
			}
			if fs.PoolWorkers != 0 {
				overlay["pool_workers"] = fs.PoolWorkers
			}
			if err := v.MergeConfigMap(overlay); err != nil {
				return Config{}, fmt.Errorf("merge runtime config %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat runtime config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal runtime config: %w", err)
	}
	return cfg, nil
}
