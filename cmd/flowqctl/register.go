package main

import (
	"github.com/flowqio/flowq/internal/ackqueue"
	"github.com/flowqio/flowq/internal/driver"
	"github.com/flowqio/flowq/internal/pipelinecfg"
)

func registerOptions(stage pipelinecfg.StageConfig) driver.RegisterOptions {
	aqOpts := ackqueue.Options{
		UniqueColumn: stage.UniqueColumn,
		Timeout:      stage.TimeoutDuration,
		MaxSize:      stage.MaxSize,
		DeleteOnAck:  stage.DeleteOnAck,
	}
	return driver.RegisterOptions{
		InputQueue:      stage.InputQueue,
		OutputQueue:     stage.OutputQueue,
		BatchSize:       stage.BatchSize,
		InputIDColumn:   stage.InputIDColumn,
		OutputIDColumn:  stage.OutputIDColumn,
		InputAQOptions:  aqOpts,
		OutputAQOptions: aqOpts,
	}
}
