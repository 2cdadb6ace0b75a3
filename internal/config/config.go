package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries environment-variable defaults. Flags override these; the
// env layer exists so cluster batch jobs can pin worker/marker conventions
// without repeating them on every invocation.
type Config struct {
	WorkerCommand string        `envconfig:"MOCAP_BATCH_WORKER_COMMAND" default:"mocap-pipeline"`
	SuccessMarker string        `envconfig:"MOCAP_BATCH_SUCCESS_MARKER" default:"results.pkl"`
	FailureMarker string        `envconfig:"MOCAP_BATCH_FAILURE_MARKER" default:"failed_attempts.log"`
	TaskTimeout   time.Duration `envconfig:"MOCAP_BATCH_TASK_TIMEOUT" default:"0s"`
	LogLevel      string        `envconfig:"MOCAP_BATCH_LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
