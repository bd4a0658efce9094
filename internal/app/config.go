package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ExperimentPath string // .hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// WorkerCount of 0 means scheduler.DefaultWorkers().
	WorkerCount int
	DryRun      bool
	// Only holds sweep filter expressions such as "cpu=atomic".
	Only []string

	// PrintRecords writes every run record to the app output as one JSON line.
	PrintRecords bool
	// ResultsDir, when set, receives artifacts.jsonl and runs.jsonl.
	ResultsDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	SocketIOURL       string
	SocketIONamespace string
	SocketIOInsecure  bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ExperimentPath == "" {
		return nil, errors.New("ExperimentPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("WorkerCount must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort out of range: %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
