// Package config handles loading and managing conmon's application configuration.
package config

import (
	"time"

	"github.com/phrazzld/conmon/internal/logutil"
)

// Configuration constants
const (
	// AppName is used for XDG config paths
	AppName = "conmon"

	// DefaultStoreBackend selects the Store adapter used by the orchestrator.
	DefaultStoreBackend = "postgres"

	// DefaultCheckGeneratorMaxAttempts bounds the self-improvement retry loop.
	DefaultCheckGeneratorMaxAttempts = 2

	// DefaultSandboxTimeout caps wall-clock time for a custom predicate.
	DefaultSandboxTimeout = 2 * time.Second

	// DefaultWorkerCount bounds orchestrator concurrency absent an explicit flag.
	DefaultWorkerCount = 8

	// DefaultStatusLogFile is the durable JSONL status log path, relative to OutputDir.
	DefaultStatusLogFile = "batch_status.jsonl"
)

// StoreConfig configures the Result Writer's persistence backend.
type StoreConfig struct {
	// Backend selects "postgres" or "csv".
	Backend string `mapstructure:"backend" toml:"backend"`
	// DSN is the database connection string, used when Backend is "postgres".
	DSN string `mapstructure:"dsn" toml:"dsn"`
	// CSVDir is the directory holding current.csv/history.csv, used when Backend is "csv".
	CSVDir string `mapstructure:"csv_dir" toml:"csv_dir"`
}

// SchemaConfig locates the YAML connector/resource schema documents consumed
// by the Schema Compiler.
type SchemaConfig struct {
	// Dir is a directory of *.yaml schema documents, one per connector.
	Dir string `mapstructure:"dir" toml:"dir"`
}

// GeneratorConfig tunes the Check Generator's LLM-assisted self-improvement loop.
type GeneratorConfig struct {
	MaxAttempts  int    `mapstructure:"max_attempts" toml:"max_attempts"`
	DefaultModel string `mapstructure:"default_model" toml:"default_model"`
}

// OrchestratorConfig tunes the batch orchestrator's worker pool and resume behavior.
type OrchestratorConfig struct {
	Workers       int    `mapstructure:"workers" toml:"workers"`
	StatusLogFile string `mapstructure:"status_log_file" toml:"status_log_file"`
}

// SandboxConfig bounds the custom-predicate sandbox used by the Comparison Engine.
type SandboxConfig struct {
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// AppConfig holds configuration settings loaded from config files, env vars, and flags.
type AppConfig struct {
	LogLevel  logutil.LogLevel `mapstructure:"log_level" toml:"log_level"`
	Verbose   bool             `mapstructure:"verbose" toml:"verbose"`
	UseColors bool             `mapstructure:"use_colors" toml:"use_colors"`

	AuditLogEnabled bool   `mapstructure:"audit_log_enabled" toml:"audit_log_enabled"`
	AuditLogFile    string `mapstructure:"audit_log_file" toml:"audit_log_file"`

	Store        StoreConfig        `mapstructure:"store" toml:"store"`
	Schema       SchemaConfig       `mapstructure:"schema" toml:"schema"`
	Generator    GeneratorConfig    `mapstructure:"generator" toml:"generator"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" toml:"orchestrator"`
	Sandbox      SandboxConfig      `mapstructure:"sandbox" toml:"sandbox"`
}

// DefaultConfig returns a new AppConfig instance with default values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		LogLevel:  logutil.InfoLevel,
		UseColors: true,
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
		},
		Generator: GeneratorConfig{
			MaxAttempts: DefaultCheckGeneratorMaxAttempts,
		},
		Orchestrator: OrchestratorConfig{
			Workers:       DefaultWorkerCount,
			StatusLogFile: DefaultStatusLogFile,
		},
		Sandbox: SandboxConfig{
			Timeout: DefaultSandboxTimeout,
		},
	}
}
