package orchestrator

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Manifest is a small, human-editable TOML sidecar recording a batch
// run's metadata alongside its JSONL status log: when it started, the
// flags it ran with, and where the status log lives.
type Manifest struct {
	StartedAt     time.Time `toml:"started_at"`
	Workers       int       `toml:"workers"`
	Fresh         bool      `toml:"fresh"`
	ErrorRetry    bool      `toml:"error_retry"`
	StatusLogFile string    `toml:"status_log_file"`
	OutputDir     string    `toml:"output_dir"`
}

// WriteManifest encodes m as TOML and writes it to path, truncating any
// prior manifest from an earlier run in the same output directory.
func WriteManifest(path string, m Manifest) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("orchestrator: creating manifest %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("orchestrator: encoding manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest decodes the TOML manifest at path.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, fmt.Errorf("orchestrator: reading manifest %s: %w", path, err)
	}
	return m, nil
}
