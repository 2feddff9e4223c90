// Package qconfig decodes the consumer CLI's on-disk configuration. It is
// only consumed by internal/taskqueuecli; the core store/queue/consumer
// packages never read configuration or environment variables themselves.
// The embedder owns the store connection (it builds the *queue.Queue before
// handing it to the CLI), so this package has no Redis settings of its own.
package qconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings an operator may want to set from a file instead
// of a flag.
type Config struct {
	Reaper ReaperConfig `yaml:"reaper"`
}

// ReaperConfig tunes the Ack Tracker's reaper loop.
type ReaperConfig struct {
	CheckInterval time.Duration `yaml:"check_interval"`
}

// Default returns a Config with the library's built-in defaults.
func Default() Config {
	return Config{
		Reaper: ReaperConfig{
			CheckInterval: 10 * time.Second,
		},
	}
}

// Load reads and decodes a YAML config file at path, starting from
// Default() so a partial file only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("qconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("qconfig: decode %s: %w", path, err)
	}
	return cfg, nil
}
