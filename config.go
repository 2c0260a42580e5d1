package trackflow

import (
	"fmt"

	"github.com/trackflow/trackflow/service/notification/memory"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON, YAML, environment variables, etc. The
// zero-value is useful, all nested fields inherit their package defaults.

type Config struct {
	Definitions  DefinitionsConfig `json:"definitions" yaml:"definitions"`
	Notification memory.Config     `json:"notification" yaml:"notification"`
}

type DefinitionsConfig struct {
	// BaseURL points at a directory of YAML workflow definitions loaded on
	// demand via Runtime.LoadDefinitions.
	BaseURL string `json:"baseURL" yaml:"baseURL"`
}

// DefaultConfig returns a Config populated with the package defaults.
// Callers may modify the returned struct before passing it to New via
// WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Notification: memory.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Notification.MaxRetries < 0 {
		return fmt.Errorf("notification.maxRetries must be >= 0")
	}
	if c.Notification.QueueBuffer < 0 {
		return fmt.Errorf("notification.queueBuffer must be >= 0")
	}
	return nil
}
