package scheduler

import (
	"time"

	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
)

// Config is the scheduler configuration.
type Config struct {
	PollInterval    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RenewalEnabled  bool
	RenewalInterval time.Duration
}

// Valid returns whether the scheduler configuration is valid.
func (c *Config) Valid() bool {
	if c == nil ||
		c.PollInterval <= 0 ||
		c.MaxRetries < 0 ||
		c.RetryBackoff < 0 ||
		c.RenewalInterval <= 0 {

		return false
	}
	return true
}

// NewConfig returns the scheduler configuration in the hotspot
// configuration.
func NewConfig(config *hsconfig.Config) *Config {
	return &Config{
		PollInterval:    config.PollInterval(),
		MaxRetries:      config.MaxRetries,
		RetryBackoff:    config.Backoff(),
		RenewalEnabled:  config.RenewalEnabled,
		RenewalInterval: config.Renewal(),
	}
}
