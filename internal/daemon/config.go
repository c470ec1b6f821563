package daemon

import (
	"github.com/telekom-mms/hotspot-login/internal/dnsmon"
	"github.com/telekom-mms/hotspot-login/internal/execs"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
)

// Config is a daemon configuration
type Config struct {
	// Config is the hotspot configuration file
	Config  string
	Verbose bool

	Executables *execs.Config

	// DNSMonitor is the resolver monitor config, nil disables it
	DNSMonitor *dnsmon.Config

	// monitors that wake up the scheduler
	LinkMonitor    bool
	AddressMonitor bool
	SleepMonitor   bool
	ConfigWatcher  bool
}

// Valid returns whether config is valid
func (c *Config) Valid() bool {
	if c == nil ||
		c.Config == "" ||
		!c.Executables.Valid() ||
		(c.DNSMonitor != nil && !c.DNSMonitor.Valid()) {
		// invalid
		return false
	}
	return true
}

// NewConfig returns a new Config
func NewConfig() *Config {
	return &Config{
		Config:  hsconfig.ConfigFile,
		Verbose: false,

		Executables: execs.NewConfig(),
		DNSMonitor:  dnsmon.NewConfig(),

		LinkMonitor:    true,
		AddressMonitor: true,
		SleepMonitor:   true,
		ConfigWatcher:  true,
	}
}
