package prober

import (
	"net/url"
	"time"
)

var (
	// Endpoints are the URLs used for probing, in order
	Endpoints = []string{
		"http://www.google.com/generate_204",
		"http://connectivity-check.ubuntu.com",
		"http://www.cloudflare.com",
	}

	// HTTPTimeout is the timeout for a single probe request
	HTTPTimeout = 5 * time.Second

	// PortalHints are substrings of redirect targets that indicate a
	// captive portal
	PortalHints = []string{"hotspot", "login", "captive", "portal"}
)

// Config is the configuration of the connectivity prober
type Config struct {
	Endpoints   []string
	HTTPTimeout time.Duration
	PortalHints []string
}

// Valid returns whether the prober configuration is valid
func (c *Config) Valid() bool {
	if c == nil ||
		len(c.Endpoints) == 0 ||
		c.HTTPTimeout <= 0 {

		return false
	}
	for _, e := range c.Endpoints {
		u, err := url.Parse(e)
		if err != nil || u.Host == "" {
			return false
		}
	}
	return true
}

// NewConfig returns a new default configuration for the prober
func NewConfig() *Config {
	return &Config{
		Endpoints:   append([]string(nil), Endpoints...),
		HTTPTimeout: HTTPTimeout,
		PortalHints: append([]string(nil), PortalHints...),
	}
}
