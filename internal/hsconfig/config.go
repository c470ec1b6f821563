// Package hsconfig contains the persisted hotspot login configuration.
package hsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// ErrWriteDefaults is returned by Load if the config file is missing and the
// default configuration cannot be written.
var ErrWriteDefaults = errors.New("could not write default config")

var (
	// configDir is the directory for the configuration.
	configDir = "/etc/wifi_auto_login"

	// ConfigFile is the default config file.
	ConfigFile = configDir + "/config.json"
)

// Default values.
var (
	// HotspotURL is the default hotspot login page.
	HotspotURL = "http://hotspot.padang.go.id"

	// CheckInterval is the poll interval of the daemon in seconds.
	CheckInterval = 30

	// MaxRetries is the number of login attempts per cycle.
	MaxRetries = 3

	// Timeout is the timeout of portal http requests in seconds.
	Timeout = 10

	// RenewalInterval is the forced renewal interval in seconds.
	RenewalInterval = 3 * 60 * 60

	// RenewalEnabled specifies whether forced renewal is enabled.
	RenewalEnabled = true

	// RetryBackoff is the wait time between failed login attempts in
	// seconds.
	RetryBackoff = 2

	// ProbeURLs are the endpoints used for connectivity checks.
	ProbeURLs = []string{
		"http://www.google.com/generate_204",
		"http://connectivity-check.ubuntu.com",
		"http://www.cloudflare.com",
	}

	// ProbeTimeout is the timeout of connectivity checks in seconds.
	ProbeTimeout = 5

	// UserAgent is the user agent sent to the hotspot.
	UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Config is the hotspot login configuration and login state.
type Config struct {
	HotspotURL      string     `json:"hotspot_url"`
	Username        string     `json:"username"`
	Password        string     `json:"password"`
	CheckInterval   int        `json:"check_interval"`
	MaxRetries      int        `json:"max_retries"`
	Timeout         int        `json:"timeout"`
	RenewalInterval int        `json:"renewal_interval"`
	RenewalEnabled  bool       `json:"renewal_enabled"`
	LastLogin       *time.Time `json:"last_login,omitempty"`

	RetryBackoff int      `json:"retry_backoff,omitempty"`
	ProbeURLs    []string `json:"probe_urls,omitempty"`
	ProbeTimeout int      `json:"probe_timeout,omitempty"`
	UserAgent    string   `json:"user_agent,omitempty"`
	Verbose      bool     `json:"verbose,omitempty"`
}

// Copy returns a copy of the configuration.
func (c *Config) Copy() *Config {
	n := *c
	if c.LastLogin != nil {
		t := *c.LastLogin
		n.LastLogin = &t
	}
	n.ProbeURLs = append([]string(nil), c.ProbeURLs...)
	return &n
}

// Valid returns whether the configuration is valid.
func (c *Config) Valid() bool {
	if c == nil ||
		c.HotspotURL == "" ||
		c.CheckInterval <= 0 ||
		c.MaxRetries < 0 ||
		c.Timeout <= 0 ||
		c.RenewalInterval <= 0 ||
		c.RetryBackoff < 0 ||
		c.ProbeTimeout <= 0 ||
		len(c.ProbeURLs) == 0 {

		return false
	}

	// renewal would fire every cycle otherwise
	if c.RenewalEnabled && c.RenewalInterval < c.CheckInterval {
		return false
	}

	if u, err := url.Parse(c.HotspotURL); err != nil || u.Host == "" {
		return false
	}
	for _, p := range c.ProbeURLs {
		if u, err := url.Parse(p); err != nil || u.Host == "" {
			return false
		}
	}
	return true
}

// HasCredentials returns whether username and password are set.
func (c *Config) HasCredentials() bool {
	return c != nil && c.Username != "" && c.Password != ""
}

// PollInterval returns the check interval as duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

// RequestTimeout returns the portal request timeout as duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Renewal returns the forced renewal interval as duration.
func (c *Config) Renewal() time.Duration {
	return time.Duration(c.RenewalInterval) * time.Second
}

// Backoff returns the retry backoff as duration.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Second
}

// ProbeRequestTimeout returns the probe timeout as duration.
func (c *Config) ProbeRequestTimeout() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

// fillDefaults sets supplementary settings missing in older config files.
func (c *Config) fillDefaults() {
	if c.RetryBackoff == 0 {
		c.RetryBackoff = RetryBackoff
	}
	if len(c.ProbeURLs) == 0 {
		c.ProbeURLs = append([]string(nil), ProbeURLs...)
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = ProbeTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = UserAgent
	}
}

// Save writes the configuration to file. The file is replaced atomically,
// so concurrent readers see either the old or the new contents.
func (c *Config) Save(file string) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(file)
	if err := osMkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(file)+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary config file: %w", err)
	}
	defer func() {
		// no-op after successful rename
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}

// osMkdirAll is os.MkdirAll for testing.
var osMkdirAll = os.MkdirAll

// Load loads the configuration from file. If the file does not exist, the
// default configuration is written to file and returned. If the file cannot
// be parsed, an empty configuration is returned together with the error.
func Load(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		c := NewConfig()
		if err := c.Save(file); err != nil {
			return c, fmt.Errorf("%w: %w", ErrWriteDefaults, err)
		}
		return c, nil
	}
	if err != nil {
		return &Config{}, err
	}

	c := NewConfig()
	if err := json.Unmarshal(b, c); err != nil {
		return &Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	c.fillDefaults()
	return c, nil
}

// LoadBestEffort loads the configuration from file for read-only use. It
// never writes the file; a missing, partially written or malformed file
// yields the default configuration, missing fields keep their defaults.
func LoadBestEffort(file string) *Config {
	c := NewConfig()
	b, err := os.ReadFile(file)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(b, c); err != nil {
		return NewConfig()
	}
	c.fillDefaults()
	return c
}

// SaveLastLogin stores the login time t in file. The file is read again
// before saving, so settings written by another process, e.g., the
// credentials, are kept. If the file is missing, cannot be used or lost the
// credentials of current, current is saved instead. The login time is also
// set in current.
func SaveLastLogin(file string, t time.Time, current *Config) error {
	c := NewConfig()
	b, err := os.ReadFile(file)
	if err == nil {
		err = json.Unmarshal(b, c)
		c.fillDefaults()
	}
	if err != nil || !c.Valid() ||
		(!c.HasCredentials() && current.HasCredentials()) {
		c = current.Copy()
	}
	c.LastLogin = &t
	current.LastLogin = &t
	return c.Save(file)
}

// NewConfig returns a new default configuration.
func NewConfig() *Config {
	return &Config{
		HotspotURL:      HotspotURL,
		CheckInterval:   CheckInterval,
		MaxRetries:      MaxRetries,
		Timeout:         Timeout,
		RenewalInterval: RenewalInterval,
		RenewalEnabled:  RenewalEnabled,
		RetryBackoff:    RetryBackoff,
		ProbeURLs:       append([]string(nil), ProbeURLs...),
		ProbeTimeout:    ProbeTimeout,
		UserAgent:       UserAgent,
	}
}
