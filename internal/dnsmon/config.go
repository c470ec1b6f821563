package dnsmon

import "path/filepath"

var (
	// ResolvConfs are the resolver configuration files that change when
	// joining another network: the file in /etc and the files managed by
	// systemd-resolved and NetworkManager
	ResolvConfs = []string{
		"/etc/resolv.conf",
		"/run/systemd/resolve/resolv.conf",
		"/run/NetworkManager/resolv.conf",
	}
)

// Config is a DNSMon configuration
type Config struct {
	ResolvConfs []string
}

// Valid returns whether the DNSMon config is valid
func (c *Config) Valid() bool {
	if c == nil || len(c.ResolvConfs) == 0 {
		return false
	}
	for _, f := range c.ResolvConfs {
		if !filepath.IsAbs(f) {
			return false
		}
	}
	return true
}

// isResolvConf returns whether file is one of the watched resolv.conf files
func (c *Config) isResolvConf(file string) bool {
	for _, f := range c.ResolvConfs {
		if filepath.Clean(f) == file {
			return true
		}
	}
	return false
}

// resolvConfDirs returns the directories of the resolv.conf files, the
// files themselves may be replaced
func (c *Config) resolvConfDirs() []string {
	seen := make(map[string]bool)
	dirs := []string{}
	for _, f := range c.ResolvConfs {
		dir := filepath.Dir(f)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// NewConfig returns a new DNSMon config
func NewConfig() *Config {
	return &Config{
		ResolvConfs: append([]string{}, ResolvConfs...),
	}
}
