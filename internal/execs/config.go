package execs

import "os/exec"

// default values
var (
	IP       = "ip"
	Iw       = "iw"
	Iwgetid  = "iwgetid"
	Iwconfig = "iwconfig"
)

// Config is executables configuration
type Config struct {
	IP       string
	Iw       string
	Iwgetid  string
	Iwconfig string
}

// Valid returns whether config is valid
func (c *Config) Valid() bool {
	if c == nil ||
		c.IP == "" ||
		c.Iw == "" ||
		c.Iwgetid == "" ||
		c.Iwconfig == "" {
		// invalid
		return false
	}
	return true
}

// CheckExecutables checks whether executables in config exist in the
// file system and are executable, returns the missing ones
func (c *Config) CheckExecutables() []string {
	var missing []string
	for _, f := range []string{
		c.IP, c.Iw, c.Iwgetid, c.Iwconfig,
	} {
		if _, err := exec.LookPath(f); err != nil {
			missing = append(missing, f)
		}
	}
	return missing
}

// NewConfig returns a new Config
func NewConfig() *Config {
	return &Config{
		IP:       IP,
		Iw:       Iw,
		Iwgetid:  Iwgetid,
		Iwconfig: Iwconfig,
	}
}
