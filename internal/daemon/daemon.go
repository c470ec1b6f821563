// Package daemon contains the hotspot login daemon.
package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/addrmon"
	"github.com/telekom-mms/hotspot-login/internal/cfgwatch"
	"github.com/telekom-mms/hotspot-login/internal/devmon"
	"github.com/telekom-mms/hotspot-login/internal/dnsmon"
	"github.com/telekom-mms/hotspot-login/internal/execs"
	"github.com/telekom-mms/hotspot-login/internal/hotspot"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/scheduler"
	"github.com/telekom-mms/hotspot-login/internal/sleepmon"
)

// monitor is a monitor that wakes up the scheduler.
type monitor interface {
	Start() error
	Stop()
}

// Daemon is used to run the daemon.
type Daemon struct {
	config   *Config
	hsconfig *hsconfig.Config
	log      log.FieldLogger

	service   *hotspot.Service
	scheduler *scheduler.Scheduler

	devmon   *devmon.DevMon
	addrmon  *addrmon.AddrMon
	sleepmon *sleepmon.SleepMon
	dnsmon   *dnsmon.DNSMon
	cfgwatch *cfgwatch.Watch

	// started monitors
	started []monitor

	// channels for shutdown
	done   chan struct{}
	closed chan struct{}
}

// LoadConfig loads the hotspot configuration from file. If the file cannot
// be loaded or the configuration is invalid, the default configuration is
// used. It only fails if the file is missing and cannot be created.
func LoadConfig(file string, logger log.FieldLogger) (*hsconfig.Config, error) {
	c, err := hsconfig.Load(file)
	if errors.Is(err, hsconfig.ErrWriteDefaults) {
		// nothing can be configured or saved
		return nil, err
	}
	if err != nil {
		logger.WithError(err).WithField("file", file).
			Warn("Daemon could not load config")
	}
	if !c.Valid() {
		logger.WithField("file", file).
			Warn("Daemon loaded invalid config, using default config")
		c = hsconfig.NewConfig()
	}
	return c, nil
}

// persistLogin stores the login time in the config file.
func (d *Daemon) persistLogin(t time.Time) error {
	return hsconfig.SaveLastLogin(d.config.Config, t, d.hsconfig)
}

// reload reloads the config file, returns nil if it cannot be used.
func (d *Daemon) reload() *scheduler.Config {
	if _, err := os.Stat(d.config.Config); err != nil {
		d.log.WithError(err).Warn("Daemon could not reload config")
		return nil
	}
	c, err := hsconfig.Load(d.config.Config)
	if err != nil {
		d.log.WithError(err).Warn("Daemon could not reload config")
		return nil
	}
	if !c.Valid() {
		d.log.Warn("Daemon reloaded invalid config, keeping current config")
		return nil
	}

	d.log.WithField("file", d.config.Config).Info("Daemon reloaded config")
	d.hsconfig = c
	d.service.SetConfig(c)
	return scheduler.NewConfig(c)
}

// handleDevMonUpdate handles a wireless link update.
func (d *Daemon) handleDevMonUpdate(u *devmon.Update) {
	d.log.WithFields(log.Fields{
		"device": u.Device,
		"add":    u.Add,
		"up":     u.Up,
	}).Debug("Daemon got wireless link update")
	if u.Add && u.Up {
		d.scheduler.Trigger(&scheduler.Trigger{Reason: "link up " + u.Device})
	}
}

// handleAddrMonUpdate handles a wireless address update.
func (d *Daemon) handleAddrMonUpdate(u *addrmon.Update) {
	d.log.WithFields(log.Fields{
		"address": u.Address.String(),
		"index":   u.Index,
		"add":     u.Add,
	}).Debug("Daemon got wireless address update")
	if u.Add {
		d.scheduler.Trigger(&scheduler.Trigger{Reason: "new address " + u.Address.IP.String()})
	}
}

// handleSleepMonEvent handles a suspend/resume event.
func (d *Daemon) handleSleepMonEvent(sleep bool) {
	d.log.WithField("sleep", sleep).Debug("Daemon got sleep monitor event")
	if !sleep {
		d.scheduler.Trigger(&scheduler.Trigger{Reason: "resume"})
	}
}

// handleDNSMonUpdate handles a resolver configuration update.
func (d *Daemon) handleDNSMonUpdate() {
	d.log.Debug("Daemon got resolver config update")
	d.scheduler.Trigger(&scheduler.Trigger{Reason: "resolver change"})
}

// handleConfigUpdate handles a config file update.
func (d *Daemon) handleConfigUpdate() {
	d.log.Debug("Daemon got config file update")
	d.scheduler.Trigger(&scheduler.Trigger{Reason: "config change", Reload: true})
}

// startMonitor starts m if enabled. A monitor that cannot be started only
// disables its wake ups.
func (d *Daemon) startMonitor(name string, enabled bool, m monitor) bool {
	if !enabled {
		return false
	}
	if err := m.Start(); err != nil {
		d.log.WithError(err).WithField("monitor", name).
			Warn("Daemon could not start monitor")
		return false
	}
	d.started = append(d.started, m)
	return true
}

// start starts the daemon main loop.
func (d *Daemon) start(ctx context.Context, cancel context.CancelFunc) {
	defer close(d.closed)
	defer func() {
		for _, m := range d.started {
			m.Stop()
		}
	}()

	// run scheduler
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		d.scheduler.Run(ctx)
	}()

	// channels of started monitors, nil channels block forever
	var links chan *devmon.Update
	var addrs chan *addrmon.Update
	var sleeps chan bool
	var dnsUpdates, cfgUpdates chan struct{}
	for _, m := range d.started {
		switch m {
		case d.devmon:
			links = d.devmon.Updates()
		case d.addrmon:
			addrs = d.addrmon.Updates()
		case d.sleepmon:
			sleeps = d.sleepmon.Events()
		case d.dnsmon:
			dnsUpdates = d.dnsmon.Updates()
		case d.cfgwatch:
			cfgUpdates = d.cfgwatch.Updates()
		}
	}

	// run main loop
	for {
		select {
		case u, ok := <-links:
			if !ok {
				d.log.Error("Daemon got unexpected close of link monitor")
				links = nil
				break
			}
			d.handleDevMonUpdate(u)

		case u, ok := <-addrs:
			if !ok {
				d.log.Error("Daemon got unexpected close of address monitor")
				addrs = nil
				break
			}
			d.handleAddrMonUpdate(u)

		case s, ok := <-sleeps:
			if !ok {
				d.log.Error("Daemon got unexpected close of sleep monitor")
				sleeps = nil
				break
			}
			d.handleSleepMonEvent(s)

		case _, ok := <-dnsUpdates:
			if !ok {
				d.log.Error("Daemon got unexpected close of DNS monitor")
				dnsUpdates = nil
				break
			}
			d.handleDNSMonUpdate()

		case _, ok := <-cfgUpdates:
			if !ok {
				d.log.Error("Daemon got unexpected close of config watcher")
				cfgUpdates = nil
				break
			}
			d.handleConfigUpdate()

		case <-d.done:
			// the scheduler finishes a running cycle first
			cancel()
			<-schedDone
			return
		}
	}
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	// set executables
	execs.SetExecutables(d.config.Executables)
	if missing := d.config.Executables.CheckExecutables(); len(missing) > 0 {
		d.log.WithField("missing", missing).
			Warn("Daemon could not find executables, network info may be incomplete")
	}

	if !d.hsconfig.HasCredentials() {
		d.log.WithField("file", d.config.Config).
			Warn("Daemon has no credentials, run setup first")
	}

	// start monitors
	d.startMonitor("link", d.config.LinkMonitor, d.devmon)
	d.startMonitor("address", d.config.AddressMonitor, d.addrmon)
	d.startMonitor("sleep", d.config.SleepMonitor, d.sleepmon)
	d.startMonitor("dns", d.config.DNSMonitor != nil, d.dnsmon)
	d.startMonitor("config", d.config.ConfigWatcher, d.cfgwatch)

	ctx, cancel := context.WithCancel(context.Background())
	go d.start(ctx, cancel)
	return nil
}

// Stop stops the daemon.
func (d *Daemon) Stop() {
	// stop daemon and wait for main loop termination
	close(d.done)
	<-d.closed
}

// NewDaemon returns a new Daemon with the hotspot configuration hsc.
func NewDaemon(config *Config, hsc *hsconfig.Config, logger log.FieldLogger) *Daemon {
	d := &Daemon{
		config:   config,
		hsconfig: hsc,
		log:      logger,

		service: hotspot.New(hsc, logger),

		devmon:   devmon.NewDevMon(logger.WithField("component", "devmon")),
		addrmon:  addrmon.NewAddrMon(logger.WithField("component", "addrmon")),
		sleepmon: sleepmon.NewSleepMon(logger.WithField("component", "sleepmon")),
		dnsmon:   dnsmon.NewDNSMon(config.DNSMonitor, logger.WithField("component", "dnsmon")),
		cfgwatch: cfgwatch.NewWatch(config.Config, logger.WithField("component", "cfgwatch")),

		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	d.scheduler = scheduler.New(scheduler.NewConfig(hsc),
		scheduler.State{LastLogin: hsc.LastLogin},
		d.service, d.service, d.persistLogin,
		logger.WithField("component", "scheduler"))
	d.scheduler.SetReload(d.reload)
	return d
}
