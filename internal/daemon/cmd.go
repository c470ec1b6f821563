package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Run is the main entry point for the daemon, it runs the daemon until an
// interrupt or terminate signal is received
func Run(config *Config, logger *log.Logger) error {
	if !config.Valid() {
		return errors.New("invalid daemon config")
	}

	// load hotspot config
	hsc, err := LoadConfig(config.Config, logger)
	if err != nil {
		return err
	}
	if hsc.Verbose || config.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	// catch interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	// start daemon
	daemon := NewDaemon(config, hsc, logger)
	if err := daemon.Start(); err != nil {
		return err
	}
	logger.WithField("config", config.Config).Info("Daemon started")

	<-ctx.Done()
	logger.Info("Daemon stopping")
	daemon.Stop()
	return nil
}
