// Package cli contains the command line interface of hotspot-login.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/telekom-mms/hotspot-login/internal/daemon"
	"github.com/telekom-mms/hotspot-login/internal/hotspot"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/prober"
)

var (
	// Version is the version, to be set at compile time
	Version = "unknown"
)

// service is the hotspot login service used by the commands.
type service interface {
	Login(ctx context.Context) error
	AttemptLogin(ctx context.Context) bool
	Probe(ctx context.Context) *prober.Result
	Status(ctx context.Context, now time.Time, device string) *hotspot.Status
}

var (
	// newService returns the hotspot login service, for testing
	newService = func(config *hsconfig.Config, logger log.FieldLogger) service {
		return hotspot.New(config, logger)
	}

	// runDaemon is daemon.Run for testing
	runDaemon = daemon.Run

	// now is time.Now for testing
	now = time.Now
)

// options are the global command line options.
type options struct {
	config  string
	verbose bool
	logger  *log.Logger
}

// setupLogger configures the logger.
func (o *options) setupLogger(stderr io.Writer) {
	o.logger.SetOutput(stderr)
	o.logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if o.verbose {
		o.logger.SetLevel(log.DebugLevel)
	}
}

// NewRootCommand returns the root command.
func NewRootCommand() *cobra.Command {
	opts := &options{logger: log.StandardLogger()}
	rootCmd := &cobra.Command{
		Use:   "hotspot-login",
		Short: "hotspot-login logs in to wifi hotspots with captive portals",
		Long: "hotspot-login detects captive portals of wifi hotspots, logs in " +
			"with the stored credentials and keeps the login alive.",
		Args:          cobra.NoArgs,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.setupLogger(cmd.ErrOrStderr())
		},
	}
	rootCmd.SetVersionTemplate("{{ .Version }}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(
		&opts.config,
		"config",
		"c",
		hsconfig.ConfigFile,
		"set config `file`",
	)
	flags.BoolVarP(
		&opts.verbose,
		"verbose",
		"v",
		false,
		"enable verbose output",
	)

	rootCmd.AddCommand(
		newSetupCommand(opts),
		newLoginCommand(opts),
		newForceReconnectCommand(opts),
		newDaemonCommand(opts),
		newStatusCommand(opts),
		newDetectCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// newDaemonCommand returns the daemon command.
func newDaemonCommand(opts *options) *cobra.Command {
	var noMonitors bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run as daemon and keep the hotspot login alive",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			config := daemon.NewConfig()
			config.Config = opts.config
			config.Verbose = opts.verbose
			if noMonitors {
				config.LinkMonitor = false
				config.AddressMonitor = false
				config.SleepMonitor = false
				config.DNSMonitor = nil
			}
			return runDaemon(config, opts.logger)
		},
	}
	cmd.Flags().BoolVar(
		&noMonitors,
		"no-monitors",
		false,
		"disable link, address, sleep and DNS monitoring, only poll",
	)
	return cmd
}

// newVersionCommand returns the version command.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

// Execute runs the command line interface with args and returns the exit
// code.
func Execute(args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// Main is the main entry point of the command line interface.
func Main() {
	os.Exit(Execute(os.Args[1:]))
}
