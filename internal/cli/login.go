package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/telekom-mms/hotspot-login/internal/daemon"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/prober"
	"github.com/telekom-mms/hotspot-login/internal/scheduler"
)

var (
	// ErrLoginFailed is returned if a login command failed.
	ErrLoginFailed = errors.New("login failed")
)

// persister returns a function that saves the login time in the config
// file of opts.
func persister(opts *options, config *hsconfig.Config) func(time.Time) error {
	return func(t time.Time) error {
		return hsconfig.SaveLastLogin(opts.config, t, config)
	}
}

// newLoginCommand returns the login command.
func newLoginCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in once if not connected or the renewal is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := daemon.LoadConfig(opts.config, opts.logger)
			if err != nil {
				return err
			}
			s := newService(config, opts.logger)
			sched := scheduler.New(scheduler.NewConfig(config),
				scheduler.State{LastLogin: config.LastLogin}, s, s,
				persister(opts, config),
				opts.logger.WithField("component", "scheduler"))

			o := sched.RunCycle(cmd.Context())
			out := cmd.OutOrStdout()
			switch {
			case o.LoggedIn:
				fmt.Fprintln(out, color.GreenString("Login successful!"))
				return nil
			case o.Verdict == prober.Connected && !o.ForceDue:
				fmt.Fprintln(out, color.GreenString("Already connected."))
				return nil
			}
			fmt.Fprintln(out, color.RedString("Login failed!"))
			return ErrLoginFailed
		},
	}
}

// newForceReconnectCommand returns the force-reconnect command.
func newForceReconnectCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "force-reconnect",
		Short: "Log in once regardless of the current connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := daemon.LoadConfig(opts.config, opts.logger)
			if err != nil {
				return err
			}
			s := newService(config, opts.logger)

			out := cmd.OutOrStdout()
			if err := s.Login(cmd.Context()); err != nil {
				fmt.Fprintln(out, color.RedString("Login failed!"))
				return fmt.Errorf("%w: %w", ErrLoginFailed, err)
			}
			if err := persister(opts, config)(now()); err != nil {
				opts.logger.WithError(err).Error("Login could not save login time")
			}
			fmt.Fprintln(out, color.GreenString("Login successful!"))
			return nil
		},
	}
}
