package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
)

// askOne is survey.AskOne for testing
var askOne = survey.AskOne

// askSetup asks for the hotspot url and the credentials and sets them in
// config.
func askSetup(config *hsconfig.Config) error {
	if err := askOne(&survey.Input{
		Message: "Hotspot login page:",
		Default: config.HotspotURL,
	}, &config.HotspotURL, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	if err := askOne(&survey.Input{
		Message: "Username:",
		Default: config.Username,
	}, &config.Username, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	return askOne(&survey.Password{
		Message: "Password:",
	}, &config.Password, survey.WithValidator(survey.Required))
}

// newSetupCommand returns the setup command.
func newSetupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactively set the hotspot credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := hsconfig.Load(opts.config)
			if err != nil || !config.Valid() {
				opts.logger.WithError(err).WithField("file", opts.config).
					Warn("Setup could not load config, using default config")
				config = hsconfig.NewConfig()
			}

			fmt.Fprintln(cmd.OutOrStdout(), "=== Setup WiFi Auto Login ===")
			if err := askSetup(config); err != nil {
				return err
			}
			if !config.Valid() {
				return fmt.Errorf("invalid hotspot login page %q", config.HotspotURL)
			}
			if err := config.Save(opts.config); err != nil {
				return fmt.Errorf("could not save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", opts.config)
			return nil
		},
	}
}
