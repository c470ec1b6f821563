package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/telekom-mms/hotspot-login/internal/hotspot"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/netinfo"
	"github.com/telekom-mms/hotspot-login/internal/prober"
)

var (
	// listInterfaces and currentNetwork for testing
	listInterfaces = netinfo.ListWirelessInterfaces
	currentNetwork = netinfo.CurrentNetwork
)

// verdictString returns the verdict as colored string.
func verdictString(v prober.Verdict) string {
	switch v {
	case prober.Connected:
		return color.GreenString(v.String())
	case prober.CaptivePortal:
		return color.YellowString(v.String())
	}
	return color.RedString(v.String())
}

// printStatus prints status to w.
func printStatus(w io.Writer, status *hotspot.Status) {
	line := func(name, format string, a ...any) {
		fmt.Fprintf(w, "%-16s %s\n", name+":", fmt.Sprintf(format, a...))
	}

	line("Connectivity", "%s", verdictString(status.Verdict))
	if status.FinalURL != "" && status.FinalURL != status.Endpoint {
		line("Redirected to", "%s", status.FinalURL)
	}
	line("Hotspot URL", "%s", status.HotspotURL)
	if status.HasCredentials {
		line("Credentials", "%s", color.GreenString("configured"))
	} else {
		line("Credentials", "%s", color.RedString("missing, run setup"))
	}

	// login and renewal
	if status.LastLogin == nil {
		line("Last login", "never")
	} else {
		line("Last login", "%s (%s ago)", status.LastLogin.Format(time.RFC3339),
			status.SinceLogin.Truncate(time.Second))
	}
	switch {
	case !status.RenewalEnabled:
		line("Forced renewal", "disabled")
	case status.LastLogin == nil:
		line("Forced renewal", "after first login")
	case status.UntilRenewal <= 0:
		line("Forced renewal", "%s", color.YellowString("due"))
	default:
		line("Forced renewal", "in %s", status.UntilRenewal.Truncate(time.Second))
	}

	// network
	if status.Network == nil {
		line("Interface", "%s", color.RedString(status.NetworkError))
	} else {
		printNetwork(line, status.Network)
	}
	if status.Resolver != nil {
		r := status.Resolver
		private := ""
		if r.Private {
			private = color.YellowString(" (private address)")
		}
		line("Resolver", "%s: %s -> %s in %s%s", r.Server, r.Host,
			strings.Join(r.Addresses, ", "), r.RTT.Round(time.Millisecond), private)
	} else if status.ResolverErr != "" {
		line("Resolver", "%s", color.RedString(status.ResolverErr))
	}
}

// printNetwork prints the network info with line.
func printNetwork(line func(string, string, ...any), info *netinfo.Info) {
	line("Interface", "%s", info.Interface)
	if !info.Connected {
		line("SSID", "%s", color.RedString("not connected"))
		return
	}
	line("SSID", "%s", info.SSID)
	if info.SignalLevel != nil {
		line("Signal level", "%d dBm", *info.SignalLevel)
	}
	if info.FrequencyGHz != nil {
		line("Frequency", "%g GHz", *info.FrequencyGHz)
	}
}

// newStatusCommand returns the status command.
func newStatusCommand(opts *options) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print connectivity, login and network status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// read only, the daemon may be writing the file
			config := hsconfig.LoadBestEffort(opts.config)
			s := newService(config, opts.logger)
			printStatus(cmd.OutOrStdout(), s.Status(cmd.Context(), now(), device))
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "interface", "i", "", "wireless `interface`")
	return cmd
}

// detectReport is the report of the detect command.
type detectReport struct {
	WifiInterfaces []string       `json:"wifi_interfaces"`
	CurrentNetwork *netinfo.Info  `json:"current_network"`
	IsHotspot      bool           `json:"is_hotspot"`
	Verdict        prober.Verdict `json:"verdict"`
}

// newDetectCommand returns the detect command.
func newDetectCommand(opts *options) *cobra.Command {
	var jsonOutput bool
	var device string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect wireless interfaces, the current network and hotspots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			report := &detectReport{Verdict: prober.Unreachable}

			devices, err := listInterfaces(ctx)
			if err != nil {
				opts.logger.WithError(err).Error("Detect could not list wireless interfaces")
			}
			report.WifiInterfaces = devices

			if device != "" || len(devices) > 0 {
				info, err := currentNetwork(ctx, device)
				if err != nil {
					opts.logger.WithError(err).Error("Detect could not get network info")
					info = &netinfo.Info{Interface: device}
				}
				report.CurrentNetwork = info
			}

			// only check for captive portals on connected networks
			if report.CurrentNetwork != nil && report.CurrentNetwork.Connected {
				s := newService(hsconfig.LoadBestEffort(opts.config), opts.logger)
				report.Verdict = s.Probe(ctx).Verdict
				report.IsHotspot = report.Verdict == prober.CaptivePortal
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			line := func(name, format string, a ...any) {
				fmt.Fprintf(out, "%-16s %s\n", name+":", fmt.Sprintf(format, a...))
			}
			fmt.Fprintln(out, "=== WiFi Network Information ===")
			line("WiFi interfaces", "%s", strings.Join(report.WifiInterfaces, ", "))
			if report.CurrentNetwork != nil {
				printNetwork(line, report.CurrentNetwork)
			}
			line("Connectivity", "%s", verdictString(report.Verdict))
			line("Hotspot", "%t", report.IsHotspot)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print report as JSON")
	cmd.Flags().StringVarP(&device, "interface", "i", "", "wireless `interface`")
	return cmd
}
