/*
Default is a helper tool to print the default values to stdout.
Currently, it can print

- Hotspot Configuration File
- Probe URLs
- Executables
- DNS Monitor
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/telekom-mms/hotspot-login/internal/dnsmon"
	"github.com/telekom-mms/hotspot-login/internal/execs"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
)

// command line arguments.
const (
	HotspotConfig = "hotspot-config"
	ProbeURLs     = "probe-urls"
	Executables   = "executables"
	DNSMonitor    = "dns-monitor"
)

// printUsage prints usage.
func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage:\n"+
		"\tdefault %s\n"+
		"\tdefault %s\n"+
		"\tdefault %s\n"+
		"\tdefault %s\n",
		HotspotConfig, ProbeURLs, Executables, DNSMonitor,
	)
}

// printJSON prints v as json to stdout.
func printJSON(v any) {
	// convert to json
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return
	}

	// print to stdout
	fmt.Fprintf(os.Stdout, "%s\n", b)
}

func main() {
	// make sure command line argument is present
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "command line argument required\n")
		printUsage()
		return
	}

	switch os.Args[1] {

	case HotspotConfig:
		printJSON(hsconfig.NewConfig())

	case ProbeURLs:
		for _, u := range hsconfig.ProbeURLs {
			fmt.Fprintf(os.Stdout, "%s\n", u)
		}

	case Executables:
		printJSON(execs.NewConfig())

	case DNSMonitor:
		printJSON(dnsmon.NewConfig())

	default:
		// unknown, print error message to stderr
		fmt.Fprintf(os.Stderr, "%s unknown\n", os.Args[1])
		printUsage()
	}
}
