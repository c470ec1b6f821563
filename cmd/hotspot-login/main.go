// Command hotspot-login logs in to wifi hotspots with captive portals.
package main

import "github.com/telekom-mms/hotspot-login/internal/cli"

func main() {
	cli.Main()
}
