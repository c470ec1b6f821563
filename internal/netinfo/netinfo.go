// Package netinfo contains network diagnostics of wireless interfaces.
package netinfo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/telekom-mms/hotspot-login/internal/execs"
	"github.com/vishvananda/netlink"
)

// ErrNoInterface is returned if no wireless interface exists.
var ErrNoInterface = errors.New("no wireless interface found")

var (
	// sysClassNet is the sysfs directory of network devices.
	sysClassNet = "/sys/class/net"

	// netlinkLinkList is netlink.LinkList for testing.
	netlinkLinkList = netlink.LinkList

	ipLinkRegexp   = regexp.MustCompile(`^\d+:\s+(wl\w+):`)
	signalRegexp   = regexp.MustCompile(`Signal level=(-?\d+)`)
	frequencyRegex = regexp.MustCompile(`Frequency[=:]([\d.]+)`)
)

// Info is the current network of a wireless interface.
type Info struct {
	Interface    string   `json:"interface"`
	SSID         string   `json:"ssid"`
	Connected    bool     `json:"connected"`
	SignalLevel  *int     `json:"signal_level,omitempty"`
	FrequencyGHz *float64 `json:"frequency,omitempty"`
}

// IsWireless returns whether device is a wireless device.
func IsWireless(device string) bool {
	if _, err := os.Stat(filepath.Join(sysClassNet, device, "wireless")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(sysClassNet, device, "phy80211")); err == nil {
		return true
	}
	return false
}

// listFromIPLink returns the wireless interfaces in the "ip link show" output.
func listFromIPLink(output []byte) []string {
	var devices []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if m := ipLinkRegexp.FindStringSubmatch(scanner.Text()); m != nil {
			devices = append(devices, m[1])
		}
	}
	return devices
}

// ListWirelessInterfaces returns the names of all wireless interfaces.
func ListWirelessInterfaces(ctx context.Context) ([]string, error) {
	links, err := netlinkLinkList()
	if err == nil {
		var devices []string
		for _, l := range links {
			name := l.Attrs().Name
			if IsWireless(name) {
				devices = append(devices, name)
			}
		}
		return devices, nil
	}

	// netlink not available, parse ip output
	r, err := execs.RunIPLinkShow(ctx)
	if err != nil {
		return nil, err
	}
	if !r.Success() {
		return nil, errors.New("ip link show failed: " +
			strings.TrimSpace(string(r.Stderr)))
	}
	return listFromIPLink(r.Output), nil
}

// parseIwInfoSSID returns the ssid in the "iw dev <device> info" output.
func parseIwInfoSSID(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "ssid" {
			return strings.Join(fields[1:], " ")
		}
	}
	return ""
}

// querySSID returns the ssid of device. It uses iwgetid and falls back to
// iw if iwgetid is not available.
func querySSID(ctx context.Context, device string) (*execs.Result, error) {
	r, err := execs.RunIwgetid(ctx, device)
	if err == nil {
		return r, nil
	}

	r, err = execs.RunIwDevInfo(ctx, device)
	if err != nil {
		return nil, err
	}
	if !r.Success() {
		return r, nil
	}
	ssid := parseIwInfoSSID(r.Output)
	if ssid == "" {
		return &execs.Result{ExitCode: 1}, nil
	}
	return &execs.Result{Output: []byte(ssid)}, nil
}

// parseIwconfig sets signal level and frequency in info from the iwconfig
// output.
func parseIwconfig(info *Info, output []byte) {
	if m := signalRegexp.FindSubmatch(output); m != nil {
		if level, err := strconv.Atoi(string(m[1])); err == nil {
			info.SignalLevel = &level
		}
	}
	if m := frequencyRegex.FindSubmatch(output); m != nil {
		if freq, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			info.FrequencyGHz = &freq
		}
	}
}

// CurrentNetwork returns the current network of the wireless device. If
// device is empty, the first wireless interface is used.
func CurrentNetwork(ctx context.Context, device string) (*Info, error) {
	if device == "" {
		devices, err := ListWirelessInterfaces(ctx)
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			return nil, ErrNoInterface
		}
		device = devices[0]
	}

	info := &Info{Interface: device}
	r, err := querySSID(ctx, device)
	if err != nil {
		return nil, err
	}
	ssid := strings.TrimSpace(string(r.Output))
	if !r.Success() || ssid == "" {
		return info, nil
	}
	info.SSID = ssid
	info.Connected = true

	// signal and frequency are optional
	if r, err := execs.RunIwconfig(ctx, device); err == nil && r.Success() {
		parseIwconfig(info, r.Output)
	}
	return info, nil
}
