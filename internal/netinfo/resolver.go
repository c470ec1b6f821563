package netinfo

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

var (
	// ResolvConf is the resolver configuration file.
	ResolvConf = "/etc/resolv.conf"

	// ResolverTimeout is the timeout of resolver checks.
	ResolverTimeout = 3 * time.Second
)

// ResolverReport is the result of a resolver check.
type ResolverReport struct {
	Server    string        `json:"server"`
	Host      string        `json:"host"`
	Addresses []string      `json:"addresses"`
	RTT       time.Duration `json:"rtt"`

	// Private is set if the host resolved to a private address, this is
	// common for hotspots that intercept DNS before login
	Private bool `json:"private"`
}

// queryA sends an A query for host to server.
func queryA(ctx context.Context, server, host string) (*ResolverReport, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)

	client := &dns.Client{Timeout: ResolverTimeout}
	reply, rtt, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if reply.Rcode != dns.RcodeSuccess {
		return nil, errors.New("resolver returned " + dns.RcodeToString[reply.Rcode])
	}

	report := &ResolverReport{
		Server: server,
		Host:   host,
		RTT:    rtt,
	}
	for _, rr := range reply.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		report.Addresses = append(report.Addresses, a.A.String())
		if addr, ok := netip.AddrFromSlice(a.A); ok && addr.Unmap().IsPrivate() {
			report.Private = true
		}
	}
	return report, nil
}

// CheckResolver resolves host with the first nameserver in ResolvConf.
func CheckResolver(ctx context.Context, host string) (*ResolverReport, error) {
	conf, err := dns.ClientConfigFromFile(ResolvConf)
	if err != nil {
		return nil, err
	}
	if len(conf.Servers) == 0 {
		return nil, errors.New("no nameserver configured")
	}
	return queryA(ctx, net.JoinHostPort(conf.Servers[0], conf.Port), host)
}
