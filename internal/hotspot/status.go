package hotspot

import (
	"context"
	"net/url"
	"time"

	"github.com/telekom-mms/hotspot-login/internal/netinfo"
	"github.com/telekom-mms/hotspot-login/internal/prober"
	"github.com/telekom-mms/hotspot-login/internal/scheduler"
)

var (
	// currentNetwork and checkResolver for testing
	currentNetwork = netinfo.CurrentNetwork
	checkResolver  = netinfo.CheckResolver
)

// Status is the hotspot status.
type Status struct {
	Verdict  prober.Verdict `json:"verdict"`
	Endpoint string         `json:"endpoint,omitempty"`
	FinalURL string         `json:"final_url,omitempty"`

	HotspotURL     string     `json:"hotspot_url"`
	HasCredentials bool       `json:"has_credentials"`
	LastLogin      *time.Time `json:"last_login,omitempty"`

	// SinceLogin and UntilRenewal are only valid if LastLogin is set
	SinceLogin     time.Duration `json:"since_login,omitempty"`
	RenewalEnabled bool          `json:"renewal_enabled"`
	UntilRenewal   time.Duration `json:"until_renewal,omitempty"`

	Network      *netinfo.Info           `json:"network,omitempty"`
	NetworkError string                  `json:"network_error,omitempty"`
	Resolver     *netinfo.ResolverReport `json:"resolver,omitempty"`
	ResolverErr  string                  `json:"resolver_error,omitempty"`
}

// resolverHost returns the host used to check the resolver.
func (s *Service) resolverHost() string {
	for _, e := range s.config.ProbeURLs {
		if u, err := url.Parse(e); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return ""
}

// Status returns the current status of the wireless device and the
// hotspot login. If device is empty, the first wireless interface is used.
func (s *Service) Status(ctx context.Context, now time.Time, device string) *Status {
	r := s.prober.Probe(ctx)
	status := &Status{
		Verdict:        r.Verdict,
		Endpoint:       r.Endpoint,
		FinalURL:       r.FinalURL,
		HotspotURL:     s.config.HotspotURL,
		HasCredentials: s.config.HasCredentials(),
		LastLogin:      s.config.LastLogin,
		RenewalEnabled: s.config.RenewalEnabled,
	}

	state := scheduler.State{LastLogin: s.config.LastLogin}
	if since, ok := state.SinceLogin(now); ok {
		status.SinceLogin = since
		status.UntilRenewal, _ = state.UntilRenewal(now, s.config.Renewal())
	}

	if info, err := currentNetwork(ctx, device); err != nil {
		s.log.WithError(err).Debug("Status could not get network info")
		status.NetworkError = err.Error()
	} else {
		status.Network = info
	}

	if host := s.resolverHost(); host != "" {
		if report, err := checkResolver(ctx, host); err != nil {
			s.log.WithError(err).Debug("Status could not check resolver")
			status.ResolverErr = err.Error()
		} else {
			status.Resolver = report
		}
	}

	return status
}
