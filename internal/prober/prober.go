// Package prober contains the connectivity prober that detects captive
// portals.
package prober

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// maxDrain is the maximum number of body bytes read from a probe response.
const maxDrain = 64 * 1024

// Verdict is the result of a connectivity check.
type Verdict int

// Verdicts.
const (
	Unreachable Verdict = iota
	Connected
	CaptivePortal
)

// String returns the verdict as string.
func (v Verdict) String() string {
	switch v {
	case Connected:
		return "connected"
	case CaptivePortal:
		return "captive-portal-detected"
	case Unreachable:
		return "unreachable"
	}
	return ""
}

// MarshalText returns the verdict as text.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Result is a connectivity check result.
type Result struct {
	Verdict Verdict

	// Endpoint and FinalURL are set if a response decided the verdict
	Endpoint string
	FinalURL string
}

// Prober checks connectivity by probing well-known endpoints.
type Prober struct {
	config *Config
	client *http.Client
	log    log.FieldLogger
}

// sameHost returns whether the hosts a and b are equal, ignoring case and
// a leading "www.".
func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

// hasPortalHint returns whether u contains one of the portal hints.
func (p *Prober) hasPortalHint(u *url.URL) bool {
	s := strings.ToLower(u.Host + u.Path)
	for _, h := range p.config.PortalHints {
		if strings.Contains(s, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// check probes endpoint, returns the result and whether it is definitive.
func (p *Prober) check(ctx context.Context, endpoint string) (*Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.config.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.log.WithError(err).WithField("endpoint", endpoint).
			Error("Prober could not create request")
		return nil, false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.WithError(err).WithField("endpoint", endpoint).
			Debug("Prober GET error")
		return nil, false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()

	// transports may clone the request, compare the urls
	final := resp.Request.URL
	redirected := final.String() != req.URL.String()
	r := &Result{
		Endpoint: endpoint,
		FinalURL: final.String(),
	}
	p.log.WithFields(log.Fields{
		"endpoint": endpoint,
		"final":    r.FinalURL,
		"status":   resp.StatusCode,
	}).Debug("Prober got response")

	switch {
	case resp.StatusCode == http.StatusNetworkAuthenticationRequired:
		// 511, captive portal
		r.Verdict = CaptivePortal
		return r, true
	case !sameHost(final.Hostname(), req.URL.Hostname()),
		redirected && p.hasPortalHint(final):
		// redirected to a foreign host or to a login page
		r.Verdict = CaptivePortal
		return r, true
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		r.Verdict = Connected
		return r, true
	}

	// server error or similar on the probed host, try next endpoint
	return nil, false
}

// Probe checks the endpoints in order until one returns a definitive
// result. If no endpoint does, the network is unreachable.
func (p *Prober) Probe(ctx context.Context) *Result {
	for _, e := range p.config.Endpoints {
		if r, ok := p.check(ctx, e); ok {
			p.log.WithFields(log.Fields{
				"verdict":  r.Verdict,
				"endpoint": r.Endpoint,
			}).Debug("Prober got verdict")
			return r
		}
	}
	p.log.WithField("verdict", Unreachable).Debug("Prober got verdict")
	return &Result{Verdict: Unreachable}
}

// Hosts returns the host addresses used for probing.
func (p *Prober) Hosts() []string {
	var hosts []string
	for _, e := range p.config.Endpoints {
		if u, err := url.Parse(e); err == nil {
			hosts = append(hosts, u.Hostname())
		}
	}
	return hosts
}

// New returns a new Prober that sends requests with client.
func New(config *Config, client *http.Client, logger log.FieldLogger) *Prober {
	return &Prober{
		config: config,
		client: client,
		log:    logger,
	}
}
