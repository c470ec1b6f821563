// Package hotspot contains the hotspot login service that logs in to captive
// portals and verifies the login.
package hotspot

import (
	"context"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/hsconfig"
	"github.com/telekom-mms/hotspot-login/internal/portal"
	"github.com/telekom-mms/hotspot-login/internal/prober"
)

// ErrNoCredentials is returned if username or password are not configured.
var ErrNoCredentials = errors.New("username or password not configured")

// Prober checks the connectivity.
type Prober interface {
	Probe(ctx context.Context) *prober.Result
}

// Submitter submits the portal login form.
type Submitter interface {
	Submit(ctx context.Context, portalURL string, creds *portal.Credentials, timeout time.Duration) error
}

// Service logs in to the hotspot.
type Service struct {
	config    *hsconfig.Config
	prober    Prober
	submitter Submitter
	log       log.FieldLogger

	// client is the http session if the service created the prober
	client *http.Client
}

// Login submits the login form and verifies the login with a connectivity
// check. Only a connected verdict after the submission is a successful
// login, the portal's response to the submission is not evaluated.
func (s *Service) Login(ctx context.Context) error {
	if !s.config.HasCredentials() {
		return ErrNoCredentials
	}

	creds := &portal.Credentials{
		Username: s.config.Username,
		Password: s.config.Password,
	}
	if err := s.submitter.Submit(ctx, s.config.HotspotURL, creds,
		s.config.RequestTimeout()); err != nil {
		return err
	}

	r := s.prober.Probe(ctx)
	if r.Verdict != prober.Connected {
		return &NotConnectedError{Verdict: r.Verdict}
	}
	return nil
}

// AttemptLogin runs Login, logs errors and returns whether the login was
// successful.
func (s *Service) AttemptLogin(ctx context.Context) bool {
	err := s.Login(ctx)
	var notConnected *NotConnectedError
	switch {
	case err == nil:
		s.log.Info("Login successful, internet connected")
		return true
	case errors.Is(err, ErrNoCredentials):
		s.log.Error("Login not possible, username or password not configured")
	case errors.As(err, &notConnected):
		s.log.WithField("verdict", notConnected.Verdict).
			Warn("Login might have failed, internet not connected")
	case errors.Is(err, portal.ErrNoLoginForm):
		s.log.WithError(err).WithField("url", s.config.HotspotURL).
			Error("Login form not found")
	default:
		s.log.WithError(err).Error("Login failed")
	}
	return false
}

// Probe checks the connectivity.
func (s *Service) Probe(ctx context.Context) *prober.Result {
	return s.prober.Probe(ctx)
}

// SetConfig sets a new configuration.
func (s *Service) SetConfig(config *hsconfig.Config) {
	s.config = config
	if s.client != nil {
		s.prober = prober.New(proberConfig(config), s.client,
			s.log.WithField("component", "prober"))
	}
}

// proberConfig returns the prober configuration in config.
func proberConfig(config *hsconfig.Config) *prober.Config {
	c := prober.NewConfig()
	c.Endpoints = append([]string(nil), config.ProbeURLs...)
	c.HTTPTimeout = config.ProbeRequestTimeout()
	return c
}

// New returns a new Service with a new http session shared by the prober
// and the submitter.
func New(config *hsconfig.Config, logger log.FieldLogger) *Service {
	client := portal.NewSession(config.UserAgent)
	s := NewService(config,
		prober.New(proberConfig(config), client,
			logger.WithField("component", "prober")),
		portal.NewSubmitter(client, logger.WithField("component", "portal")),
		logger)
	s.client = client
	return s
}

// NewService returns a new Service.
func NewService(config *hsconfig.Config, p Prober, submitter Submitter, logger log.FieldLogger) *Service {
	return &Service{
		config:    config,
		prober:    p,
		submitter: submitter,
		log:       logger,
	}
}

// NotConnectedError is returned if the connectivity check after submitting
// the login form does not report a connection.
type NotConnectedError struct {
	Verdict prober.Verdict
}

// Error returns the error as string.
func (e *NotConnectedError) Error() string {
	return "not connected after login: " + e.Verdict.String()
}
