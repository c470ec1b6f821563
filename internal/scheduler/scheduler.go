// Package scheduler contains the reconnect scheduler that periodically
// checks the connectivity and logs in to the hotspot.
package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/telekom-mms/hotspot-login/internal/prober"
)

// Prober checks the connectivity.
type Prober interface {
	Probe(ctx context.Context) *prober.Result
}

// Loginer logs in to the hotspot.
type Loginer interface {
	AttemptLogin(ctx context.Context) bool
}

// Phase is the phase of a scheduler cycle.
type Phase int

// Phases.
const (
	PhaseIdle Phase = iota
	PhaseProbing
	PhaseLoggingIn
)

// String returns the phase as string.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProbing:
		return "probing"
	case PhaseLoggingIn:
		return "logging-in"
	}
	return ""
}

// Trigger wakes up the scheduler before the poll interval expired.
type Trigger struct {
	Reason string

	// Reload requests reloading the configuration
	Reload bool
}

// Outcome is the outcome of a cycle.
type Outcome struct {
	Verdict  prober.Verdict
	ForceDue bool
	Attempts int
	LoggedIn bool
}

// Scheduler is the reconnect scheduler.
type Scheduler struct {
	config *Config
	state  State
	phase  Phase

	prober  Prober
	loginer Loginer
	log     log.FieldLogger

	// persist stores the login time
	persist func(time.Time) error

	// reload returns a new configuration or nil
	reload func() *Config

	triggers chan *Trigger

	// now and newTimer for testing
	now      func() time.Time
	newTimer func(time.Duration) *time.Timer
}

// setPhase sets the current phase.
func (s *Scheduler) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.log.WithFields(log.Fields{
		"from": s.phase,
		"to":   p,
	}).Debug("Scheduler changing phase")
	s.phase = p
}

// login runs up to MaxRetries login attempts until one succeeds.
func (s *Scheduler) login(ctx context.Context, outcome *Outcome) {
	if s.config.MaxRetries == 0 {
		s.log.Warn("Scheduler needs login, but max retries is 0")
		return
	}

	s.setPhase(PhaseLoggingIn)
	for i := 1; i <= s.config.MaxRetries; i++ {
		if i > 1 {
			// fixed backoff between failed attempts
			if !s.sleep(ctx, s.config.RetryBackoff) {
				return
			}
		}

		outcome.Attempts = i
		s.log.WithFields(log.Fields{
			"attempt":     i,
			"max_retries": s.config.MaxRetries,
		}).Info("Scheduler login attempt")
		if !s.loginer.AttemptLogin(context.WithoutCancel(ctx)) {
			continue
		}

		outcome.LoggedIn = true
		now := s.now()
		s.state.LastLogin = &now
		if err := s.persist(now); err != nil {
			s.log.WithError(err).Error("Scheduler could not save login time")
		}
		return
	}

	s.log.WithField("attempts", outcome.Attempts).
		Error("Scheduler login failed, all attempts used")
}

// RunCycle runs a single cycle: it checks the connectivity and logs in if
// the network is not connected or a forced renewal is due.
func (s *Scheduler) RunCycle(ctx context.Context) *Outcome {
	defer s.setPhase(PhaseIdle)

	outcome := &Outcome{
		ForceDue: s.state.ForceDue(s.now(), s.config.RenewalEnabled,
			s.config.RenewalInterval),
	}

	s.setPhase(PhaseProbing)
	outcome.Verdict = s.prober.Probe(context.WithoutCancel(ctx)).Verdict

	l := s.log.WithFields(log.Fields{
		"verdict":   outcome.Verdict,
		"force_due": outcome.ForceDue,
	})
	switch {
	case outcome.Verdict == prober.Connected && !outcome.ForceDue:
		l.Debug("Scheduler internet connected")
		return outcome
	case outcome.Verdict == prober.Connected:
		l.Info("Scheduler forcing renewal login")
	default:
		l.Info("Scheduler internet not connected, trying login")
	}

	s.login(ctx, outcome)
	return outcome
}

// handleTrigger handles a trigger received while sleeping.
func (s *Scheduler) handleTrigger(t *Trigger) {
	s.log.WithFields(log.Fields{
		"reason": t.Reason,
		"reload": t.Reload,
	}).Debug("Scheduler woken up")
	if !t.Reload || s.reload == nil {
		return
	}
	c := s.reload()
	if c == nil {
		return
	}
	if !c.Valid() {
		s.log.Warn("Scheduler got invalid config, keeping current config")
		return
	}
	s.config = c
}

// sleep waits for d, returns false if ctx is cancelled.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.newTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait waits for the poll interval or a trigger, returns false if ctx is
// cancelled.
func (s *Scheduler) wait(ctx context.Context) bool {
	timer := s.newTimer(s.config.PollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case t := <-s.triggers:
		s.handleTrigger(t)
		return true
	case <-ctx.Done():
		return false
	}
}

// Run runs cycles until ctx is cancelled. Cancellation is only handled
// while sleeping, a running cycle is finished first.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithFields(log.Fields{
		"poll_interval":    s.config.PollInterval,
		"max_retries":      s.config.MaxRetries,
		"renewal_enabled":  s.config.RenewalEnabled,
		"renewal_interval": s.config.RenewalInterval,
	}).Info("Scheduler starting")

	for {
		o := s.RunCycle(ctx)
		s.log.WithFields(log.Fields{
			"verdict":   o.Verdict,
			"attempts":  o.Attempts,
			"logged_in": o.LoggedIn,
		}).Debug("Scheduler cycle done")

		if !s.wait(ctx) {
			s.log.Info("Scheduler stopped")
			return
		}
	}
}

// Trigger wakes up the scheduler if it is sleeping. Triggers are coalesced,
// Trigger does not block.
func (s *Scheduler) Trigger(t *Trigger) {
	select {
	case s.triggers <- t:
	default:
		if !t.Reload {
			return
		}
		// make sure a reload is not lost
		select {
		case <-s.triggers:
		default:
		}
		select {
		case s.triggers <- t:
		default:
		}
	}
}

// State returns the session state.
func (s *Scheduler) State() State {
	return s.state
}

// SetReload sets the function that returns a reloaded configuration.
func (s *Scheduler) SetReload(reload func() *Config) {
	s.reload = reload
}

// New returns a new Scheduler. The login time of successful logins is
// stored with persist.
func New(config *Config, state State, p Prober, l Loginer, persist func(time.Time) error, logger log.FieldLogger) *Scheduler {
	return &Scheduler{
		config:   config,
		state:    state,
		prober:   p,
		loginer:  l,
		log:      logger,
		persist:  persist,
		triggers: make(chan *Trigger, 1),
		now:      time.Now,
		newTimer: time.NewTimer,
	}
}
