package scheduler

import "time"

// State is the login session state.
type State struct {
	LastLogin *time.Time
}

// SinceLogin returns the time since the last login and whether there was a
// login.
func (s *State) SinceLogin(now time.Time) (time.Duration, bool) {
	if s.LastLogin == nil {
		return 0, false
	}
	return now.Sub(*s.LastLogin), true
}

// UntilRenewal returns the time until the forced renewal with interval is
// due and whether it is scheduled. The result is negative if the renewal is
// overdue.
func (s *State) UntilRenewal(now time.Time, interval time.Duration) (time.Duration, bool) {
	since, ok := s.SinceLogin(now)
	if !ok {
		return 0, false
	}
	return interval - since, true
}

// ForceDue returns whether a forced renewal is due at now.
func (s *State) ForceDue(now time.Time, enabled bool, interval time.Duration) bool {
	since, ok := s.SinceLogin(now)
	return enabled && ok && since >= interval
}
