package domain

import "time"

// LifecycleConfig carries the two durations that drive submission state
// transitions. Passed in at construction rather than read from globals
// so tests can shrink or freeze them.
type LifecycleConfig struct {
	// EditWindow is how long after creation the description stays
	// editable.
	EditWindow time.Duration
	// ExpiryHorizon is how long after creation a submission remains
	// visible to proximity search.
	ExpiryHorizon time.Duration
}

// DefaultLifecycleConfig matches the production policy: 10 minute edit
// window, 3 day expiry.
func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		EditWindow:    10 * time.Minute,
		ExpiryHorizon: 72 * time.Hour,
	}
}

// Lifecycle is a pure function of "now" against stored timestamps. It
// never mutates submissions; callers stamp derived state from it.
type Lifecycle struct {
	cfg LifecycleConfig
}

func NewLifecycle(cfg LifecycleConfig) *Lifecycle {
	if cfg.EditWindow <= 0 {
		cfg.EditWindow = DefaultLifecycleConfig().EditWindow
	}
	if cfg.ExpiryHorizon <= 0 {
		cfg.ExpiryHorizon = DefaultLifecycleConfig().ExpiryHorizon
	}
	return &Lifecycle{cfg: cfg}
}

// ExpiresAt derives the expiry instant for a submission created at the
// given time.
func (l *Lifecycle) ExpiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(l.cfg.ExpiryHorizon)
}

// EditDeadline is the instant at which the edit window closes.
func (l *Lifecycle) EditDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(l.cfg.EditWindow)
}

// IsEditable reports whether the description may still change. The
// boundary instant itself is closed: now == deadline is not editable.
func (l *Lifecycle) IsEditable(s *Submission, now time.Time) bool {
	return now.Before(l.EditDeadline(s.CreatedAt))
}

// IsLocked is the complement of IsEditable. Lock only gates description
// edits; deletion and voting ignore it.
func (l *Lifecycle) IsLocked(s *Submission, now time.Time) bool {
	return !l.IsEditable(s, now)
}

// IsExpired reports whether the submission has passed its expiry
// horizon. A submission is live through the expiry instant itself.
func (l *Lifecycle) IsExpired(s *Submission, now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// EditWindow exposes the configured window for callers that compute
// cutoffs for atomic storage-level checks.
func (l *Lifecycle) EditWindow() time.Duration { return l.cfg.EditWindow }
