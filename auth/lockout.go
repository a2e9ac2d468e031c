package auth

import "time"

// LockoutState is the per-account brute-force bookkeeping persisted under
// attempts_{ehash}. Timestamps are Unix milliseconds to match the stored
// record format.
type LockoutState struct {
	Count     int   `json:"count"`
	LockUntil int64 `json:"lockUntil"`
}

// Decision is the outcome of checking a login attempt against LockoutState.
type Decision struct {
	Allowed   bool
	Remaining time.Duration // lock window left when denied
}

// Decide reports whether an attempt may proceed at the given instant.
// Denied attempts must not mutate the state; the failure counter only moves
// on actual failed verifications.
func Decide(s LockoutState, now time.Time) Decision {
	if s.LockUntil > 0 && now.UnixMilli() < s.LockUntil {
		return Decision{Remaining: time.Duration(s.LockUntil-now.UnixMilli()) * time.Millisecond}
	}
	return Decision{Allowed: true}
}

// RecordFailure increments the cumulative failure count and applies the
// escalation table, possibly starting a lock window.
func RecordFailure(s LockoutState, now time.Time) LockoutState {
	count := s.Count + 1
	next := LockoutState{Count: count}
	if d := lockDurationFor(count); d > 0 {
		next.LockUntil = now.Add(d).UnixMilli()
	}
	return next
}

// RecordSuccess resets the bookkeeping after a successful verification.
func RecordSuccess() LockoutState {
	return LockoutState{}
}

// Escalating lock durations by cumulative failures since the last success:
// four misses are free, then 5m, 30m, 2h, and 24h for everything after.
func lockDurationFor(count int) time.Duration {
	switch {
	case count <= 4:
		return 0
	case count == 5:
		return 5 * time.Minute
	case count == 6:
		return 30 * time.Minute
	case count == 7:
		return 2 * time.Hour
	default:
		return 24 * time.Hour
	}
}
