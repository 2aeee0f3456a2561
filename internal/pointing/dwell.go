package pointing

import "time"

// Dwell debounces zone classifications. A zone is confirmed once it has been
// the candidate, without interruption, for the configured duration.
type Dwell struct {
	duration time.Duration

	candidate string
	since     time.Time
	confirmed bool
}

// NewDwell creates an idle Dwell.
func NewDwell(d time.Duration) *Dwell {
	return &Dwell{duration: d}
}

// Observe records the zone seen at now ("" for none) and reports whether this
// observation confirmed it. Each candidate confirms at most once.
func (d *Dwell) Observe(name string, now time.Time) bool {
	if name != d.candidate {
		d.candidate = name
		d.since = now
		d.confirmed = false
	}
	if d.candidate == "" || d.confirmed {
		return false
	}
	if now.Sub(d.since) >= d.duration {
		d.confirmed = true
		return true
	}
	return false
}

// Reset returns to idle.
func (d *Dwell) Reset() {
	d.candidate = ""
	d.since = time.Time{}
	d.confirmed = false
}

// Candidate returns the current zone name, or "" when idle.
func (d *Dwell) Candidate() string { return d.candidate }

// Since returns when the current candidate was first seen.
func (d *Dwell) Since() time.Time { return d.since }

// Confirmed reports whether the current candidate has been confirmed.
func (d *Dwell) Confirmed() bool { return d.confirmed }
