// Package countdown holds the remaining-time math shared with auction room
// clients. Each viewer derives its own countdown from the canonical scheduled
// end timestamp and its local clock, re-evaluated at least once per second.
// A local zero is only a display hint: the authoritative end of an auction is
// the status_changed event from the server-side status machine.
package countdown

import "time"

// Breakdown is the display decomposition of a remaining duration.
type Breakdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Remaining returns the time left until endAt, clamped at zero.
func Remaining(endAt, now time.Time) time.Duration {
	d := endAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the countdown has reached zero.
func Expired(endAt, now time.Time) bool {
	return Remaining(endAt, now) == 0
}

// Split decomposes a duration into days, hours, minutes and seconds for
// rendering. Negative durations decompose to all zeros.
func Split(d time.Duration) Breakdown {
	if d <= 0 {
		return Breakdown{}
	}
	total := int(d / time.Second)
	return Breakdown{
		Days:    total / 86400,
		Hours:   (total / 3600) % 24,
		Minutes: (total / 60) % 60,
		Seconds: total % 60,
	}
}
