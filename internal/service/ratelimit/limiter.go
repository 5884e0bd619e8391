// Package ratelimit bounds how often captured frames reach the detector.
package ratelimit

import (
	"math"
	"time"
)

// Limiter is a minimum-interval gate. Rejected frames are dropped, not
// queued, so overload lowers the processed frame rate instead of building a
// backlog.
type Limiter struct {
	interval time.Duration
	last     time.Time
	primed   bool
}

// New returns a limiter admitting at most maxRate frames per second.
// A non-positive rate admits every frame. Rates too small for the interval
// to fit a time.Duration are clamped to the longest representable interval.
func New(maxRate float64) *Limiter {
	var interval time.Duration
	if maxRate > 0 {
		ns := float64(time.Second) / maxRate
		if ns >= math.MaxInt64 {
			interval = time.Duration(math.MaxInt64)
		} else {
			interval = time.Duration(ns)
		}
	}
	return &Limiter{interval: interval}
}

// Allow reports whether a frame captured at now should be processed and,
// if so, records now as the last accepted time.
func (l *Limiter) Allow(now time.Time) bool {
	if l.primed && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	l.primed = true
	return true
}

// Interval returns the minimum spacing between accepted frames.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
