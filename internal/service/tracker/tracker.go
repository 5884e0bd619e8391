// Package tracker turns per-frame marker detections into debounced
// confirmation events.
//
// Every processed frame increments a counter for each marker id it contains.
// When a counter reaches the threshold and the id is in the valid set, a
// single Event is emitted. Counters never decay; they are wiped wholesale
// once per reset interval, which starts a new epoch in which every id may
// confirm again.
package tracker

import (
	"sort"
	"time"
)

const (
	// DefaultThreshold is the number of processed frames an id must appear in
	// before it is confirmed.
	DefaultThreshold = 10
	// DefaultResetInterval is how often all counters are cleared.
	DefaultResetInterval = 60 * time.Second
)

// Event is emitted once per id per reset epoch.
type Event struct {
	ID int
	At time.Time
}

// Options configures a Tracker. Zero fields fall back to the defaults.
type Options struct {
	Threshold     int
	ResetInterval time.Duration
	Valid         ValidSet
}

// Tracker owns the detection counters. It is not safe for concurrent use;
// the control loop is its only writer.
type Tracker struct {
	counters      map[int]int
	lastReset     time.Time
	threshold     int
	resetInterval time.Duration
	valid         ValidSet
}

// New creates a tracker whose first epoch starts at start.
func New(opts Options, start time.Time) *Tracker {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.ResetInterval <= 0 {
		opts.ResetInterval = DefaultResetInterval
	}

	return &Tracker{
		counters:      make(map[int]int),
		lastReset:     start,
		threshold:     opts.Threshold,
		resetInterval: opts.ResetInterval,
		valid:         opts.Valid,
	}
}

// Observe records the ids seen in one processed frame and returns the
// confirmations it caused, ordered by ascending id.
//
// Counting happens before the reset check, so a frame that crosses the reset
// boundary is still counted (and may confirm) before the counters are wiped.
// The reset check runs on every call, including frames with no detections.
func (t *Tracker) Observe(ids []int, now time.Time) []Event {
	var events []Event

	for _, id := range uniqueSorted(ids) {
		prev := t.counters[id]
		if prev == t.threshold-1 && t.valid.Contains(id) {
			events = append(events, Event{ID: id, At: now})
		}
		t.counters[id] = prev + 1
	}

	if now.Sub(t.lastReset) >= t.resetInterval {
		clear(t.counters)
		t.lastReset = now
	}

	return events
}

// Count returns the current counter for id and whether one exists.
func (t *Tracker) Count(id int) (int, bool) {
	n, ok := t.counters[id]
	return n, ok
}

// Len returns the number of ids with a live counter.
func (t *Tracker) Len() int {
	return len(t.counters)
}

// LastReset returns the start of the current epoch.
func (t *Tracker) LastReset() time.Time {
	return t.lastReset
}

// Threshold returns the configured confirmation threshold.
func (t *Tracker) Threshold() int {
	return t.threshold
}

func uniqueSorted(ids []int) []int {
	if len(ids) < 2 {
		return ids
	}
	out := make([]int, len(ids))
	copy(out, ids)
	sort.Ints(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
