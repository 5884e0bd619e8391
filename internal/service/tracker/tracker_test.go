package tracker

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

func newTestTracker() *Tracker {
	return New(Options{
		Threshold:     10,
		ResetInterval: time.Minute,
		Valid:         NewValidSet(0, 1, 2, 3, 4, 5),
	}, epoch)
}

func TestObserve_ConfirmsExactlyAtThreshold(t *testing.T) {
	tr := newTestTracker()

	for frame := 1; frame <= 12; frame++ {
		now := epoch.Add(time.Duration(frame) * 100 * time.Millisecond)
		events := tr.Observe([]int{3}, now)

		switch {
		case frame == 10:
			if len(events) != 1 {
				t.Fatalf("frame %d: expected 1 event, got %d", frame, len(events))
			}
			if events[0].ID != 3 || !events[0].At.Equal(now) {
				t.Errorf("frame %d: unexpected event %+v", frame, events[0])
			}
		case len(events) != 0:
			t.Errorf("frame %d: expected no event, got %+v", frame, events)
		}
	}

	count, ok := tr.Count(3)
	if !ok || count != 12 {
		t.Errorf("Expected counter 12 for id 3, got %d (exists=%v)", count, ok)
	}
}

func TestObserve_InvalidIDCountsButNeverConfirms(t *testing.T) {
	tr := newTestTracker()

	total := 0
	for frame := 1; frame <= 10; frame++ {
		total += len(tr.Observe([]int{99}, epoch.Add(time.Duration(frame)*time.Second)))
	}

	if total != 0 {
		t.Errorf("Expected no events for id 99, got %d", total)
	}
	if count, _ := tr.Count(99); count != 10 {
		t.Errorf("Expected counter 10 for id 99, got %d", count)
	}
}

func TestObserve_ResetRequiresFreshRun(t *testing.T) {
	tr := newTestTracker()

	for i := 0; i < 9; i++ {
		tr.Observe([]int{2}, epoch.Add(time.Duration(i)*time.Second))
	}
	if count, _ := tr.Count(2); count != 9 {
		t.Fatalf("Expected counter 9 before reset, got %d", count)
	}

	// Empty frame after the interval still triggers the reset.
	afterReset := epoch.Add(61 * time.Second)
	tr.Observe(nil, afterReset)
	if tr.Len() != 0 {
		t.Fatalf("Expected counters cleared, got %d live counters", tr.Len())
	}
	if !tr.LastReset().Equal(afterReset) {
		t.Errorf("Expected last reset %v, got %v", afterReset, tr.LastReset())
	}

	for i := 1; i <= 9; i++ {
		if events := tr.Observe([]int{2}, afterReset.Add(time.Duration(i)*time.Second)); len(events) != 0 {
			t.Fatalf("observation %d after reset: unexpected event %+v", i, events)
		}
	}
	events := tr.Observe([]int{2}, afterReset.Add(10*time.Second))
	if len(events) != 1 || events[0].ID != 2 {
		t.Errorf("Expected confirmation on 10th observation after reset, got %+v", events)
	}
}

func TestObserve_AbsenceDoesNotDecay(t *testing.T) {
	tr := newTestTracker()
	ts := epoch

	step := func(ids ...int) []Event {
		ts = ts.Add(100 * time.Millisecond)
		return tr.Observe(ids, ts)
	}

	for i := 0; i < 5; i++ {
		step(1)
	}
	step()
	step(4)
	step()

	if count, _ := tr.Count(1); count != 5 {
		t.Fatalf("Expected counter 5 after gap, got %d", count)
	}

	var confirmed []Event
	for i := 0; i < 5; i++ {
		confirmed = append(confirmed, step(1)...)
	}
	if len(confirmed) != 1 || confirmed[0].ID != 1 {
		t.Errorf("Expected one confirmation for id 1 across the gap, got %+v", confirmed)
	}
}

func TestObserve_DuplicatesCollapse(t *testing.T) {
	tr := newTestTracker()

	tr.Observe([]int{5, 5, 5}, epoch.Add(time.Second))

	if count, _ := tr.Count(5); count != 1 {
		t.Errorf("Expected duplicates in one frame to count once, got %d", count)
	}
}

func TestObserve_SimultaneousConfirmationsAreOrdered(t *testing.T) {
	tr := newTestTracker()

	var events []Event
	for i := 1; i <= 10; i++ {
		events = tr.Observe([]int{4, 0, 2}, epoch.Add(time.Duration(i)*time.Second))
	}

	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i, want := range []int{0, 2, 4} {
		if events[i].ID != want {
			t.Errorf("event %d: expected id %d, got %d", i, want, events[i].ID)
		}
	}
}

func TestObserve_CountsBeforeReset(t *testing.T) {
	tr := newTestTracker()

	for i := 0; i < 9; i++ {
		tr.Observe([]int{0}, epoch.Add(time.Duration(i)*time.Second))
	}

	// The boundary frame both confirms and clears.
	events := tr.Observe([]int{0}, epoch.Add(time.Minute))
	if len(events) != 1 {
		t.Fatalf("Expected the boundary frame to confirm, got %+v", events)
	}
	if _, ok := tr.Count(0); ok {
		t.Error("Expected counter to be cleared after the boundary frame")
	}
}

func TestObserve_OncePerEpoch(t *testing.T) {
	tr := newTestTracker()

	total := 0
	for i := 1; i <= 50; i++ {
		total += len(tr.Observe([]int{1}, epoch.Add(time.Duration(i)*time.Second)))
	}

	if total != 1 {
		t.Errorf("Expected exactly 1 event within one epoch, got %d", total)
	}
}

func TestNew_Defaults(t *testing.T) {
	tr := New(Options{}, epoch)

	if tr.Threshold() != DefaultThreshold {
		t.Errorf("Expected default threshold %d, got %d", DefaultThreshold, tr.Threshold())
	}
	if tr.resetInterval != DefaultResetInterval {
		t.Errorf("Expected default reset interval %v, got %v", DefaultResetInterval, tr.resetInterval)
	}
	// Zero ValidSet accepts nothing.
	for i := 1; i <= DefaultThreshold; i++ {
		if events := tr.Observe([]int{0}, epoch.Add(time.Duration(i)*time.Second)); len(events) != 0 {
			t.Fatalf("Expected no events with an empty valid set, got %+v", events)
		}
	}
}
