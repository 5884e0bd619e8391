package tracker

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultValidIDs is the policy used when nothing else is configured.
const DefaultValidIDs = "0-10"

type idRange struct {
	low  int
	high int
}

// ValidSet is the set of marker ids allowed to produce a confirmation.
// The zero value accepts nothing.
type ValidSet struct {
	all    bool
	ranges []idRange
}

// AllIDs returns a set that accepts every id.
func AllIDs() ValidSet {
	return ValidSet{all: true}
}

// NewValidSet returns a set containing exactly the given ids.
func NewValidSet(ids ...int) ValidSet {
	set := ValidSet{}
	for _, id := range ids {
		set.ranges = append(set.ranges, idRange{low: id, high: id})
	}
	set.normalize()
	return set
}

// ParseValidSet parses a policy such as "0-10", "1,2,5-7" or "*".
func ParseValidSet(policy string) (ValidSet, error) {
	policy = strings.TrimSpace(policy)
	if policy == "" {
		return ValidSet{}, fmt.Errorf("empty valid id policy")
	}
	if policy == "*" {
		return AllIDs(), nil
	}

	set := ValidSet{}
	for _, part := range strings.Split(policy, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return ValidSet{}, fmt.Errorf("empty element in valid id policy %q", policy)
		}

		low, high, isRange := strings.Cut(part, "-")
		if !isRange {
			id, err := strconv.Atoi(part)
			if err != nil {
				return ValidSet{}, fmt.Errorf("invalid marker id %q: %w", part, err)
			}
			set.ranges = append(set.ranges, idRange{low: id, high: id})
			continue
		}

		lo, err := strconv.Atoi(strings.TrimSpace(low))
		if err != nil {
			return ValidSet{}, fmt.Errorf("invalid range start in %q: %w", part, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(high))
		if err != nil {
			return ValidSet{}, fmt.Errorf("invalid range end in %q: %w", part, err)
		}
		if hi < lo {
			return ValidSet{}, fmt.Errorf("range %q ends before it starts", part)
		}
		set.ranges = append(set.ranges, idRange{low: lo, high: hi})
	}

	set.normalize()
	return set, nil
}

// Contains reports whether id may trigger a confirmation.
func (s ValidSet) Contains(id int) bool {
	if s.all {
		return true
	}
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].high >= id })
	return i < len(s.ranges) && s.ranges[i].low <= id
}

func (s ValidSet) String() string {
	if s.all {
		return "*"
	}
	parts := make([]string, 0, len(s.ranges))
	for _, r := range s.ranges {
		if r.low == r.high {
			parts = append(parts, strconv.Itoa(r.low))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.low, r.high))
		}
	}
	return strings.Join(parts, ",")
}

// normalize sorts ranges and merges overlapping or adjacent ones.
func (s *ValidSet) normalize() {
	if len(s.ranges) < 2 {
		return
	}
	sort.Slice(s.ranges, func(i, j int) bool { return s.ranges[i].low < s.ranges[j].low })

	merged := s.ranges[:1]
	for _, r := range s.ranges[1:] {
		last := &merged[len(merged)-1]
		if r.low <= last.high+1 {
			if r.high > last.high {
				last.high = r.high
			}
			continue
		}
		merged = append(merged, r)
	}
	s.ranges = merged
}
