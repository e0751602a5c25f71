package timers

import (
	"cmp"
	"fmt"
	"slices"
)

// Timer is a callback scheduled for Timestamp under Key and Namespace.
// Timers are values; two timers are the same timer when all three fields match.
type Timer[K, N comparable] struct {
	Timestamp int64
	Key       K
	Namespace N
}

func (t Timer[K, N]) String() string {
	return fmt.Sprintf("Timer{timestamp=%d, key=%v, namespace=%v}", t.Timestamp, t.Key, t.Namespace)
}

// CompareTimestamp orders timers by timestamp only.
func CompareTimestamp[K, N comparable](a, b Timer[K, N]) int {
	return cmp.Compare(a.Timestamp, b.Timestamp)
}

// Set is a set of timers. A nil Set means no timers of that kind were captured.
type Set[K, N comparable] map[Timer[K, N]]struct{}

func NewSet[K, N comparable]() Set[K, N] {
	return make(Set[K, N])
}

// SetOf returns a non-nil set holding the given timers.
func SetOf[K, N comparable](timers ...Timer[K, N]) Set[K, N] {
	s := make(Set[K, N], len(timers))
	for _, t := range timers {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t and reports whether it was not already present.
func (s Set[K, N]) Add(t Timer[K, N]) bool {
	if _, ok := s[t]; ok {
		return false
	}
	s[t] = struct{}{}
	return true
}

// Remove deletes t and reports whether it was present.
func (s Set[K, N]) Remove(t Timer[K, N]) bool {
	if _, ok := s[t]; !ok {
		return false
	}
	delete(s, t)
	return true
}

func (s Set[K, N]) Contains(t Timer[K, N]) bool {
	_, ok := s[t]
	return ok
}

func (s Set[K, N]) Len() int {
	return len(s)
}

// Sorted returns the timers ordered by compare.
func (s Set[K, N]) Sorted(compare func(a, b Timer[K, N]) int) []Timer[K, N] {
	out := make([]Timer[K, N], 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.SortFunc(out, compare)
	return out
}
