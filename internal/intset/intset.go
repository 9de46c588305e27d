// Package intset provides a small sorted set of ints for ordinal lists such
// as BYMONTHDAY or BYSETPOS values.
package intset

import "slices"

// Set is an ascending, duplicate free collection of ints. The zero value is
// an empty set ready to use.
type Set struct {
	members map[int]struct{}
}

// Add inserts n into the set.
func (s *Set) Add(n int) {
	if s.members == nil {
		s.members = make(map[int]struct{})
	}
	s.members[n] = struct{}{}
}

// Contains reports whether n is in the set.
func (s *Set) Contains(n int) bool {
	_, ok := s.members[n]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.members)
}

// Ints returns the members in ascending order.
func (s *Set) Ints() []int {
	out := make([]int, 0, len(s.members))
	for n := range s.members {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Uniquify returns a sorted copy of ints with duplicates removed.
func Uniquify(ints []int) []int {
	out := slices.Clone(ints)
	slices.Sort(out)
	return slices.Compact(out)
}
