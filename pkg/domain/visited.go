package domain

import "sort"

// VisitedSet is the set of page keys reported as visited in a session.
// Membership only grows within a session.
type VisitedSet map[string]struct{}

// NewVisitedSet builds a set from keys, collapsing duplicates.
func NewVisitedSet(keys ...string) VisitedSet {
	s := make(VisitedSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s VisitedSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key and reports whether the set changed.
func (s VisitedSet) Add(key string) bool {
	if s.Has(key) {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Keys returns the members sorted, which keeps the persisted form stable.
func (s VisitedSet) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of members.
func (s VisitedSet) Len() int {
	return len(s)
}
