package koopa

import "sort"

// NameSet is a set of IR names
type NameSet map[string]bool

// NewNameSet creates a set holding the given names
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// Add inserts a name
func (s NameSet) Add(n string) {
	s[n] = true
}

// Contains reports membership
func (s NameSet) Contains(n string) bool {
	return s[n]
}

// Union returns s ∪ o as a new set
func (s NameSet) Union(o NameSet) NameSet {
	r := s.Copy()
	for n := range o {
		r[n] = true
	}
	return r
}

// Minus returns s \ o as a new set
func (s NameSet) Minus(o NameSet) NameSet {
	r := make(NameSet, len(s))
	for n := range s {
		if !o[n] {
			r[n] = true
		}
	}
	return r
}

// Equal reports whether both sets hold the same names
func (s NameSet) Equal(o NameSet) bool {
	if len(s) != len(o) {
		return false
	}
	for n := range s {
		if !o[n] {
			return false
		}
	}
	return true
}

// Copy returns an independent copy
func (s NameSet) Copy() NameSet {
	r := make(NameSet, len(s))
	for n := range s {
		r[n] = true
	}
	return r
}

// Slice returns the names in sorted order
func (s NameSet) Slice() []string {
	r := make([]string, 0, len(s))
	for n := range s {
		r = append(r, n)
	}
	sort.Strings(r)
	return r
}
