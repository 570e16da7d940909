package ir

import (
	"strconv"
	"strings"

	"github.com/tidwall/btree"
)

// ColumnID identifies a column produced somewhere in a plan.
// IDs are issued by a single allocator per plan-building session and are
// never reused. Ordering carries no meaning beyond allocation order.
type ColumnID int64

// String renders the id in plan notation ("@3").
func (c ColumnID) String() string {
	return "@" + strconv.FormatInt(int64(c), 10)
}

// ColSet is an ordered set of column ids.
//
// The zero value is the empty set. ColSet values are treated as immutable
// once handed to a plan node: Add mutates the receiver, every other
// operation returns a fresh set. Iteration is always in ascending id order,
// which keeps renders and digests deterministic.
type ColSet struct {
	set *btree.Set[ColumnID]
}

// MakeColSet returns a set initialized with the given ids.
func MakeColSet(ids ...ColumnID) ColSet {
	var s ColSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id. No-op if id is already present.
func (s *ColSet) Add(id ColumnID) {
	if s.set == nil {
		s.set = &btree.Set[ColumnID]{}
	}
	s.set.Insert(id)
}

// Contains reports whether id is in the set.
func (s ColSet) Contains(id ColumnID) bool {
	return s.set != nil && s.set.Contains(id)
}

// Len returns the number of ids in the set.
func (s ColSet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Len()
}

// Empty reports whether the set has no members.
func (s ColSet) Empty() bool { return s.Len() == 0 }

// ForEach calls fn for every id in ascending order.
func (s ColSet) ForEach(fn func(id ColumnID)) {
	if s.set == nil {
		return
	}
	s.set.Scan(func(id ColumnID) bool {
		fn(id)
		return true
	})
}

// Ordered returns the members in ascending order.
func (s ColSet) Ordered() []ColumnID {
	if s.set == nil {
		return nil
	}
	return s.set.Keys()
}

// SingleColumn returns the sole member of a one-element set.
func (s ColSet) SingleColumn() (ColumnID, bool) {
	if s.Len() != 1 {
		return 0, false
	}
	return s.set.Min()
}

// Copy returns an independent copy of the set.
func (s ColSet) Copy() ColSet {
	var out ColSet
	s.ForEach(out.Add)
	return out
}

// Union returns s ∪ other.
func (s ColSet) Union(other ColSet) ColSet {
	out := s.Copy()
	other.ForEach(out.Add)
	return out
}

// Intersection returns s ∩ other.
func (s ColSet) Intersection(other ColSet) ColSet {
	var out ColSet
	s.ForEach(func(id ColumnID) {
		if other.Contains(id) {
			out.Add(id)
		}
	})
	return out
}

// Difference returns s \ other.
func (s ColSet) Difference(other ColSet) ColSet {
	var out ColSet
	s.ForEach(func(id ColumnID) {
		if !other.Contains(id) {
			out.Add(id)
		}
	})
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s ColSet) SubsetOf(other ColSet) bool {
	ok := true
	s.ForEach(func(id ColumnID) {
		if !other.Contains(id) {
			ok = false
		}
	})
	return ok
}

// Intersects reports whether s and other share a member.
func (s ColSet) Intersects(other ColSet) bool {
	return !s.Intersection(other).Empty()
}

// Equals reports whether s and other have the same members.
func (s ColSet) Equals(other ColSet) bool {
	return s.Len() == other.Len() && s.SubsetOf(other)
}

// String renders the set as "{@0, @1}".
func (s ColSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range s.Ordered() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String()
}
