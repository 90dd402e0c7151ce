// Package ds provides generic data structures shared by the cache packages.
package ds

import (
	"encoding/json"
	"fmt"
)

type StringSet = Set[string]

// Set is an ordered set that keeps O(1) membership testing and
// insertion order. Iteration is deterministic, which keeps copies made by
// the clone package in the same order as their source.
//
// Add, Remove, Clear and Insert mutate the receiver. Values, Members and
// NewEmpty never do. All methods but MarshalJSON are on *Set, so only a
// *Set satisfies clone.SetLike; the clone package goes through the pointer
// when it meets a Set held by value.
type Set[T comparable] struct {
	items map[T]struct{}
	order []T
}

func (s *Set[T]) String() string {
	return fmt.Sprintf("%v", s.order)
}

// Add adds v to the set. No-op if already present. (mutates)
func (s *Set[T]) Add(v T) {
	if s.items == nil {
		s.items = map[T]struct{}{}
	}
	if s.Contains(v) {
		return
	}
	s.items[v] = struct{}{}
	s.order = append(s.order, v)
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int { return len(s.items) }

// Remove removes the given values from the set. (mutates)
// This operation is O(n) where n is the set size.
func (s *Set[T]) Remove(vs ...T) {
	removed := 0
	for _, v := range vs {
		if _, ok := s.items[v]; ok {
			delete(s.items, v)
			removed++
		}
	}
	if removed == 0 {
		return
	}

	order := make([]T, 0, len(s.order)-removed)
	for _, v := range s.order {
		if _, ok := s.items[v]; ok {
			order = append(order, v)
		}
	}
	s.order = order
}

// Contains returns true if v is present in the set.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

// ForEach calls fn for every element in insertion order.
func (s *Set[T]) ForEach(fn func(T)) {
	for _, v := range s.order {
		fn(v)
	}
}

// Values returns a copy of the elements in insertion order.
func (s *Set[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// IsEmpty returns true if the set contains no elements.
func (s *Set[T]) IsEmpty() bool { return len(s.items) == 0 }

// Clear removes all elements from the set. (mutates)
func (s *Set[T]) Clear() {
	s.items = map[T]struct{}{}
	s.order = nil
}

// Members returns the elements in insertion order as untyped values.
func (s *Set[T]) Members() []any {
	out := make([]any, len(s.order))
	for i, v := range s.order {
		out[i] = v
	}
	return out
}

// NewEmpty returns a new empty *Set[T] of the same element type.
func (s *Set[T]) NewEmpty() any {
	return NewSet[T]()
}

// Insert adds v when it holds a T and reports whether it did. (mutates)
func (s *Set[T]) Insert(v any) bool {
	t, ok := v.(T)
	if !ok {
		return false
	}
	s.Add(t)
	return true
}

// MarshalJSON serializes the set as an ordered JSON array.
func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON deserializes a JSON array into the set.
func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var vs []T
	if err := json.Unmarshal(data, &vs); err != nil {
		return err
	}
	s.Clear()
	for _, v := range vs {
		s.Add(v)
	}
	return nil
}

// NewSet creates a new set with the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	set := &Set[T]{items: map[T]struct{}{}, order: make([]T, 0, len(items))}
	for _, item := range items {
		set.Add(item)
	}
	return set
}

// NewStringSet creates a new string set with the given items.
func NewStringSet(items ...string) *StringSet {
	return NewSet(items...)
}
