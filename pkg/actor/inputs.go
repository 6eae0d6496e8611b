package actor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrShapeMismatch is returned when a per-actor sequence does not have one
// entry per actor.
var ErrShapeMismatch = errors.New("per-actor sequence length does not match actor count")

// Spec is a value given either once for all items or once per item. The zero
// value is unspecified.
type Spec[T any] struct {
	one  T
	each []T
	set  bool
	per  bool
}

// One applies v to every item.
func One[T any](v T) Spec[T] {
	return Spec[T]{one: v, set: true}
}

// Each gives one value per item.
func Each[T any](vs ...T) Spec[T] {
	return Spec[T]{each: vs, set: true, per: true}
}

// IsSet reports whether a value was given.
func (s Spec[T]) IsSet() bool { return s.set }

// PerItem reports whether s holds a per-item sequence.
func (s Spec[T]) PerItem() bool { return s.per }

// Resolve expands s to exactly n values. An unspecified Spec yields n zero
// values.
func (s Spec[T]) Resolve(n int) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative item count %d", n)
	}
	switch {
	case !s.set:
		return make([]T, n), nil
	case s.per:
		if len(s.each) != n {
			return nil, fmt.Errorf("%w: got %d values for %d actors", ErrShapeMismatch, len(s.each), n)
		}
		return slices.Clone(s.each), nil
	default:
		out := make([]T, n)
		for i := range out {
			out[i] = s.one
		}
		return out, nil
	}
}

// ParseAddInputs aligns names and classes with actors. Each result has one
// entry per actor; the empty string marks a slot with no name or class.
func ParseAddInputs(actors []*Actor, names, classes Spec[string]) ([]string, []string, error) {
	n := len(actors)
	ns, err := names.Resolve(n)
	if err != nil {
		return nil, nil, fmt.Errorf("names: %w", err)
	}
	cs, err := classes.Resolve(n)
	if err != nil {
		return nil, nil, fmt.Errorf("classes: %w", err)
	}
	return ns, cs, nil
}
