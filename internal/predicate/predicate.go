// Package predicate provides boolean functions over values and the usual
// short-circuiting combinators.
package predicate

// Predicate reports whether v is accepted.
type Predicate[T any] func(v T) bool

// AlwaysTrue accepts everything.
func AlwaysTrue[T any]() Predicate[T] {
	return func(T) bool { return true }
}

// AlwaysFalse rejects everything.
func AlwaysFalse[T any]() Predicate[T] {
	return func(T) bool { return false }
}

// Not inverts p.
func Not[T any](p Predicate[T]) Predicate[T] {
	return func(v T) bool { return !p(v) }
}

// And accepts v when every component does. Components are evaluated in order
// and evaluation stops at the first rejection. And of nothing is true.
func And[T any](components ...Predicate[T]) Predicate[T] {
	switch len(components) {
	case 0:
		return AlwaysTrue[T]()
	case 1:
		return components[0]
	}
	return func(v T) bool {
		for _, p := range components {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// Or accepts v when any component does. Components are evaluated in order
// and evaluation stops at the first acceptance. Or of nothing is false.
func Or[T any](components ...Predicate[T]) Predicate[T] {
	switch len(components) {
	case 0:
		return AlwaysFalse[T]()
	case 1:
		return components[0]
	}
	return func(v T) bool {
		for _, p := range components {
			if p(v) {
				return true
			}
		}
		return false
	}
}
