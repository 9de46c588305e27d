package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func even(n int) bool     { return n%2 == 0 }
func positive(n int) bool { return n > 0 }

func TestConstants(t *testing.T) {
	assert.True(t, AlwaysTrue[int]()(0))
	assert.False(t, AlwaysFalse[int]()(0))
}

func TestNot(t *testing.T) {
	odd := Not[int](even)
	assert.True(t, odd(3))
	assert.False(t, odd(4))
}

func TestAndOr(t *testing.T) {
	both := And[int](even, positive)
	either := Or[int](even, positive)

	tests := []struct {
		n       int
		and, or bool
	}{
		{4, true, true},
		{-4, false, true},
		{3, false, true},
		{-3, false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.and, both(tt.n), "and(%d)", tt.n)
		assert.Equal(t, tt.or, either(tt.n), "or(%d)", tt.n)
	}

	assert.True(t, And[int]()(1))
	assert.False(t, Or[int]()(1))
}

func TestShortCircuit(t *testing.T) {
	calls := 0
	counting := func(int) bool { calls++; return true }

	And[int](AlwaysFalse[int](), counting)(1)
	assert.Equal(t, 0, calls)

	Or[int](AlwaysTrue[int](), counting)(1)
	assert.Equal(t, 0, calls)

	And[int](AlwaysTrue[int](), counting)(1)
	assert.Equal(t, 1, calls)
}
