package intset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	var s Set
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Ints())

	for _, n := range []int{5, -1, 3, 5, 3, 0} {
		s.Add(n)
	}
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []int{-1, 0, 3, 5}, s.Ints())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(4))
}

func TestUniquify(t *testing.T) {
	in := []int{2, 8, 6, 10, 8, 2}
	assert.Equal(t, []int{2, 6, 8, 10}, Uniquify(in))
	// input is left untouched
	assert.Equal(t, []int{2, 8, 6, 10, 8, 2}, in)
	assert.Empty(t, Uniquify(nil))
}
